// Package docload parses hardware description files (JSON, JSON5, YAML,
// optionally lz4-compressed) into docnode trees and resolves cross-file
// "$ref" references.
package docload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
)

// Format identifies a document syntax.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatJSON5 Format = "json5"
	FormatYAML  Format = "yaml"
)

const lz4Extension = ".lz4"

// Loader errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrInputTooLarge     = errors.New("input document too large")
	ErrTrailingData      = errors.New("trailing data after document")
)

// FormatFromPath infers the syntax from the file extension. A trailing
// ".lz4" marks a compressed file and is stripped first.
func FormatFromPath(path string) (Format, bool, error) {
	name := strings.ToLower(filepath.Base(path))

	compressed := strings.HasSuffix(name, lz4Extension)
	name = strings.TrimSuffix(name, lz4Extension)

	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON, compressed, nil
	case ".json5", ".duh":
		return FormatJSON5, compressed, nil
	case ".yaml", ".yml":
		return FormatYAML, compressed, nil
	default:
		return "", compressed, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (docnode.Node, error) {
	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatJSON5:
		return parseJSON5(data)
	case FormatYAML:
		return parseYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ReadFile reads path, decompressing it when compressed is set and
// refusing inputs larger than maxSize (0 disables the limit).
func ReadFile(path string, compressed bool, maxSize uint64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if compressed {
		reader = lz4.NewReader(file)
	}

	if maxSize > 0 {
		reader = io.LimitReader(reader, int64(maxSize)+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if maxSize > 0 && uint64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInputTooLarge, path, maxSize)
	}

	return data, nil
}

// parseJSON keeps mapping keys in document order.
func parseJSON(data []byte) (docnode.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}

	return root, nil
}

func decodeJSONValue(dec *json.Decoder) (docnode.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return docnode.Scalar{Value: tok}, nil
	}

	switch delim {
	case '{':
		mapping := docnode.NewMapping()

		for dec.More() {
			keyTok, keyErr := dec.Token()
			if keyErr != nil {
				return nil, keyErr
			}

			key, _ := keyTok.(string)

			value, valueErr := decodeJSONValue(dec)
			if valueErr != nil {
				return nil, valueErr
			}

			mapping.Set(key, value)
		}

		_, err = dec.Token()

		return mapping, err
	case '[':
		seq := docnode.NewSequence()

		for dec.More() {
			item, itemErr := decodeJSONValue(dec)
			if itemErr != nil {
				return nil, itemErr
			}

			seq.Items = append(seq.Items, item)
		}

		_, err = dec.Token()

		return seq, err
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

func parseJSON5(data []byte) (docnode.Node, error) {
	var value any

	err := json5.Unmarshal(data, &value)
	if err != nil {
		return nil, fmt.Errorf("decode json5: %w", err)
	}

	return docnode.FromAny(value), nil
}

func parseYAML(data []byte) (docnode.Node, error) {
	var doc yaml.Node

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if doc.Kind == 0 {
		return docnode.Scalar{}, nil
	}

	return fromYAML(&doc)
}

// fromYAML converts a yaml.Node tree, keeping mapping key order.
func fromYAML(node *yaml.Node) (docnode.Node, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return docnode.Scalar{}, nil
		}

		return fromYAML(node.Content[0])
	case yaml.AliasNode:
		return fromYAML(node.Alias)
	case yaml.MappingNode:
		mapping := docnode.NewMapping()

		for idx := 0; idx+1 < len(node.Content); idx += 2 {
			value, err := fromYAML(node.Content[idx+1])
			if err != nil {
				return nil, err
			}

			mapping.Set(node.Content[idx].Value, value)
		}

		return mapping, nil
	case yaml.SequenceNode:
		seq := docnode.NewSequence()

		for _, child := range node.Content {
			item, err := fromYAML(child)
			if err != nil {
				return nil, err
			}

			seq.Items = append(seq.Items, item)
		}

		return seq, nil
	default:
		var value any

		err := node.Decode(&value)
		if err != nil {
			return nil, fmt.Errorf("yaml line %d: %w", node.Line, err)
		}

		return docnode.Scalar{Value: value}, nil
	}
}
