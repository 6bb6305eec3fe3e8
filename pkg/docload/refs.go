package docload

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
)

const refKey = "$ref"

// Reference errors.
var (
	// ErrBadReference is returned when a "$ref" target cannot be found.
	ErrBadReference = errors.New("unresolvable reference")
	// ErrReferenceCycle is returned when references form a loop.
	ErrReferenceCycle = errors.New("reference cycle")
)

// Loader reads documents from disk and inlines "$ref" targets, caching
// each referenced file so it is parsed once per Loader.
type Loader struct {
	// MaxSize bounds the decoded size of every file read (0 disables).
	MaxSize uint64

	logger *slog.Logger
	cache  map[string]docnode.Node
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Loader{
		logger: logger,
		cache:  make(map[string]docnode.Node),
	}
}

// Load reads path and resolves all references reachable from it.
func (l *Loader) Load(path string) (docnode.Node, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}

	root, err := l.file(abs)
	if err != nil {
		return nil, err
	}

	return l.resolve(root, root, abs, nil)
}

func (l *Loader) file(abs string) (docnode.Node, error) {
	if cached, ok := l.cache[abs]; ok {
		return cached, nil
	}

	format, compressed, err := FormatFromPath(abs)
	if err != nil {
		return nil, err
	}

	data, err := ReadFile(abs, compressed, l.MaxSize)
	if err != nil {
		return nil, err
	}

	node, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}

	l.logger.Debug("document loaded", "path", abs, "format", string(format), "bytes", len(data))
	l.cache[abs] = node

	return node, nil
}

// resolve replaces reference mappings below node in place. stack holds
// the references currently being expanded.
func (l *Loader) resolve(node, doc docnode.Node, docPath string, stack []string) (docnode.Node, error) {
	switch typed := node.(type) {
	case *docnode.Mapping:
		if ref, ok := typed.Text(refKey); ok {
			return l.follow(ref, doc, docPath, stack)
		}

		for _, key := range typed.Keys() {
			child, _ := typed.Get(key)

			resolved, err := l.resolve(child, doc, docPath, stack)
			if err != nil {
				return nil, err
			}

			typed.Set(key, resolved)
		}

		return typed, nil
	case *docnode.Sequence:
		for idx, item := range typed.Items {
			resolved, err := l.resolve(item, doc, docPath, stack)
			if err != nil {
				return nil, err
			}

			typed.Items[idx] = resolved
		}

		return typed, nil
	default:
		return node, nil
	}
}

func (l *Loader) follow(ref string, doc docnode.Node, docPath string, stack []string) (docnode.Node, error) {
	filePart, pointer, _ := strings.Cut(ref, "#")

	targetDoc := doc
	targetPath := docPath

	if filePart != "" {
		abs := filePart
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(filepath.Dir(docPath), filePart)
		}

		loaded, err := l.file(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadReference, ref, err)
		}

		targetDoc = loaded
		targetPath = abs
	}

	key := targetPath + "#" + pointer

	for _, seen := range stack {
		if seen == key {
			return nil, fmt.Errorf("%w: %s", ErrReferenceCycle, ref)
		}
	}

	target, err := Pointer(targetDoc, pointer)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadReference, ref, err)
	}

	return l.resolve(target, targetDoc, targetPath, append(stack, key))
}

// Pointer evaluates an RFC 6901 JSON pointer against root.
func Pointer(root docnode.Node, pointer string) (docnode.Node, error) {
	if pointer == "" {
		return root, nil
	}

	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("pointer %q must start with /", pointer)
	}

	current := root

	for _, token := range strings.Split(pointer[1:], "/") {
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")

		switch typed := current.(type) {
		case *docnode.Mapping:
			child, ok := typed.Get(token)
			if !ok {
				return nil, fmt.Errorf("no key %q", token)
			}

			current = child
		case *docnode.Sequence:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= typed.Len() {
				return nil, fmt.Errorf("bad index %q", token)
			}

			current = typed.Items[idx]
		default:
			return nil, fmt.Errorf("cannot descend into %s at %q", current.Kind(), token)
		}
	}

	return current, nil
}
