package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/regmetal/pkg/docload"
	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
	"github.com/Sumatoshi-tech/regmetal/pkg/extract"
	"github.com/Sumatoshi-tech/regmetal/pkg/generate"
	"github.com/Sumatoshi-tech/regmetal/pkg/naming"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
	"github.com/Sumatoshi-tech/regmetal/pkg/render"
)

// Tool names.
const (
	ToolNameRender   = "regmetal_render"
	ToolNameInspect  = "regmetal_inspect"
	ToolNameValidate = "regmetal_validate"
)

// MaxInlineDocumentBytes bounds inline document arguments.
const MaxInlineDocumentBytes = 4 << 20

const defaultVendor = "sifive"

// Tool input errors.
var (
	ErrNoDocument       = errors.New("either a path or inline content is required")
	ErrBothForms        = errors.New("give a path or inline content, not both")
	ErrDocumentTooLarge = errors.New("inline document exceeds maximum size")
	ErrUnknownShape     = errors.New("shape must be duh or objectmodel")
)

// DocumentInput names a document by path or carries it inline.
type DocumentInput struct {
	Path    string `json:"path,omitempty"    jsonschema:"path to a JSON, JSON5 or YAML file (optionally .lz4)"`
	Content string `json:"content,omitempty" jsonschema:"inline document text"`
	Format  string `json:"format,omitempty"  jsonschema:"format of inline content: json (default), json5 or yaml"`
}

// GenerateInput is the input of the render and inspect tools.
type GenerateInput struct {
	ObjectModel *DocumentInput `json:"object_model,omitempty" jsonschema:"object model document"`
	DUH         *DocumentInput `json:"duh,omitempty"          jsonschema:"DUH component document"`
	Device      string         `json:"device,omitempty"       jsonschema:"device name, required without a DUH document"`
	Vendor      string         `json:"vendor,omitempty"       jsonschema:"vendor prefix for file names and guards (default sifive)"`
	MacroPrefix *string        `json:"macro_prefix,omitempty" jsonschema:"prefix of placement and field macros (default none)"`
	Mode        string         `json:"mode,omitempty"         jsonschema:"header, driver or generate (default: inferred from the documents given)"`
}

// ValidateInput is the input of the validate tool.
type ValidateInput struct {
	Document DocumentInput `json:"document" jsonschema:"document to check"`
	Shape    string        `json:"shape"    jsonschema:"duh or objectmodel"`
}

// ToolOutput wraps structured tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// RenderedFile is one artifact in a render result.
type RenderedFile struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// InspectResult is the inspect tool's payload.
type InspectResult struct {
	Model      *regmodel.DeviceModel `json:"model"`
	Names      []FieldName           `json:"names"`
	Collisions []naming.Collision    `json:"collisions,omitempty"`
	Stats      extract.SessionStats  `json:"stats"`
}

// FieldName pairs a field with the macro names emitted for it.
type FieldName struct {
	Field   string   `json:"field"`
	Group   string   `json:"group,omitempty"`
	Emitted []string `json:"emitted"`
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}

func (s *Server) handleRender(ctx context.Context, _ *mcpsdk.CallToolRequest, input GenerateInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	result, err := s.generate(ctx, input)
	if err != nil {
		return errorResult(err)
	}

	files := make([]RenderedFile, len(result.Artifacts))
	for idx, artifact := range result.Artifacts {
		files[idx] = RenderedFile{Kind: string(artifact.Kind), Path: artifact.RelPath, Content: artifact.Content}
	}

	return jsonResult(files)
}

func (s *Server) handleInspect(ctx context.Context, _ *mcpsdk.CallToolRequest, input GenerateInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	result, err := s.generate(ctx, input)
	if err != nil {
		return errorResult(err)
	}

	names := make([]FieldName, len(result.Names))
	for idx, fieldNames := range result.Names {
		names[idx] = FieldName{
			Field:   fieldNames.Field.Name,
			Group:   fieldNames.Field.GroupName,
			Emitted: fieldNames.Emitted(),
		}
	}

	return jsonResult(InspectResult{
		Model:      result.Model,
		Names:      names,
		Collisions: result.Collisions,
		Stats:      result.Stats,
	})
}

func (s *Server) handleValidate(_ context.Context, _ *mcpsdk.CallToolRequest, input ValidateInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	shape := docload.Shape(strings.ToLower(input.Shape))
	if shape != docload.ShapeDUH && shape != docload.ShapeObjectModel {
		return errorResult(fmt.Errorf("%w: %q", ErrUnknownShape, input.Shape))
	}

	doc, err := s.document(&input.Document)
	if err != nil {
		return errorResult(err)
	}

	issues, err := docload.CheckShape(doc, shape)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string]any{"valid": len(issues) == 0, "issues": issues})
}

func (s *Server) generate(ctx context.Context, input GenerateInput) (*generate.Result, error) {
	var (
		sources generate.Sources
		err     error
	)

	if input.ObjectModel != nil {
		sources.ObjectModel, err = s.document(input.ObjectModel)
		if err != nil {
			return nil, fmt.Errorf("object model: %w", err)
		}
	}

	if input.DUH != nil {
		sources.DUH, err = s.document(input.DUH)
		if err != nil {
			return nil, fmt.Errorf("duh: %w", err)
		}
	}

	opts := generate.Options{
		Vendor:      input.Vendor,
		Device:      input.Device,
		MacroPrefix: render.DefaultMacroPrefix,
		DeviceIndex: generate.DefaultDeviceIndex,
	}

	if opts.Vendor == "" {
		opts.Vendor = defaultVendor
	}

	if input.MacroPrefix != nil {
		opts.MacroPrefix = *input.MacroPrefix
	}

	return s.pipeline.Run(ctx, inferMode(input.Mode, sources), opts, sources)
}

func inferMode(mode string, sources generate.Sources) generate.Mode {
	if mode != "" {
		return generate.Mode(mode)
	}

	switch {
	case sources.ObjectModel != nil && sources.DUH != nil:
		return generate.ModeAll
	case sources.DUH != nil:
		return generate.ModeDriver
	default:
		return generate.ModeHeader
	}
}

func (s *Server) document(input *DocumentInput) (docnode.Node, error) {
	switch {
	case input.Path != "" && input.Content != "":
		return nil, ErrBothForms
	case input.Path != "":
		loader := docload.NewLoader(s.logger)
		loader.MaxSize = s.maxInput

		return loader.Load(input.Path)
	case input.Content != "":
		if len(input.Content) > MaxInlineDocumentBytes {
			return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooLarge, len(input.Content), MaxInlineDocumentBytes)
		}

		format := docload.Format(strings.ToLower(input.Format))
		if format == "" {
			format = docload.FormatJSON
		}

		return docload.Parse([]byte(input.Content), format)
	default:
		return nil, ErrNoDocument
	}
}
