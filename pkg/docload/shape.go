package docload

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Shape names the expected document family.
type Shape string

// Known shapes.
const (
	ShapeDUH         Shape = "duh"
	ShapeObjectModel Shape = "objectmodel"
)

// ErrShapeInvalid is returned when a document fails its structural check.
var ErrShapeInvalid = errors.New("document shape invalid")

// ShapeIssue is one structural violation.
type ShapeIssue struct {
	Field       string
	Description string
}

// CheckShape validates root against the embedded schema for shape and
// returns every violation found. The error is non-nil only when the
// check itself could not run.
func CheckShape(root docnode.Node, shape Shape) ([]ShapeIssue, error) {
	schemaBytes, err := schemaFS.ReadFile("schemas/" + string(shape) + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("%w: no schema for %q", ErrUnsupportedFormat, shape)
	}

	var input any
	if root != nil {
		input = root.Interface()
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaBytes), gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", shape, err)
	}

	issues := make([]ShapeIssue, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		issues = append(issues, ShapeIssue{Field: verr.Field(), Description: verr.Description()})
	}

	return issues, nil
}

// RequireShape is CheckShape folded into a single error.
func RequireShape(root docnode.Node, shape Shape) error {
	issues, err := CheckShape(root, shape)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		return nil
	}

	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, issue.Field+": "+issue.Description)
	}

	return fmt.Errorf("%w (%s): %s", ErrShapeInvalid, shape, strings.Join(parts, "; "))
}
