// Package generate runs the extraction and rendering pipeline: load the
// input documents, extract a device model in a fresh session, name every
// field and render the requested C artifacts.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/regmetal/pkg/docload"
	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
	"github.com/Sumatoshi-tech/regmetal/pkg/extract"
	"github.com/Sumatoshi-tech/regmetal/pkg/naming"
	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
	"github.com/Sumatoshi-tech/regmetal/pkg/render"
)

// Mode selects which artifacts a run renders.
type Mode string

// Pipeline modes.
const (
	// ModeHeader renders the base header from an object model.
	ModeHeader Mode = "header"
	// ModeDriver renders the device header and driver source from a DUH document.
	ModeDriver Mode = "driver"
	// ModeAll renders all three from the object model merged with the DUH layout.
	ModeAll Mode = "generate"
)

// ArtifactKind identifies a rendered file.
type ArtifactKind string

// Artifact kinds.
const (
	KindBaseHeader   ArtifactKind = "base-header"
	KindDeviceHeader ArtifactKind = "device-header"
	KindDriverSource ArtifactKind = "driver-source"
)

// Pipeline errors.
var (
	ErrMissingInput = errors.New("missing input document")
	ErrNoVendor     = errors.New("vendor is required")
	ErrUnknownMode  = errors.New("unknown generation mode")
)

// DefaultDeviceIndex is the instance number baked into device header names.
const DefaultDeviceIndex = 0

// Options configures one run.
type Options struct {
	Vendor      string
	Device      string
	MacroPrefix string
	// DeviceIndex numbers the device header and its include (<vendor>_<dev><index>.h).
	DeviceIndex int
}

// Sources are the parsed input documents. Either may be nil depending on mode.
type Sources struct {
	ObjectModel docnode.Node
	DUH         docnode.Node
}

// Artifact is one rendered file. RelPath is relative to the BSP directory
// for the base header and to the driver tree for the others.
type Artifact struct {
	Kind    ArtifactKind
	RelPath string
	Content string
}

// Result is the outcome of a run.
type Result struct {
	Model      *regmodel.DeviceModel
	Names      []naming.FieldNames
	Artifacts  []Artifact
	Collisions []naming.Collision
	Stats      extract.SessionStats
}

// Artifact returns the artifact of the given kind.
func (r *Result) Artifact(kind ArtifactKind) (Artifact, bool) {
	for _, artifact := range r.Artifacts {
		if artifact.Kind == kind {
			return artifact, true
		}
	}

	return Artifact{}, false
}

// Pipeline runs generations. It holds no per-run state, so one pipeline
// may serve concurrent runs.
type Pipeline struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.GenerationMetrics
}

// NewPipeline creates a pipeline. Nil logger, tracer or metrics disable
// the respective concern.
func NewPipeline(logger *slog.Logger, tracer trace.Tracer, metrics *observability.GenerationMetrics) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	return &Pipeline{logger: logger, tracer: tracer, metrics: metrics}
}

// LoadSources parses the documents at the given paths. Empty paths are skipped.
func LoadSources(loader *docload.Loader, objectModelPath, duhPath string) (Sources, error) {
	var sources Sources

	if objectModelPath != "" {
		doc, err := loader.Load(objectModelPath)
		if err != nil {
			return Sources{}, fmt.Errorf("load object model: %w", err)
		}

		sources.ObjectModel = doc
	}

	if duhPath != "" {
		doc, err := loader.Load(duhPath)
		if err != nil {
			return Sources{}, fmt.Errorf("load duh document: %w", err)
		}

		sources.DUH = doc
	}

	return sources, nil
}

// Run executes one generation in mode.
func (p *Pipeline) Run(ctx context.Context, mode Mode, opts Options, sources Sources) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "regmetal.generate",
		trace.WithAttributes(
			attribute.String("regmetal.mode", string(mode)),
			attribute.String("regmetal.device", opts.Device),
		),
	)
	defer span.End()

	ctx = observability.WithRun(ctx, opts.Device, opts.Vendor)
	start := time.Now()

	if p.metrics != nil {
		defer p.metrics.TrackInflight(ctx, string(mode))()
	}

	result, err := p.run(ctx, mode, opts, sources)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.ErrorContext(ctx, "generation failed", "mode", string(mode), "error", err)
	}

	if p.metrics != nil {
		p.metrics.RecordRun(ctx, string(mode), status, time.Since(start))

		if result != nil {
			p.metrics.RecordModel(ctx, string(mode), len(result.Names), len(result.Collisions))
		}
	}

	return result, err
}

func (p *Pipeline) run(ctx context.Context, mode Mode, opts Options, sources Sources) (*Result, error) {
	if strings.TrimSpace(opts.Vendor) == "" {
		return nil, ErrNoVendor
	}

	session := extract.NewSession(p.logger)

	model, err := p.Model(ctx, session, mode, opts, sources)
	if err != nil {
		return nil, err
	}

	_, span := p.tracer.Start(ctx, "regmetal.render")
	defer span.End()

	engine := naming.NewEngine(model.Device, nil)
	input := render.Annotate(model, engine)
	renderer := render.New(opts.Vendor, opts.MacroPrefix)

	result := &Result{
		Model:      model,
		Names:      input.Names,
		Collisions: engine.Table().Collisions(),
		Stats:      session.Stats(),
	}

	for _, collision := range result.Collisions {
		p.logger.WarnContext(ctx, "macro name collision", "name", collision.Name, "count", collision.Count)
	}

	paths := Paths(opts.Vendor, model.Device, opts.DeviceIndex)

	if mode == ModeHeader || mode == ModeAll {
		result.Artifacts = append(result.Artifacts, Artifact{
			Kind: KindBaseHeader, RelPath: paths.BaseHeader, Content: renderer.BaseHeader(input),
		})
	}

	if mode == ModeDriver || mode == ModeAll {
		result.Artifacts = append(result.Artifacts,
			Artifact{Kind: KindDeviceHeader, RelPath: paths.DeviceHeader, Content: renderer.DeviceHeader(input, opts.DeviceIndex)},
			Artifact{Kind: KindDriverSource, RelPath: paths.DriverSource, Content: renderer.DriverSource(input, opts.DeviceIndex)},
		)
	}

	span.SetAttributes(
		attribute.Int("regmetal.fields", len(result.Names)),
		attribute.Int("regmetal.collisions", len(result.Collisions)),
		attribute.Int("regmetal.artifacts", len(result.Artifacts)),
	)

	p.logger.DebugContext(ctx, "rendered",
		"instances", len(model.Instances), "fields", len(result.Names), "artifacts", len(result.Artifacts))

	return result, nil
}

// Model extracts the device model for mode using session. ModeAll merges
// the object model's placement with the DUH register layout.
func (p *Pipeline) Model(ctx context.Context, session *extract.Session, mode Mode, opts Options, sources Sources) (*regmodel.DeviceModel, error) {
	ctx, span := p.tracer.Start(ctx, "regmetal.extract")
	defer span.End()

	var (
		layoutModel *regmodel.DeviceModel
		placement   *regmodel.DeviceModel
	)

	device := opts.Device

	switch mode {
	case ModeHeader, ModeDriver, ModeAll:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if mode == ModeDriver || mode == ModeAll {
		if sources.DUH == nil {
			return nil, fmt.Errorf("%w: duh document", ErrMissingInput)
		}

		if err := docload.RequireShape(sources.DUH, docload.ShapeDUH); err != nil {
			return nil, err
		}

		duh, err := extract.DuhAdapter{Device: device}.Extract(ctx, session, sources.DUH)
		if err != nil {
			return nil, fmt.Errorf("extract duh: %w", err)
		}

		layoutModel = duh
		device = duh.Device
	}

	if mode == ModeHeader || mode == ModeAll {
		if sources.ObjectModel == nil {
			return nil, fmt.Errorf("%w: object model", ErrMissingInput)
		}

		if err := docload.RequireShape(sources.ObjectModel, docload.ShapeObjectModel); err != nil {
			return nil, err
		}

		om, err := extract.ObjectModelAdapter{Device: device}.Extract(ctx, session, sources.ObjectModel)
		if err != nil {
			return nil, fmt.Errorf("extract object model: %w", err)
		}

		placement = om
	}

	model := placement
	if model == nil {
		model = layoutModel
	} else if layoutModel != nil {
		model = placement.WithLayout(layoutModel)
	}

	span.SetAttributes(attribute.Int("regmetal.instances", len(model.Instances)))
	p.logger.DebugContext(ctx, "extracted", "instances", len(model.Instances),
		"registers", len(model.Registers))

	return model, nil
}

// OutputPaths are the relative artifact locations.
type OutputPaths struct {
	BaseHeader   string
	DeviceHeader string
	DriverSource string
}

// Paths returns the artifact locations for device: the base header under
// bsp_<dev>/ in the BSP tree, the device header under <dev>/ and the
// driver source at the top of the driver tree.
func Paths(vendor, device string, index int) OutputPaths {
	dev := strings.ToLower(naming.Identifier(device))
	stem := vendor + "_" + dev

	return OutputPaths{
		BaseHeader:   path.Join("bsp_"+dev, stem+".h"),
		DeviceHeader: path.Join(dev, fmt.Sprintf("%s%d.h", stem, index)),
		DriverSource: stem + ".c",
	}
}
