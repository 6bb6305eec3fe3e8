// Package bsp places rendered artifacts on disk: the base header in the
// BSP tree, the device header and driver source in the driver tree. Files
// that already exist are kept unless overwriting is enabled.
package bsp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/regmetal/pkg/generate"
	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
)

// Outcome is what happened to one output file.
type Outcome string

// File outcomes.
const (
	OutcomeCreated     Outcome = "created"
	OutcomeOverwritten Outcome = "overwritten"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeSkipped     Outcome = "skipped"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrNoTargetDir is returned when an artifact has no configured directory.
var ErrNoTargetDir = errors.New("no output directory for artifact")

// FileResult reports one written or skipped file.
type FileResult struct {
	Path    string
	Kind    generate.ArtifactKind
	Outcome Outcome
	// Diff against the existing file, set for skipped files when diffs are enabled.
	Diff string
}

// Writer writes artifacts under BSPDir and MetalDir.
type Writer struct {
	BSPDir   string
	MetalDir string
	// Overwrite replaces existing files. Otherwise they are left alone and
	// a notice goes to Notices.
	Overwrite bool
	// ShowDiff computes a diff for every file left alone.
	ShowDiff bool
	// Notices receives "<path> exists, not creating." lines. Nil discards them.
	Notices io.Writer

	logger  *slog.Logger
	metrics *observability.GenerationMetrics
}

// NewWriter creates a writer. Nil logger or metrics disable the concern.
func NewWriter(bspDir, metalDir string, logger *slog.Logger, metrics *observability.GenerationMetrics) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Writer{BSPDir: bspDir, MetalDir: metalDir, Notices: io.Discard, logger: logger, metrics: metrics}
}

// Target returns the destination path of artifact.
func (w *Writer) Target(artifact generate.Artifact) (string, error) {
	root := w.MetalDir
	if artifact.Kind == generate.KindBaseHeader {
		root = w.BSPDir
	}

	if root == "" {
		return "", fmt.Errorf("%w: %s", ErrNoTargetDir, artifact.Kind)
	}

	return filepath.Join(root, filepath.FromSlash(artifact.RelPath)), nil
}

// Write places every artifact and reports each outcome. It stops at the
// first I/O failure.
func (w *Writer) Write(ctx context.Context, artifacts []generate.Artifact) ([]FileResult, error) {
	results := make([]FileResult, 0, len(artifacts))

	for _, artifact := range artifacts {
		result, err := w.writeOne(artifact)
		if err != nil {
			return results, err
		}

		if w.metrics != nil {
			w.metrics.RecordFile(ctx, string(result.Outcome))
		}

		w.logger.DebugContext(ctx, "output file", "path", result.Path, "outcome", string(result.Outcome))
		results = append(results, result)
	}

	return results, nil
}

func (w *Writer) writeOne(artifact generate.Artifact) (FileResult, error) {
	target, err := w.Target(artifact)
	if err != nil {
		return FileResult{}, err
	}

	result := FileResult{Path: target, Kind: artifact.Kind}

	existing, readErr := os.ReadFile(target)

	switch {
	case readErr == nil && string(existing) == artifact.Content:
		result.Outcome = OutcomeUnchanged

		return result, nil
	case readErr == nil && !w.Overwrite:
		result.Outcome = OutcomeSkipped

		if w.ShowDiff {
			result.Diff = LineDiff(string(existing), artifact.Content)
		}

		if w.Notices != nil {
			fmt.Fprintf(w.Notices, "%s exists, not creating.\n", target)
		}

		return result, nil
	case readErr == nil:
		result.Outcome = OutcomeOverwritten
	case errors.Is(readErr, os.ErrNotExist):
		result.Outcome = OutcomeCreated
	default:
		return FileResult{}, fmt.Errorf("read %s: %w", target, readErr)
	}

	mkdirErr := os.MkdirAll(filepath.Dir(target), dirPerm)
	if mkdirErr != nil {
		return FileResult{}, fmt.Errorf("create directory for %s: %w", target, mkdirErr)
	}

	writeErr := os.WriteFile(target, []byte(artifact.Content), filePerm)
	if writeErr != nil {
		return FileResult{}, fmt.Errorf("write %s: %w", target, writeErr)
	}

	return result, nil
}
