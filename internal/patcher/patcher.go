// Package patcher repairs SC2Replay files carrying the known header corruption.
//
// The fix is a same-length substitution of an 8-byte signature found in the
// first 128 bytes of the file. The patched bytes go to a sibling file named
// <stem>-FIXED<ext>; the original replay is never touched.
package patcher

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/CairBin/sc2replay-autofix/internal/core/interfaces"
	pperrors "github.com/CairBin/sc2replay-autofix/pkg/errors"
	"github.com/CairBin/sc2replay-autofix/pkg/logger"
	"github.com/CairBin/sc2replay-autofix/pkg/models"
	"go.uber.org/zap"
)

const (
	// Extension is the replay file extension, matched case-sensitively
	Extension = ".SC2Replay"

	// FixedMarker is inserted before the extension of every output file.
	// Any file whose name contains it is treated as already fixed.
	FixedMarker = "-FIXED"

	// ScanLimit bounds the signature search to the start of the file
	ScanLimit = 128
)

var (
	// Signature is the corrupted byte sequence
	Signature = [8]byte{0x09, 0x00, 0x04, 0x09, 0x00, 0x06, 0x09, 0x00}

	// Replacement is written over the first occurrence of Signature
	Replacement = [8]byte{0x09, 0x0A, 0x04, 0x09, 0x00, 0x06, 0x09, 0x1E}
)

// Patcher applies the replay fix. It holds no per-file state and is safe for
// concurrent use.
type Patcher struct {
	logger   *zap.Logger
	recorder interfaces.OutcomeRecorder
	claimer  interfaces.PathClaimer
	source   models.Source

	skipExisting bool
}

// Option configures a Patcher
type Option func(*Patcher)

// WithRecorder persists every reported outcome except already-fixed skips
func WithRecorder(rec interfaces.OutcomeRecorder) Option {
	return func(p *Patcher) {
		p.recorder = rec
	}
}

// WithSource sets the source stamped on recorded outcomes
func WithSource(source models.Source) Option {
	return func(p *Patcher) {
		p.source = source
	}
}

// WithSkipExisting treats a replay whose -FIXED sibling already exists as
// already fixed, so repeated passes leave earlier outputs untouched
func WithSkipExisting() Option {
	return func(p *Patcher) {
		p.skipExisting = true
	}
}

// WithClaimer makes directory passes claim each replay before fixing it and
// skip replays claimed by someone else
func WithClaimer(c interfaces.PathClaimer) Option {
	return func(p *Patcher) {
		p.claimer = c
	}
}

// New creates a Patcher that logs outcomes to log
func New(log *zap.Logger, opts ...Option) *Patcher {
	p := &Patcher{
		logger: logger.OrNop(log).With(zap.String("component", "patcher")),
		source: models.SourceBatch,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Derive returns a copy of p with opts applied
func (p *Patcher) Derive(opts ...Option) *Patcher {
	cp := *p
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Patch is a fixed replay held in memory
type Patch struct {
	source string
	output string
	offset int
	data   []byte
}

// SourcePath returns the replay the patch was computed from
func (p *Patch) SourcePath() string { return p.source }

// OutputPath returns the -FIXED sibling path
func (p *Patch) OutputPath() string { return p.output }

// Offset returns where the signature was found
func (p *Patch) Offset() int { return p.offset }

// Bytes returns the patched buffer
func (p *Patch) Bytes() []byte { return p.data }

// Write creates (or truncates) the output file with the patched buffer
func (p *Patch) Write() error {
	if err := os.WriteFile(p.output, p.data, 0644); err != nil {
		return pperrors.NewIOError("cannot create file", p.output, err)
	}
	return nil
}

// IsReplay reports whether path carries the replay extension
func IsReplay(path string) bool {
	return filepath.Ext(path) == Extension
}

// IsFixed reports whether the file name carries the -FIXED marker
func IsFixed(path string) bool {
	return strings.Contains(filepath.Base(path), FixedMarker)
}

// OutputPath returns <dir>/<stem>-FIXED<ext> for path
func OutputPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(filepath.Dir(path), stem+FixedMarker+ext)
}

// FindSignature returns the offset of the first Signature within the first
// ScanLimit bytes of data, or -1.
func FindSignature(data []byte) int {
	window := data
	if len(window) > ScanLimit {
		window = window[:ScanLimit]
	}
	return bytes.Index(window, Signature[:])
}

// PatchBytes replaces the first in-window Signature in data, in place.
// It returns the offset, or -1 if data was left untouched.
func PatchBytes(data []byte) int {
	offset := FindSignature(data)
	if offset < 0 {
		return -1
	}
	copy(data[offset:offset+len(Replacement)], Replacement[:])
	return offset
}

// Prepare validates path, reads it and computes the patch in memory.
// Already-fixed files yield (nil, nil). Nothing is logged.
func (p *Patcher) Prepare(path string) (interfaces.PreparedPatch, error) {
	if IsFixed(path) {
		return nil, nil
	}
	if !IsReplay(path) {
		return nil, pperrors.NewInvalidFormatError(path)
	}
	if p.skipExisting {
		if _, err := os.Stat(OutputPath(path)); err == nil {
			return nil, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pperrors.NewIOError("cannot open file", path, err)
	}

	offset := PatchBytes(data)
	if offset < 0 {
		return nil, pperrors.NewPatternNotFoundError(path)
	}

	return &Patch{
		source: path,
		output: OutputPath(path),
		offset: offset,
		data:   data,
	}, nil
}

// Fix repairs path and returns the output path. An already-fixed file returns
// ("", nil) and produces nothing. Exactly one outcome line is logged.
func (p *Patcher) Fix(path string) (string, error) {
	patch, err := p.Prepare(path)
	if err != nil {
		p.Report(path, "", err)
		return "", err
	}
	if patch == nil {
		p.Report(path, "", nil)
		return "", nil
	}

	if err := patch.Write(); err != nil {
		p.Report(path, "", err)
		return "", err
	}

	p.Report(path, patch.OutputPath(), nil)
	return patch.OutputPath(), nil
}

// Classify maps a fix result to its outcome
func Classify(outputPath string, err error) models.Outcome {
	switch {
	case err == nil && outputPath == "":
		return models.OutcomeAlreadyFixed
	case err == nil:
		return models.OutcomeFixed
	case pperrors.IsPatternNotFound(err):
		return models.OutcomePatternNotFound
	case pperrors.IsInvalidFormat(err):
		return models.OutcomeInvalidFormat
	default:
		return models.OutcomeIOFailure
	}
}

// Report logs the outcome line for path, records it, and returns the outcome
func (p *Patcher) Report(path, outputPath string, err error) models.Outcome {
	outcome := Classify(outputPath, err)
	file := zap.String("file", filepath.Base(path))

	switch outcome {
	case models.OutcomeAlreadyFixed:
		p.logger.Debug("Replay already fixed, skipping", file, logger.OutcomeField(logger.OutcomeSkipped))
	case models.OutcomeFixed:
		p.logger.Info("Replay fixed", file,
			zap.String("output", outputPath),
			logger.OutcomeField(logger.OutcomeSuccess),
		)
	case models.OutcomePatternNotFound:
		p.logger.Info("Signature not found, replay probably works", file,
			logger.OutcomeField(logger.OutcomePatternNotFound),
		)
	case models.OutcomeInvalidFormat:
		p.logger.Warn("Not a replay file", zap.String("path", path),
			logger.OutcomeField(logger.OutcomeInvalidFormat),
		)
	default:
		p.logger.Error("Replay fix failed", zap.String("path", path),
			zap.Error(err),
			logger.OutcomeField(logger.OutcomeIOFailure),
		)
	}

	if p.recorder != nil && outcome != models.OutcomeAlreadyFixed {
		rec := models.NewFixRecord(p.source, path, outcome).WithError(err)
		rec.OutputPath = outputPath
		if rerr := p.recorder.Record(rec); rerr != nil {
			p.logger.Warn("Failed to record fix outcome", zap.String("path", path), zap.Error(rerr))
		}
	}

	return outcome
}
