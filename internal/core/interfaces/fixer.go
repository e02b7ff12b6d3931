package interfaces

import (
	"github.com/CairBin/sc2replay-autofix/pkg/models"
)

// PreparedPatch is a patched replay held in memory, ready to be written
type PreparedPatch interface {
	// SourcePath is the replay the patch was computed from
	SourcePath() string

	// OutputPath is where Write puts the fixed copy
	OutputPath() string

	// Offset is where the signature was found
	Offset() int

	// Write creates the fixed copy. It is the only side effect of a fix.
	Write() error
}

// Fixer defines the contract of the replay patcher as seen by fix tasks
type Fixer interface {
	// Prepare validates path and computes the patch without writing anything.
	// A nil patch with a nil error means the file is already fixed.
	Prepare(path string) (PreparedPatch, error)

	// Report emits the single outcome log line for path and classifies it.
	Report(path, outputPath string, err error) models.Outcome
}

// PathClaimer grants exclusive processing of a replay path across every
// component that may fix it.
type PathClaimer interface {
	// Claim returns a release func and true if nobody else holds path
	Claim(path string) (release func(), ok bool)
}

// OutcomeRecorder persists per-file outcomes
type OutcomeRecorder interface {
	Record(rec *models.FixRecord) error
}
