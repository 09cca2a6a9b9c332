// Package resume implements the resume-strategy selector (C3): given an
// engine version and the configured preference, it picks one of
// resume_after, start_after, or start_at_operation_time for opening a
// change stream.
//
// start_after gracefully reopens when a resume token is no longer in the
// oplog; resume_after errors in that case. Older engines lack
// start_after entirely, hence the version gating below.
package resume

import (
	"fmt"

	"github.com/MeltanoLabs/tap-mongodb/internal/model"
)

// Strategy is the resume option the log-based reader (C6) should pass
// to collection.Watch.
type Strategy string

const (
	ResumeAfter          Strategy = "resume_after"
	StartAfter           Strategy = "start_after"
	StartAtOperationTime Strategy = "start_at_operation_time"
)

// Preference is the user-configured change_stream_resume_strategy.
type Preference string

const (
	PreferResumeAfter          Preference = "resume_after"
	PreferStartAfter           Preference = "start_after"
	PreferStartAtOperationTime Preference = "start_at_operation_time"
)

var minSupportedVersion = model.EngineVersion{Major: 3, Minor: 6}
var startAfterMinVersion = model.EngineVersion{Major: 4, Minor: 2}
var operationTimeMinVersion = model.EngineVersion{Major: 4, Minor: 0}

// ErrInvalidConfig is returned for an unrecognized preference.
var ErrInvalidConfig = fmt.Errorf("unsupported change_stream_resume_strategy setting")

// ErrUnsupportedEngine is returned when the engine version predates 3.6,
// the oldest version change streams are available on.
var ErrUnsupportedEngine = fmt.Errorf("unsupported engine version for change streams (requires >= 3.6)")

// Select implements the decision table in spec.md §4.3.
func Select(version model.EngineVersion, preference Preference) (Strategy, error) {
	switch preference {
	case PreferResumeAfter, PreferStartAfter, PreferStartAtOperationTime:
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidConfig, preference)
	}

	if version.Less(minSupportedVersion) {
		return "", fmt.Errorf("%w: got %d.%d", ErrUnsupportedEngine, version.Major, version.Minor)
	}

	if version.AtLeast(startAfterMinVersion) && preference == PreferStartAfter {
		return StartAfter, nil
	}
	if version.AtLeast(operationTimeMinVersion) && preference == PreferStartAtOperationTime {
		return StartAtOperationTime, nil
	}
	return ResumeAfter, nil
}
