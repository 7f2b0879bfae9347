package editor

import (
	"errors"
	"fmt"
)

// ErrSaveInFlight is returned by Save while another save of the same session runs.
var ErrSaveInFlight = errors.New("editor: save already in flight")

// ErrNotLoaded is returned by operations that need Load to have completed.
var ErrNotLoaded = errors.New("editor: session not loaded")

// PersistenceError wraps a failure of the injected save function. Local edits
// are kept when it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("editor %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// LoadError reports that the stored document could not be fetched or decoded.
// The session falls back to empty defaults and stays usable.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("editor load failed, using defaults: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
