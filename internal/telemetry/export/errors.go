package export

import (
	"errors"
	"fmt"
)

// ErrClosed is reported for flushes attempted after shutdown.
var ErrClosed = errors.New("exporter is closed")

// TransportError wraps a failed network hand-off. The batch it describes has
// been discarded.
type TransportError struct {
	Exporter string
	Records  int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: export of %d records failed: %v", e.Exporter, e.Records, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
