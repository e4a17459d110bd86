// Package id generates request identifiers.
//
// Request IDs are ULIDs written random part first: the 16 random characters
// lead, so the eight-character tag the log translator puts in front of every
// message body differs between requests, and the trailing 10 characters keep
// the creation time.
package id

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MaxRequestIDLen bounds client-supplied request IDs.
const MaxRequestIDLen = 128

const (
	ulidLen = 26
	timeLen = 10
)

// ErrMalformed is returned by Parse for strings that are not generated
// request IDs.
var ErrMalformed = errors.New("id: malformed request id")

// RequestID identifies one inbound request.
type RequestID string

func (id RequestID) String() string { return string(id) }

// Generator generates request IDs.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
	now       func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand. Entropy is drawn
// fresh for every ID; monotonic entropy would keep the leading characters
// equal within one millisecond.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy, now: time.Now}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// RequestID creates a request ID.
func (g *Generator) RequestID() RequestID {
	s := g.Generate().String()
	return RequestID(s[timeLen:] + s[:timeLen])
}

// NewRequestID generates a request ID with the default generator.
func NewRequestID() RequestID {
	return Default().RequestID()
}

// FromHeader accepts a client-supplied request ID when it is non-empty, not
// too long and printable ASCII. Otherwise a new ID is generated.
func FromHeader(v string) RequestID {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > MaxRequestIDLen {
		return NewRequestID()
	}
	for i := 0; i < len(v); i++ {
		if v[i] < 0x21 || v[i] > 0x7e {
			return NewRequestID()
		}
	}
	return RequestID(v)
}

// Parse recovers the ULID of a generated request ID.
func Parse(id string) (ulid.ULID, error) {
	if len(id) != ulidLen {
		return ulid.ULID{}, ErrMalformed
	}
	return ulid.Parse(id[ulidLen-timeLen:] + id[:ulidLen-timeLen])
}

// IsValid reports whether id was produced by a Generator.
func IsValid(id string) bool {
	_, err := Parse(id)
	return err == nil
}

// Timestamp extracts the creation time of a generated request ID.
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
