// Package id provides ULID generation for run identifiers.
//
// Every invocation of the CLI gets a RunID and every grid it processes gets
// a GridRunID. Both are prefixed ULIDs, so they sort by creation time and
// are easy to tell apart in logs and reports:
//
//	run_01HZX3M8W6K0A9E1Q0V3R7T2BD
//	grid_01HZX3M8W7F5JH2C4N8P6S1YQA
package id

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var ErrBadID = errors.New("malformed id")

// RunID identifies one CLI invocation
type RunID string

// GridRunID identifies one grid pipeline run
type GridRunID string

const (
	RunPrefix  = "run"
	GridPrefix = "grid"
)

// generator hands out ULIDs whose entropy is monotonic within a
// millisecond, so ids minted in a tight loop still sort in order.
type generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var ids = &generator{entropy: ulid.Monotonic(rand.Reader, 0)}

func (g *generator) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return prefix + "_" + ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// NewRunID generates a new invocation id
func NewRunID() RunID { return RunID(ids.next(RunPrefix)) }

// NewGridRunID generates a new grid run id
func NewGridRunID() GridRunID { return GridRunID(ids.next(GridPrefix)) }

func (id RunID) String() string     { return string(id) }
func (id GridRunID) String() string { return string(id) }

// Time is when the id was minted, to the millisecond. A malformed id
// yields the zero time.
func (id RunID) Time() time.Time {
	u, err := parse(RunPrefix, string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

// ParseRunID checks that s is a run id as written into reports.
func ParseRunID(s string) (RunID, error) {
	if _, err := parse(RunPrefix, s); err != nil {
		return "", err
	}
	return RunID(s), nil
}

func parse(prefix, s string) (ulid.ULID, error) {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return ulid.ULID{}, fmt.Errorf("%w: %q lacks %s_ prefix", ErrBadID, s, prefix)
	}
	u, err := ulid.ParseStrict(rest)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("%w: %q: %w", ErrBadID, s, err)
	}
	return u, nil
}
