// Package calls holds the call tuple handed over by the interception layer
// and the per-mock history of everything that was received.
package calls

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/doudou/flexmock/coreengine/matching"
)

// Block is the callable a caller may pass along with a call.
type Block func(args ...any) any

// Invocation is one intercepted call.
type Invocation struct {
	Method string
	Args   []any
	Kwargs map[string]any
	Block  Block
	// Original runs the real implementation of a partial mock. It is nil on
	// pure mocks.
	Original func(inv Invocation) (any, error)
}

// BlockPresent reports whether the caller passed a block.
func (inv Invocation) BlockPresent() bool {
	return inv.Block != nil
}

// Normalized returns a copy whose argument list and keyword map are never
// nil, so that they render and match as "no arguments".
func (inv Invocation) Normalized() Invocation {
	if inv.Args == nil {
		inv.Args = []any{}
	}
	if inv.Kwargs == nil {
		inv.Kwargs = map[string]any{}
	}
	return inv
}

func (inv Invocation) String() string {
	n := inv.Normalized()
	return matching.FormatCall(n.Method, n.Args, n.Kwargs)
}

// =============================================================================
// BLOCK REQUIREMENT
// =============================================================================

// BlockRequirement constrains whether a call carries a block.
type BlockRequirement int

const (
	// BlockUnconstrained accepts calls with or without a block.
	BlockUnconstrained BlockRequirement = iota
	// BlockRequired only accepts calls with a block.
	BlockRequired
	// BlockForbidden only accepts calls without a block.
	BlockForbidden
	// BlockOptional is BlockUnconstrained stated explicitly.
	BlockOptional
)

// Accepts reports whether a call with (or without) a block passes.
func (b BlockRequirement) Accepts(present bool) bool {
	switch b {
	case BlockRequired:
		return present
	case BlockForbidden:
		return !present
	default:
		return true
	}
}

// =============================================================================
// RECORDS
// =============================================================================

// Handler is whatever served a recorded call.
type Handler interface {
	Description() string
}

// Record is one received call as kept in a History.
type Record struct {
	ID           string
	Mock         string
	Method       string
	Args         []any
	Kwargs       map[string]any
	BlockPresent bool
	// ServedBy is nil when no expectation matched.
	ServedBy Handler
}

// NewRecord captures inv as received by mock.
func NewRecord(mock string, inv Invocation, servedBy Handler) Record {
	n := inv.Normalized()
	return Record{
		ID:           uuid.NewString(),
		Mock:         mock,
		Method:       n.Method,
		Args:         append([]any{}, n.Args...),
		Kwargs:       copyKwargs(n.Kwargs),
		BlockPresent: n.BlockPresent(),
		ServedBy:     servedBy,
	}
}

func (r Record) String() string {
	return matching.FormatCall(r.Method, r.Args, r.Kwargs)
}

// Matches reports whether the record was a call to method accepted by the
// given patterns. Nil args or kwargs leave that part unconstrained.
func (r Record) Matches(method string, args []any, kwargs map[string]any, block BlockRequirement) bool {
	return r.Method == method &&
		matching.AllMatchArgs(args, r.Args) &&
		matching.AllMatchKwargs(kwargs, r.Kwargs) &&
		block.Accepts(r.BlockPresent)
}

func copyKwargs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// =============================================================================
// HISTORY
// =============================================================================

// History is an append-only list of received calls, in arrival order.
type History struct {
	qualified bool
	mu        sync.RWMutex
	records   []Record
}

// NewHistory creates the history of a single mock.
func NewHistory() *History {
	return &History{}
}

// NewSharedHistory creates a history fed by several mocks. Its description
// prefixes every call with the mock that received it.
func NewSharedHistory() *History {
	return &History{qualified: true}
}

// Append adds a record at the end.
func (h *History) Append(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
}

// Records returns a snapshot of every record.
func (h *History) Records() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Record(nil), h.records...)
}

// Len returns the number of recorded calls.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Count returns how many records match the given call patterns.
func (h *History) Count(method string, args []any, kwargs map[string]any, block BlockRequirement) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, r := range h.records {
		if r.Matches(method, args, kwargs, block) {
			n++
		}
	}
	return n
}

// Reset drops every record.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}

// Describe renders the history for diagnostics.
func (h *History) Describe() string {
	records := h.Records()
	if len(records) == 0 {
		return "No messages have been received\n"
	}
	var b strings.Builder
	b.WriteString("The following messages have been received:\n")
	for _, r := range records {
		b.WriteString("    ")
		if h.qualified && r.Mock != "" {
			b.WriteString(r.Mock + ".")
		}
		b.WriteString(r.String())
		if r.ServedBy != nil {
			b.WriteString(" matched by " + r.ServedBy.Description())
		}
		b.WriteString("\n")
	}
	return b.String()
}
