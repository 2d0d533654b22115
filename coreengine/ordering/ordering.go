// Package ordering enforces the relative order of ordered expectations.
//
// A Context hands out sequence numbers in definition order and remembers the
// highest sequence number called so far (the watermark). Expectations sharing
// a group share a sequence number, so they may be called in any order among
// themselves.
package ordering

import (
	"fmt"
	"sync"

	"github.com/doudou/flexmock/coreengine/failure"
)

// Describer renders the calls received so far.
type Describer interface {
	Describe() string
}

// Context is one ordering domain: a single mock, or every mock of a scope.
type Context struct {
	name    string
	history Describer

	mu        sync.Mutex
	next      int
	groups    map[string]int
	watermark int
}

// NewContext creates an ordering domain. history provides the call listing
// of out-of-order diagnostics and may be nil.
func NewContext(name string, history Describer) *Context {
	return &Context{name: name, history: history, groups: make(map[string]int)}
}

// Name returns the domain name.
func (c *Context) Name() string {
	return c.name
}

// Allocate returns the sequence number of a new ordered expectation. A named
// group gets its number on first use and keeps it.
func (c *Context) Allocate(group string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if group != "" {
		if seq, ok := c.groups[group]; ok {
			return seq
		}
	}
	c.next++
	if group != "" {
		c.groups[group] = c.next
	}
	return c.next
}

// Validate checks a call to an expectation holding sequence number seq and,
// on success, raises the watermark to seq.
func (c *Context) Validate(mock, label string, seq int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.watermark {
		msg := fmt.Sprintf("method '%s' called out of order (expected order %d, was %d)", label, seq, c.watermark)
		if c.history != nil {
			msg += "\n" + c.history.Describe()
		}
		return failure.NewCheckFailedError(failure.CheckOrder, mock, msg)
	}
	c.watermark = seq
	return nil
}

// Watermark returns the highest sequence number called so far.
func (c *Context) Watermark() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watermark
}

// Reset forgets every allocation and call.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = 0
	c.watermark = 0
	c.groups = make(map[string]int)
}
