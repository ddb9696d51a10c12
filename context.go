package arraywire

import (
	"sync"

	"github.com/arraywire/arraywire/schema"
)

// Context is the session object the boundary functions operate against. It
// records the most recent failure so callers using the status-plus-last-error
// convention can retrieve structured detail after a failed call.
//
// A Context is safe for concurrent use, but the last-error slot is shared:
// callers that interleave operations from multiple goroutines on one Context
// should rely on returned errors rather than LastError.
type Context struct {
	mu      sync.Mutex
	lastErr error
}

// NewContext creates an empty session context.
func NewContext() *Context {
	return &Context{}
}

// LastError returns the error recorded by the most recent failed boundary
// call, or nil if the last call succeeded.
func (c *Context) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastErr
}

// LastErrorMessage returns the message of the recorded error and whether one
// is present.
func (c *Context) LastErrorMessage() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastErr == nil {
		return "", false
	}

	return c.lastErr.Error(), true
}

// ClearError discards the recorded error.
func (c *Context) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = nil
}

// saveError records err (possibly nil, clearing the slot) and returns it
// unchanged so boundary functions can record and propagate in one step.
func (c *Context) saveError(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = err

	return err
}

// Array is a read-only handle to an open array, carrying the schema both
// sides of a connection share. Domain serialization derives bounds storage
// shape from it.
type Array struct {
	schema *schema.ArraySchema
}

// NewArray creates an array handle over a validated schema.
func NewArray(s *schema.ArraySchema) (*Array, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &Array{schema: s}, nil
}

// Schema returns the array's schema.
func (a *Array) Schema() *schema.ArraySchema {
	return a.schema
}

// NewDomainBounds allocates non-empty-domain storage sized for this array's
// dimensions.
func (a *Array) NewDomainBounds() schema.DomainBounds {
	return schema.NewDomainBounds(a.schema)
}
