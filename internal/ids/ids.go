// Package ids generates run and client identifiers used to namespace
// audit journals, snapshot files, and client-side order ids.
package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// NewRunID returns a fresh run identifier, e.g. for namespacing the
// output directory of a single backtest invocation.
func NewRunID() string {
	return uuid.NewString()
}

// ClientIDGenerator issues client_id values that are unique for the
// lifetime of one process run, per spec: "client_id is unique per
// process run". A monotonic counter is sufficient and, unlike a UUID,
// keeps audit journals compact and ordered.
type ClientIDGenerator struct {
	prefix string
	next   uint64
}

// NewClientIDGenerator creates a generator namespaced by prefix, so
// multiple strategies in the same process never collide.
func NewClientIDGenerator(prefix string) *ClientIDGenerator {
	return &ClientIDGenerator{prefix: prefix}
}

// Next returns the next client id in sequence.
func (g *ClientIDGenerator) Next() string {
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next)
}
