package reader

import (
	"sync"

	"github.com/hivetap/hivetap/pkg/types"
)

// diagCollector accumulates recoverable conditions noticed during open and
// traversal. Collection is opt-in; a nil collector makes recordDiag a no-op
// so the hot path pays nothing when diagnostics are off.
type diagCollector struct {
	mu      sync.Mutex
	entries []types.Diagnostic
}

func (c *diagCollector) record(d types.Diagnostic) {
	c.mu.Lock()
	c.entries = append(c.entries, d)
	c.mu.Unlock()
}

func (c *diagCollector) snapshot() []types.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Diagnostic, len(c.entries))
	copy(out, c.entries)
	return out
}

func (r *reader) recordDiag(d types.Diagnostic) {
	if r.diag != nil {
		r.diag.record(d)
	}
}

// Diagnostics returns conditions recorded so far. Nil unless the reader was
// opened with CollectDiagnostics.
func (r *reader) Diagnostics() []types.Diagnostic {
	if r.diag == nil {
		return nil
	}
	return r.diag.snapshot()
}
