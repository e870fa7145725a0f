package bootstrap

import (
	"bytes"
	"sync"
)

// Buffer is the append-only output of package-manager operations for one
// request. It is safe for concurrent writers since downloads log from
// several goroutines.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// WriteString appends s.
func (b *Buffer) WriteString(s string) {
	_, _ = b.Write([]byte(s))
}

// Output returns everything written so far.
func (b *Buffer) Output() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
