// Package paint provides paint collaborators for the cascade scheduler.
//
// Buffer keeps the last content painted for every node and composes the
// text of a whole subtree on demand by filling child slots with the
// children's own painted content.
package paint

import (
	"strings"
	"sync"

	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/template"
)

// Buffer is an in-memory painter. It is safe for concurrent use; readers
// on other goroutines should take tree snapshots through the scheduler's
// run subscription.
type Buffer struct {
	mu      sync.Mutex
	content map[uint64]template.Content
	paints  map[uint64]int
	total   int
}

var (
	_ cascade.Painter = (*Buffer)(nil)
	_ cascade.Eraser  = (*Buffer)(nil)
)

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		content: make(map[uint64]template.Content),
		paints:  make(map[uint64]int),
	}
}

// Paint stores the content of n.
func (b *Buffer) Paint(n *cascade.Node, content template.Content) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content[n.ID()] = content
	b.paints[n.ID()]++
	b.total++
}

// Erase drops the content of a torn-down node.
func (b *Buffer) Erase(n *cascade.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.content, n.ID())
}

// Paints returns how many paints happened in total.
func (b *Buffer) Paints() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// PaintsOf returns how often n was painted.
func (b *Buffer) PaintsOf(n *cascade.Node) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paints[n.ID()]
}

// Painted reports whether n currently has content.
func (b *Buffer) Painted(n *cascade.Node) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.content[n.ID()]
	return ok
}

// Text composes the painted text of n and its subtree.
func (b *Buffer) Text(n *cascade.Node) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	b.write(&sb, n)
	return sb.String()
}

func (b *Buffer) write(sb *strings.Builder, n *cascade.Node) {
	content, ok := b.content[n.ID()]
	if !ok {
		return
	}
	children := n.Children()
	for _, seg := range content {
		if !seg.IsSlot() {
			sb.WriteString(seg.Text)
			continue
		}
		if seg.Child < len(children) {
			b.write(sb, children[seg.Child])
		}
	}
}

// Reset forgets every paint.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content = make(map[uint64]template.Content)
	b.paints = make(map[uint64]int)
	b.total = 0
}
