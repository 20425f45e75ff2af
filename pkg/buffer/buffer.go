// Package buffer implements a rewindable, frame-annotated byte queue.
//
// It underlies the MPSSE decoder (pkg/mpsse): bytes are popped off the
// front as commands are decoded, but nothing is actually discarded, so a
// decode failure can dump the bytes around the cursor for diagnostics.
package buffer

import "fmt"

type frameRange struct {
	start, end int
}

// Buffer is an append-only byte sequence with a monotonically advancing
// read cursor. Popped bytes remain indexable: Context can still see them.
type Buffer struct {
	data       []byte
	boundaries map[int]struct{}
	cursor     int

	frameRanges map[int]frameRange
	frameStarts map[int]int
	frame       int
	hasFrame    bool
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{
		boundaries:  make(map[int]struct{}),
		frameRanges: make(map[int]frameRange),
		frameStarts: make(map[int]int),
	}
}

// Append adds a batch of bytes attributed to frame id. It records an
// insertion boundary at the new end of the buffer and the half-open byte
// range contributed by this frame.
func (b *Buffer) Append(data []byte, frame int) {
	start := len(b.data)
	b.data = append(b.data, data...)
	b.boundaries[len(b.data)] = struct{}{}
	b.frameRanges[frame] = frameRange{start: start, end: len(b.data)}
	b.frameStarts[start] = frame
}

// Len returns the number of unread bytes remaining.
func (b *Buffer) Len() int {
	return len(b.data) - b.cursor
}

// PopFront advances the cursor by one and returns the byte that was at the
// front. It panics if the buffer is empty; callers must check Len first.
func (b *Buffer) PopFront() byte {
	if b.cursor >= len(b.data) {
		panic("buffer: pop from empty buffer")
	}
	ret := b.data[b.cursor]
	b.advanceFrame(b.cursor)
	b.cursor++
	return ret
}

func (b *Buffer) advanceFrame(idx int) {
	if !b.hasFrame {
		b.frame = b.frameStarts[idx]
		b.hasFrame = true
		return
	}
	r := b.frameRanges[b.frame]
	if idx >= r.end {
		b.frame = b.frameStarts[idx]
	}
}

// AtBoundary reports whether the cursor currently sits on an insertion
// boundary, i.e. exactly at the point where some Append call finished.
func (b *Buffer) AtBoundary() bool {
	_, ok := b.boundaries[b.cursor]
	return ok
}

// CurrentFrame returns the frame id that contributed the most recently
// popped byte (so the last frame once the buffer is drained). It is 0
// before the first PopFront.
func (b *Buffer) CurrentFrame() int {
	return b.frame
}

// ContextEntry is one byte offered by Context, with an offset relative to
// the cursor (negative before, zero at, positive after).
type ContextEntry struct {
	Offset int
	Byte   byte
}

// Context returns up to c bytes before and after the cursor, for
// diagnostic dumps when a decode fails.
func (b *Buffer) Context(c int) []ContextEntry {
	first := b.cursor - c
	if first < 0 {
		first = 0
	}
	last := b.cursor + c + 1
	if last > len(b.data) {
		last = len(b.data)
	}
	out := make([]ContextEntry, 0, last-first)
	for idx := first; idx < last; idx++ {
		out = append(out, ContextEntry{Offset: idx - b.cursor, Byte: b.data[idx]})
	}
	return out
}

func (e ContextEntry) String() string {
	return fmt.Sprintf("%+d 0x%02x", e.Offset, e.Byte)
}
