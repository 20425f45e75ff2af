package buffer

import "testing"

func TestAppendAndPopFront(t *testing.T) {
	b := New()
	b.Append([]byte{1, 2, 3}, 1)
	b.Append([]byte{4, 5}, 2)

	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}

	want := []byte{1, 2, 3, 4, 5}
	wantFrame := []int{1, 1, 1, 2, 2}
	for i, w := range want {
		if got := b.PopFront(); got != w {
			t.Fatalf("PopFront()[%d] = %d, want %d", i, got, w)
		}
		if f := b.CurrentFrame(); f != wantFrame[i] {
			t.Fatalf("CurrentFrame() after pop %d = %d, want %d", i, f, wantFrame[i])
		}
	}
	if b.Len() != 0 {
		t.Fatalf("Len() after draining = %d, want 0", b.Len())
	}
}

func TestAtBoundary(t *testing.T) {
	b := New()
	b.Append([]byte{1, 2}, 1)
	b.Append([]byte{3}, 2)

	if b.AtBoundary() {
		t.Fatalf("AtBoundary() at start = true, want false")
	}
	b.PopFront()
	if b.AtBoundary() {
		t.Fatalf("AtBoundary() after 1 pop = true, want false")
	}
	b.PopFront()
	if !b.AtBoundary() {
		t.Fatalf("AtBoundary() after 2 pops = false, want true")
	}
	b.PopFront()
	if !b.AtBoundary() {
		t.Fatalf("AtBoundary() after 3 pops = false, want true")
	}
}

func TestContext(t *testing.T) {
	b := New()
	b.Append([]byte{10, 20, 30, 40, 50}, 1)
	b.PopFront()
	b.PopFront()

	ctx := b.Context(1)
	if len(ctx) != 3 {
		t.Fatalf("len(Context(1)) = %d, want 3", len(ctx))
	}
	if ctx[0].Offset != -1 || ctx[0].Byte != 20 {
		t.Fatalf("ctx[0] = %+v, want offset -1 byte 20", ctx[0])
	}
	if ctx[1].Offset != 0 || ctx[1].Byte != 30 {
		t.Fatalf("ctx[1] = %+v, want offset 0 byte 30", ctx[1])
	}
	if ctx[2].Offset != 1 || ctx[2].Byte != 40 {
		t.Fatalf("ctx[2] = %+v, want offset 1 byte 40", ctx[2])
	}
}

func TestPopFrontPanicsWhenEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic popping empty buffer")
		}
	}()
	New().PopFront()
}
