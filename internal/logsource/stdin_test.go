package logsource

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestStdinSourceReadsTaggedLines(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}

	src := newStdinSourceWithReader(context.Background(), r)
	t.Cleanup(src.Stop)

	if _, err := w.WriteString("first line\n\nsecond line\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = w.Close()

	for i, want := range []string{"first line", "second line"} {
		select {
		case env := <-src.Lines():
			if env.Line != want {
				t.Errorf("line %d = %q, want %q", i, env.Line, want)
			}
			if env.Source != "stdin" {
				t.Errorf("source = %q, want stdin", env.Source)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for line %d", i)
		}
	}
}

func TestStdinSourceStopClosesLines(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer func() { _ = w.Close() }()

	src := newStdinSourceWithReader(context.Background(), r)
	src.Stop()

	select {
	case _, ok := <-src.Lines():
		if ok {
			t.Fatal("expected lines channel to be closed after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lines channel to close")
	}
}

func TestStdinSourceStopIsIdempotent(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer func() { _ = w.Close() }()

	src := newStdinSourceWithReader(context.Background(), r)
	src.Stop()
	src.Stop()
}
