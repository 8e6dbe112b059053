package iox

import (
	"errors"
	"testing"
)

type spyCloser struct{ calls int }

func (s *spyCloser) Close() error {
	s.calls++
	return errors.New("ignored")
}

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{}
	DiscardClose(s)
	if s.calls != 1 {
		t.Fatalf("Close called %d times, want 1", s.calls)
	}
}

func TestCloseFunc(t *testing.T) {
	s := &spyCloser{}
	fn := CloseFunc(s)
	if s.calls != 0 {
		t.Fatal("Close called before invoking returned func")
	}
	fn()
	if s.calls != 1 {
		t.Fatalf("Close called %d times, want 1", s.calls)
	}
}

func TestCloseFunc_Cleanup(t *testing.T) {
	s := &spyCloser{}
	t.Run("registers", func(t *testing.T) {
		t.Cleanup(CloseFunc(s))
	})
	if s.calls != 1 {
		t.Fatalf("cleanup did not close, calls = %d", s.calls)
	}
}
