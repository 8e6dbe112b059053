// Package iox provides cleanup helpers for closers whose errors carry no
// useful signal (adapters, archives, temp files).
package iox

import "io"

// DiscardClose closes c and drops the error.
//
//	defer iox.DiscardClose(a)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a func that closes c, for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(adapter))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}
