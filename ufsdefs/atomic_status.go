package ufsdefs

import "sync/atomic"

// atomicStatus is the atomic-counter idiom carried over from the teacher's
// pkg/status package (its opIDCounter/atomic.Uint64 pattern), sized down to
// the one scalar spec.md actually needs: the legacy global status word.
type atomicStatus struct {
	v atomic.Int64
}

func (a *atomicStatus) store(s StatusCode) { a.v.Store(int64(s)) }
func (a *atomicStatus) load() StatusCode   { return StatusCode(a.v.Load()) }
