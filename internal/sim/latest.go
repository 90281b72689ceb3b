package sim

import "sync/atomic"

// Latest holds the most recent snapshot for a reader on another goroutine.
type Latest struct {
	p atomic.Pointer[Snapshot]
}

func (l *Latest) Store(s Snapshot) {
	l.p.Store(&s)
}

func (l *Latest) Load() (Snapshot, bool) {
	p := l.p.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

func (l *Latest) OnStep(s Snapshot) { l.Store(s) }
