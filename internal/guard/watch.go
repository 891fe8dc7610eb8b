package guard

import (
	"context"
	"sync"
	"time"

	"github.com/terraconstructs/courtbook/internal/roles"
	"github.com/terraconstructs/courtbook/internal/session"
)

// SessionSource is the read side of the session store.
type SessionSource interface {
	Subscribe(handler func(session.State)) (unsubscribe func())
}

// RoleSource is the read side of the role resolver.
type RoleSource interface {
	RoleFor(identifier string) roles.State
	Peek(identifier string) roles.State
	Subscribe(handler func(identifier string, state roles.State)) (unsubscribe func())
}

// Target is what a guard protects: the variant and the requested location.
type Target struct {
	Kind      Kind
	Requested string
}

type watcher struct {
	target Target
	roles  RoleSource
	emit   func(Decision)

	mu        sync.Mutex
	session   session.State
	stopped   bool
	hasLast   bool
	last      Decision
	triggered string
	queue     []Decision
	draining  bool
}

// Watch re-evaluates target whenever the session or the relevant role record
// changes and calls emit with each decision that differs from the previous one,
// starting with the first.
//
// The role fetch is started once per signed-in identifier and again after the
// record is invalidated; a failed fetch is not retried. emit is not called
// after stop returns, except for a delivery already under way on another
// goroutine.
func Watch(sessions SessionSource, resolver RoleSource, target Target, emit func(Decision)) (stop func()) {
	w := &watcher{target: target, roles: resolver, emit: emit}

	stopRoles := resolver.Subscribe(func(identifier string, _ roles.State) {
		w.mu.Lock()
		if w.stopped || identifier != w.session.Identifier() {
			w.mu.Unlock()
			return
		}
		w.evaluateLocked()
		w.mu.Unlock()
		w.drain()
	})
	stopSessions := sessions.Subscribe(func(st session.State) {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		if st.Identifier() != w.session.Identifier() {
			w.triggered = ""
		}
		w.session = st
		w.evaluateLocked()
		w.mu.Unlock()
		w.drain()
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.stopped = true
			w.queue = nil
			w.mu.Unlock()
			stopSessions()
			stopRoles()
		})
	}
}

func (w *watcher) evaluateLocked() {
	var roleState roles.State
	if _, gated := w.target.Kind.RequiredRole(); gated && w.session.Status == session.SignedIn {
		id := w.session.Identifier()
		if w.triggered != id {
			w.triggered = id
			roleState = w.roles.RoleFor(id)
		} else {
			roleState = w.roles.Peek(id)
			if roleState.Phase == roles.None {
				roleState = w.roles.RoleFor(id)
			}
		}
	}

	d := Evaluate(w.target.Kind, w.session, roleState, w.target.Requested)
	if w.hasLast && d.Equal(w.last) {
		return
	}
	w.hasLast = true
	w.last = d
	w.queue = append(w.queue, d)
}

func (w *watcher) drain() {
	w.mu.Lock()
	if w.draining {
		w.mu.Unlock()
		return
	}
	w.draining = true
	for len(w.queue) > 0 && !w.stopped {
		d := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()
		w.emit(d)
		w.mu.Lock()
	}
	w.draining = false
	w.mu.Unlock()
}

// Check evaluates target once, waiting up to wait for the session and role to
// settle. If they have not settled by then the Await decision is returned.
func Check(ctx context.Context, sessions SessionSource, resolver RoleSource, target Target, wait time.Duration) Decision {
	settled := make(chan Decision, 1)
	stop := Watch(sessions, resolver, target, func(d Decision) {
		if d.Outcome == Await {
			return
		}
		select {
		case settled <- d:
		default:
		}
	})
	defer stop()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case d := <-settled:
		return d
	case <-timer.C:
	case <-ctx.Done():
	}
	return awaiting
}

// WaitSettled blocks until target settles to Allow or Deny.
func WaitSettled(ctx context.Context, sessions SessionSource, resolver RoleSource, target Target) (Decision, error) {
	settled := make(chan Decision, 1)
	stop := Watch(sessions, resolver, target, func(d Decision) {
		if d.Outcome == Await {
			return
		}
		select {
		case settled <- d:
		default:
		}
	})
	defer stop()

	select {
	case d := <-settled:
		return d, nil
	case <-ctx.Done():
		return awaiting, ctx.Err()
	}
}
