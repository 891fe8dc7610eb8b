package roles

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/courtbook/internal/telemetry"
)

// Phase is the lifecycle position of a role record.
type Phase uint8

const (
	// None means no record exists and no fetch is outstanding.
	None Phase = iota
	Pending
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "none"
	}
}

// State is what the resolver currently knows about one identifier. Role is
// meaningful only when Phase is Ready; Err only when Phase is Failed.
type State struct {
	Phase Phase
	Role  Role
	Err   error
}

// Settled reports whether the state is final for the current fetch.
func (s State) Settled() bool { return s.Phase == Ready || s.Phase == Failed }

// Record is a settled answer held in the cache.
type Record struct {
	Identifier string
	State      State
	FetchedAt  time.Time
}

// ErrNoIdentifier is the failure recorded for an empty identifier.
var ErrNoIdentifier = errors.New("no identifier")

// Options tunes a Resolver.
type Options struct {
	// Size bounds the number of cached records.
	Size int
	// TTL is how long a settled record is served before it counts as stale.
	TTL time.Duration
	// FetchTimeout bounds one backend request.
	FetchTimeout time.Duration
	Metrics      *telemetry.RoleMetrics
}

type call struct {
	done  chan struct{}
	state State
	// applied is set when the result reached the cache.
	applied bool
}

type event struct {
	identifier string
	state      State
}

// Resolver answers "what role does this principal have". It owns the role
// cache; everything else only reads it.
type Resolver struct {
	fetcher Fetcher
	opts    Options

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	cache    *expirable.LRU[string, Record]
	inflight map[string]*call
	handlers map[int]func(identifier string, state State)
	nextID   int
	queue    []event
	draining bool
}

// NewResolver creates a Resolver backed by fetcher.
func NewResolver(fetcher Fetcher, opts Options) *Resolver {
	if opts.Size <= 0 {
		opts.Size = 256
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		fetcher:  fetcher,
		opts:     opts,
		baseCtx:  ctx,
		cancel:   cancel,
		cache:    expirable.NewLRU[string, Record](opts.Size, nil, opts.TTL),
		inflight: make(map[string]*call),
		handlers: make(map[int]func(string, State)),
	}
}

// RoleFor returns the current state for identifier and starts a fetch when
// there is no record, the record is stale, or the last fetch failed. While a
// fetch is outstanding every caller observes Pending and no second request is
// sent.
func (r *Resolver) RoleFor(identifier string) State {
	if identifier == "" {
		return State{Phase: Failed, Err: ErrNoIdentifier}
	}

	r.mu.Lock()
	if _, ok := r.inflight[identifier]; ok {
		r.mu.Unlock()
		return State{Phase: Pending}
	}
	if rec, ok := r.cache.Get(identifier); ok && rec.State.Phase == Ready {
		r.mu.Unlock()
		return rec.State
	}
	c := r.startLocked(identifier)
	r.mu.Unlock()

	go r.fetch(identifier, c)
	return State{Phase: Pending}
}

// Peek returns the current state for identifier without starting a fetch.
// A failed record stays Failed until the next RoleFor.
func (r *Resolver) Peek(identifier string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[identifier]; ok {
		return State{Phase: Pending}
	}
	if rec, ok := r.cache.Peek(identifier); ok {
		return rec.State
	}
	return State{}
}

// Record returns the cached record for identifier, if one is held.
func (r *Resolver) Record(identifier string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Peek(identifier)
}

// Resolve blocks until identifier's role settles and returns it. A failed fetch
// is returned as an error; a fetch discarded by Invalidate is retried. After
// Close it returns context.Canceled.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (Role, error) {
	if st := r.RoleFor(identifier); st.Settled() {
		return st.Role, st.Err
	}
	for {
		if err := r.baseCtx.Err(); err != nil {
			return User, err
		}
		r.mu.Lock()
		c, ok := r.inflight[identifier]
		if !ok {
			c = r.startLocked(identifier)
			r.mu.Unlock()
			go r.fetch(identifier, c)
		} else {
			r.mu.Unlock()
		}

		select {
		case <-ctx.Done():
			return User, ctx.Err()
		case <-c.done:
		}

		r.mu.Lock()
		applied, st := c.applied, c.state
		r.mu.Unlock()
		if applied {
			return st.Role, st.Err
		}
		if err := r.baseCtx.Err(); err != nil {
			return User, err
		}
	}
}

// Invalidate drops the record for identifier. An outstanding fetch is detached:
// it may finish, but its answer is discarded. Calling it again is a no-op.
func (r *Resolver) Invalidate(identifier string) {
	r.mu.Lock()
	removed := r.cache.Remove(identifier)
	if c, ok := r.inflight[identifier]; ok {
		delete(r.inflight, identifier)
		close(c.done)
		removed = true
	}
	if removed {
		r.enqueueLocked(identifier, State{})
	}
	r.mu.Unlock()

	if removed {
		r.drain()
	}
}

// Subscribe registers handler for settle and invalidate events. It is not
// called with the current state. Handlers may call back into the Resolver.
func (r *Resolver) Subscribe(handler func(identifier string, state State)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.handlers[id] = handler
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.handlers, id)
		r.mu.Unlock()
	}
}

// Close cancels outstanding fetches. Their results are discarded.
func (r *Resolver) Close() {
	r.cancel()
}

func (r *Resolver) startLocked(identifier string) *call {
	c := &call{done: make(chan struct{}), state: State{Phase: Pending}}
	r.inflight[identifier] = c
	return c
}

func (r *Resolver) fetch(identifier string, c *call) {
	ctx, cancel := context.WithTimeout(r.baseCtx, r.opts.FetchTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerRoles, "roles.fetch",
		attribute.String(telemetry.AttrPrincipalID, identifier),
	)
	defer span.End()

	start := time.Now()
	role, err := r.fetcher.FetchRole(ctx, identifier)
	r.opts.Metrics.RecordFetch(ctx, float64(time.Since(start).Milliseconds()), err)

	state := State{Phase: Ready, Role: role}
	if err != nil {
		telemetry.RecordError(span, err)
		state = State{Phase: Failed, Err: err}
	} else {
		span.SetAttributes(attribute.String(telemetry.AttrPrincipalRole, role.String()))
	}

	r.mu.Lock()
	if r.inflight[identifier] != c || r.baseCtx.Err() != nil {
		// Invalidated or closed while the request was outstanding.
		if r.inflight[identifier] == c {
			delete(r.inflight, identifier)
			close(c.done)
		}
		r.mu.Unlock()
		telemetry.AddEvent(span, "roles.fetch.discarded")
		return
	}
	delete(r.inflight, identifier)
	c.state = state
	c.applied = true
	r.cache.Add(identifier, Record{Identifier: identifier, State: state, FetchedAt: time.Now()})
	r.enqueueLocked(identifier, state)
	r.mu.Unlock()

	close(c.done)
	r.drain()
}

func (r *Resolver) enqueueLocked(identifier string, state State) {
	r.queue = append(r.queue, event{identifier: identifier, state: state})
}

// drain delivers queued events in order. Only one goroutine delivers at a time;
// events queued meanwhile are picked up by that goroutine.
func (r *Resolver) drain() {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	for len(r.queue) > 0 {
		ev := r.queue[0]
		r.queue = r.queue[1:]
		handlers := make([]func(string, State), 0, len(r.handlers))
		for _, h := range r.handlers {
			handlers = append(handlers, h)
		}
		r.mu.Unlock()
		for _, h := range handlers {
			h(ev.identifier, ev.state)
		}
		r.mu.Lock()
	}
	r.draining = false
	r.mu.Unlock()
}
