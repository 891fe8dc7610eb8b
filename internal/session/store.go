// Package session holds the one session of the running application and
// broadcasts its transitions.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/terraconstructs/courtbook/internal/identity"
	"github.com/terraconstructs/courtbook/internal/telemetry"
)

// Status tags a State.
type Status uint8

const (
	// Unresolved is the initial status, before the identity provider has reported.
	Unresolved Status = iota
	SignedOut
	SignedIn
)

func (s Status) String() string {
	switch s {
	case SignedOut:
		return "signed out"
	case SignedIn:
		return "signed in"
	default:
		return "unresolved"
	}
}

// State is the session state. Principal is set only when Status is SignedIn.
type State struct {
	Status    Status
	Principal *identity.Principal
}

// Identifier returns the signed-in principal's identifier, or "".
func (s State) Identifier() string {
	if s.Status != SignedIn || s.Principal == nil {
		return ""
	}
	return s.Principal.Identifier
}

// RoleInvalidator drops cached role records. *roles.Resolver satisfies it.
type RoleInvalidator interface {
	Invalidate(identifier string)
}

// Registrar creates the backend user record for a principal seen for the first
// time. *sdk.Client satisfies it.
type Registrar interface {
	RegisterIfNew(ctx context.Context, email, name string) (bool, error)
}

// Options wires the Store's collaborators. All fields are optional.
type Options struct {
	Roles           RoleInvalidator
	Registrar       Registrar
	RegisterTimeout time.Duration
	Metrics         *telemetry.AuthMetrics
}

type delivery struct {
	state State
	// target limits the delivery to one handler; -1 means all handlers.
	target int
	// invalidate is the outgoing identifier whose role record is dropped once
	// every handler has seen state.
	invalidate string
}

// Store owns the session state. Create one per process with New, call Start
// once consumers are wired, and Close at shutdown.
type Store struct {
	provider identity.Provider
	opts     Options

	mu       sync.Mutex
	state    State
	handlers map[int]func(State)
	nextID   int
	queue    []delivery
	draining bool

	stopProvider func()
	background   sync.WaitGroup
}

// New creates a Store in the Unresolved state.
func New(provider identity.Provider, opts Options) *Store {
	if opts.RegisterTimeout <= 0 {
		opts.RegisterTimeout = 30 * time.Second
	}
	return &Store{
		provider: provider,
		opts:     opts,
		handlers: make(map[int]func(State)),
	}
}

// Start subscribes to the identity provider. Transitions begin with the
// provider's first report.
func (s *Store) Start() {
	unsubscribe := s.provider.OnStateChange(s.apply)
	s.mu.Lock()
	s.stopProvider = unsubscribe
	s.mu.Unlock()
}

// Close detaches from the provider and waits for background registrations.
func (s *Store) Close() {
	s.mu.Lock()
	stop := s.stopProvider
	s.stopProvider = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
	s.background.Wait()
}

// Subscribe registers handler for every transition and calls it with the
// current state first. Deliveries are ordered and one at a time; a handler may
// call back into the Store but must not block.
func (s *Store) Subscribe(handler func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	s.queue = append(s.queue, delivery{state: s.state, target: id})
	s.mu.Unlock()
	s.drain()

	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentPrincipal returns the signed-in principal, or nil.
func (s *Store) CurrentPrincipal() *identity.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != SignedIn {
		return nil
	}
	return s.state.Principal
}

// SignIn signs in with an identifier and secret. A failure is returned as an
// *identity.AuthFailure and leaves the state unchanged.
func (s *Store) SignIn(ctx context.Context, identifier, secret string) (*identity.Principal, error) {
	principal, err := s.provider.SignInWithPassword(ctx, identifier, secret)
	if err != nil {
		failure := identity.Classify(err)
		s.opts.Metrics.RecordAuth(ctx, "password", failure.Kind.String())
		return nil, failure
	}
	s.opts.Metrics.RecordAuth(ctx, "password", "")
	s.apply(principal)
	return principal, nil
}

// SignInWithFederatedProvider signs in through the provider's federated flow.
// When the backend has never seen the principal its user record is created in
// the background; a failure there is logged and does not undo the sign-in.
func (s *Store) SignInWithFederatedProvider(ctx context.Context) (*identity.Principal, error) {
	principal, err := s.provider.SignInFederated(ctx)
	if err != nil {
		failure := identity.Classify(err)
		s.opts.Metrics.RecordAuth(ctx, "federated", failure.Kind.String())
		return nil, failure
	}
	s.opts.Metrics.RecordAuth(ctx, "federated", "")
	s.apply(principal)
	s.registerAsync(principal)
	return principal, nil
}

// SignOut signs out with the provider and, once it confirms, moves to
// SignedOut and drops the outgoing principal's role record.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		return err
	}
	s.apply(nil)
	return nil
}

// apply moves to the state the provider reported. The same principal with a
// new credential replaces the principal without a transition. The outgoing
// principal's role record is dropped after subscribers have seen the new state.
func (s *Store) apply(principal *identity.Principal) {
	next := State{Status: SignedOut}
	if principal != nil {
		next = State{Status: SignedIn, Principal: principal}
	}

	s.mu.Lock()
	prev := s.state
	if prev.Status == next.Status && prev.Identifier() == next.Identifier() {
		s.state = next
		s.mu.Unlock()
		return
	}
	s.state = next
	s.queue = append(s.queue, delivery{state: next, target: -1, invalidate: prev.Identifier()})
	s.mu.Unlock()

	s.drain()
}

func (s *Store) registerAsync(principal *identity.Principal) {
	if s.opts.Registrar == nil || principal == nil {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.RegisterTimeout)
		defer cancel()

		created, err := s.opts.Registrar.RegisterIfNew(ctx, principal.Identifier, principal.DisplayName)
		if err != nil {
			log.Printf("session: failed to register user %s: %v", principal.Identifier, err)
			return
		}
		if created {
			log.Printf("session: registered new user %s", principal.Identifier)
		}
	}()
}

func (s *Store) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		d := s.queue[0]
		s.queue = s.queue[1:]
		var handlers []func(State)
		if d.target >= 0 {
			if h, ok := s.handlers[d.target]; ok {
				handlers = append(handlers, h)
			}
		} else {
			for _, h := range s.handlers {
				handlers = append(handlers, h)
			}
		}
		s.mu.Unlock()
		for _, h := range handlers {
			h(d.state)
		}
		if d.invalidate != "" && s.opts.Roles != nil {
			s.opts.Roles.Invalidate(d.invalidate)
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}
