// Package dashboard serves the local court-booking dashboard. Every page that
// needs a signed-in visitor or a role is gated by a guard from package guard.
package dashboard

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"

	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/internal/identity"
	"github.com/terraconstructs/courtbook/internal/telemetry"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// Sessions is the session store as the dashboard uses it. *session.Store
// satisfies it.
type Sessions interface {
	guard.SessionSource
	CurrentPrincipal() *identity.Principal
	SignIn(ctx context.Context, identifier, secret string) (*identity.Principal, error)
	SignInWithFederatedProvider(ctx context.Context) (*identity.Principal, error)
	SignOut(ctx context.Context) error
}

// Backend is the subset of *sdk.Client the pages call.
type Backend interface {
	ListAnnouncements(ctx context.Context) ([]sdk.Announcement, error)
	CreateAnnouncement(ctx context.Context, input sdk.AnnouncementInput) (*sdk.Announcement, error)
	ListCourts(ctx context.Context) ([]sdk.Court, error)
	GetCourt(ctx context.Context, id string) (*sdk.Court, error)
	FindCoupon(ctx context.Context, code string) (*sdk.Coupon, error)
	CreateBooking(ctx context.Context, input sdk.CreateBookingInput) (*sdk.Booking, error)
	ListBookings(ctx context.Context, q sdk.BookingQuery) ([]sdk.Booking, error)
	ApproveBooking(ctx context.Context, id string) (*sdk.Booking, error)
	RejectBooking(ctx context.Context, id string) (*sdk.Booking, error)
	ListUsers(ctx context.Context, search string) ([]sdk.User, error)
	SetRole(ctx context.Context, email, role string) (*sdk.User, error)
	ListPayments(ctx context.Context, email string) ([]sdk.Payment, error)
	CreatePaymentIntent(ctx context.Context, amount int64) (*sdk.PaymentIntent, error)
	RecordPayment(ctx context.Context, payment sdk.Payment) (*sdk.Payment, error)
}

// Options configures the dashboard router.
type Options struct {
	Sessions Sessions
	Roles    guard.RoleSource
	Backend  Backend

	// SettleWait bounds how long a gated page waits before showing the
	// placeholder.
	SettleWait time.Duration
	// CSRFKey must be 32 bytes; a random key is generated when empty.
	CSRFKey        []byte
	AllowedOrigins []string
	Metrics        *telemetry.GuardMetrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server holds the dashboard handlers.
type Server struct {
	sessions   Sessions
	roles      guard.RoleSource
	backend    Backend
	settleWait time.Duration
	metrics    *telemetry.GuardMetrics
	now        func() time.Time
	pages      *renderer
}

// DefaultCORSOptions returns the CORS policy used when no origins are configured.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:8088",
			"http://127.0.0.1:8088",
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// NewRouter assembles the dashboard router.
func NewRouter(opts Options) (chi.Router, error) {
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	key := opts.CSRFKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
		}
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("CSRF key must be 32 bytes, got %d", len(key))
	}
	if opts.SettleWait <= 0 {
		opts.SettleWait = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		sessions:   opts.Sessions,
		roles:      opts.Roles,
		backend:    opts.Backend,
		settleWait: opts.SettleWait,
		metrics:    opts.Metrics,
		now:        opts.Now,
		pages:      pages,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if len(opts.AllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = opts.AllowedOrigins
	}
	r.Use(cors.Handler(corsCfg))
	r.Use(securityHeaders)
	r.Use(csrfProtect(key, corsCfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Post("/login/federated", s.handleFederatedLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/forbidden", s.handleForbidden)
	r.Get("/courts", s.handleCourts)
	r.With(s.guarded(guard.RequireAuth)).Post("/courts/{courtID}/book", s.handleBook)

	r.Route("/dashboard", func(r chi.Router) {
		r.With(s.guarded(guard.RequireAuth)).Get("/", s.handleDashboard)

		r.Route("/member", func(r chi.Router) {
			r.Use(s.guarded(guard.RequireMember))
			r.Get("/", s.handleMember)
			r.Post("/bookings/{bookingID}/pay", s.handlePay)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.guarded(guard.RequireAdmin))
			r.Get("/", s.handleAdmin)
			r.Post("/bookings/{bookingID}/approve", s.handleApprove)
			r.Post("/bookings/{bookingID}/reject", s.handleReject)
			r.Post("/users/role", s.handleSetRole)
			r.Post("/announcements", s.handleAnnounce)
		})
	})

	return r, nil
}

// securityHeaders adds the usual hardening headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// csrfProtect guards form posts. The dashboard listens on loopback without TLS,
// so requests without TLS are marked plaintext for the origin checks.
func csrfProtect(key []byte, origins []string) func(http.Handler) http.Handler {
	trusted := make([]string, 0, len(origins))
	for _, origin := range origins {
		trusted = append(trusted, hostOf(origin))
	}
	protect := csrf.Protect(
		key,
		csrf.Secure(false),
		csrf.Path("/"),
		csrf.TrustedOrigins(trusted),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, fmt.Sprintf("invalid or missing CSRF token: %v", csrf.FailureReason(r)), http.StatusForbidden)
		})),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// hostOf reduces an origin such as "http://localhost:8088" to its host, the
// form csrf.TrustedOrigins compares against.
func hostOf(origin string) string {
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		return u.Host
	}
	return origin
}
