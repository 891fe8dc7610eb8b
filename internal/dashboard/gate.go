package dashboard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/internal/telemetry"
)

// guarded gates a route on kind. Requests that arrive before the session or
// role has settled get the placeholder page, which reloads itself.
func (s *Server) guarded(kind guard.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := telemetry.StartSpan(r.Context(), telemetry.TracerDashboard, "dashboard.guard",
				attribute.String(telemetry.AttrGuardKind, kind.String()),
				attribute.String(telemetry.AttrRequestID, middleware.GetReqID(r.Context())),
			)
			target := guard.Target{Kind: kind, Requested: r.URL.RequestURI()}
			decision := guard.Check(ctx, s.sessions, s.roles, target, s.settleWait)
			span.SetAttributes(attribute.String(telemetry.AttrGuardOutcome, decision.Outcome.String()))
			span.End()
			s.metrics.RecordDecision(ctx, kind.String(), decision.Outcome.String())

			switch decision.Outcome {
			case guard.Allow:
				next.ServeHTTP(w, r)
			case guard.Deny:
				http.Redirect(w, r, redirectLocation(decision.Redirect), http.StatusSeeOther)
			default:
				if r.Method != http.MethodGet && r.Method != http.MethodHead {
					w.Header().Set("Retry-After", "1")
					http.Error(w, "session is still loading, try again", http.StatusServiceUnavailable)
					return
				}
				w.Header().Set("Refresh", "1")
				s.render(w, r, http.StatusAccepted, "pending.html", nil)
			}
		})
	}
}

func redirectLocation(redirect *guard.RedirectDecision) string {
	if redirect == nil || redirect.Target == guard.ViewForbidden {
		return "/forbidden"
	}
	if redirect.ReturnTo == "" {
		return "/login"
	}
	return "/login?" + url.Values{"returnTo": {redirect.ReturnTo}}.Encode()
}

// safeReturn accepts only same-site absolute paths.
func safeReturn(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	if u, err := url.Parse(target); err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return target
}
