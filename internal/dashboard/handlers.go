package dashboard

import (
	"errors"
	"log"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/terraconstructs/courtbook/internal/authclient"
	"github.com/terraconstructs/courtbook/internal/booking"
	"github.com/terraconstructs/courtbook/internal/identity"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

type loginForm struct {
	Identifier string
	ReturnTo   string
}

type courtsView struct {
	Courts []sdk.Court
	Today  string
}

type memberView struct {
	Approved []sdk.Booking
	Payments []sdk.Payment
}

type adminView struct {
	Pending []sdk.Booking
	Users   []sdk.User
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	announcements, err := s.backend.ListAnnouncements(r.Context())
	if err != nil {
		s.backendError(w, r, "list announcements", err)
		return
	}
	s.render(w, r, http.StatusOK, "home.html", announcements)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	returnTo := safeReturn(r.URL.Query().Get("returnTo"), "")
	if s.sessions.CurrentPrincipal() != nil {
		http.Redirect(w, r, safeReturn(returnTo, "/dashboard/"), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginForm{ReturnTo: returnTo})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := loginForm{
		Identifier: r.PostFormValue("identifier"),
		ReturnTo:   safeReturn(r.PostFormValue("returnTo"), ""),
	}
	if _, err := s.sessions.SignIn(r.Context(), form.Identifier, r.PostFormValue("secret")); err != nil {
		s.renderFlash(w, r, http.StatusUnauthorized, "login.html", signInMessage(err), form)
		return
	}
	http.Redirect(w, r, safeReturn(form.ReturnTo, "/dashboard/"), http.StatusSeeOther)
}

func (s *Server) handleFederatedLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	returnTo := safeReturn(r.PostFormValue("returnTo"), "")
	if _, err := s.sessions.SignInWithFederatedProvider(r.Context()); err != nil {
		s.renderFlash(w, r, http.StatusUnauthorized, "login.html", signInMessage(err), loginForm{ReturnTo: returnTo})
		return
	}
	http.Redirect(w, r, safeReturn(returnTo, "/dashboard/"), http.StatusSeeOther)
}

func signInMessage(err error) string {
	var failure *identity.AuthFailure
	if !errors.As(err, &failure) {
		return "Sign-in failed."
	}
	switch failure.Kind {
	case identity.FailureBadCredentials:
		return "The email or password is incorrect."
	case identity.FailureCancelled:
		return "Sign-in was cancelled."
	case identity.FailureNetwork:
		return "The identity provider could not be reached. Try again."
	default:
		return "Sign-in failed."
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(r.Context()); err != nil {
		log.Printf("dashboard: sign out: %v", err)
		http.Error(w, "failed to sign out", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleForbidden(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusForbidden, "forbidden.html", nil)
}

func (s *Server) handleCourts(w http.ResponseWriter, r *http.Request) {
	courts, err := s.backend.ListCourts(r.Context())
	if err != nil {
		s.backendError(w, r, "list courts", err)
		return
	}
	s.render(w, r, http.StatusOK, "courts.html", courtsView{
		Courts: courts,
		Today:  s.now().Format(booking.DateLayout),
	})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	court, err := s.backend.GetCourt(r.Context(), chi.URLParam(r, "courtID"))
	if err != nil {
		s.backendError(w, r, "get court", err)
		return
	}
	selection := booking.Selection{
		Court: *court,
		Date:  r.PostFormValue("date"),
		Slots: r.PostForm["slot"],
	}
	if err := selection.Validate(s.now()); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	principal := s.sessions.CurrentPrincipal()
	if principal == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if _, err := s.backend.CreateBooking(r.Context(), selection.Request(principal.Identifier, selection.Subtotal())); err != nil {
		s.backendError(w, r, "create booking", err)
		return
	}
	http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	principal := s.sessions.CurrentPrincipal()
	if principal == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	bookings, err := s.backend.ListBookings(r.Context(), sdk.BookingQuery{Email: principal.Identifier})
	if err != nil {
		s.backendError(w, r, "list bookings", err)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", bookings)
}

func (s *Server) handleMember(w http.ResponseWriter, r *http.Request) {
	principal := s.sessions.CurrentPrincipal()
	if principal == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	approved, err := s.backend.ListBookings(r.Context(), sdk.BookingQuery{Email: principal.Identifier, Status: sdk.BookingApproved})
	if err != nil {
		s.backendError(w, r, "list bookings", err)
		return
	}
	payments, err := s.backend.ListPayments(r.Context(), principal.Identifier)
	if err != nil {
		s.backendError(w, r, "list payments", err)
		return
	}
	s.render(w, r, http.StatusOK, "member.html", memberView{Approved: approved, Payments: payments})
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	principal := s.sessions.CurrentPrincipal()
	if principal == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	bookings, err := s.backend.ListBookings(r.Context(), sdk.BookingQuery{Email: principal.Identifier, Status: sdk.BookingApproved})
	if err != nil {
		s.backendError(w, r, "list bookings", err)
		return
	}
	id := chi.URLParam(r, "bookingID")
	idx := slices.IndexFunc(bookings, func(b sdk.Booking) bool { return b.ID == id })
	if idx < 0 {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}

	var coupon *sdk.Coupon
	if code := r.PostFormValue("coupon"); code != "" {
		coupon, err = booking.LookupCoupon(r.Context(), s.backend, code, s.now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	quote, err := booking.Price(bookings[idx].Price, coupon, s.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	processor := booking.ConfirmedTransaction(r.PostFormValue("transaction"))
	if _, err := booking.Pay(r.Context(), s.backend, processor, bookings[idx], quote); err != nil {
		s.backendError(w, r, "pay booking", err)
		return
	}
	http.Redirect(w, r, "/dashboard/member/", http.StatusSeeOther)
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	pending, err := s.backend.ListBookings(r.Context(), sdk.BookingQuery{Status: sdk.BookingPending})
	if err != nil {
		s.backendError(w, r, "list bookings", err)
		return
	}
	users, err := s.backend.ListUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.backendError(w, r, "list users", err)
		return
	}
	s.render(w, r, http.StatusOK, "admin.html", adminView{Pending: pending, Users: users})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if _, err := s.backend.ApproveBooking(r.Context(), chi.URLParam(r, "bookingID")); err != nil {
		s.backendError(w, r, "approve booking", err)
		return
	}
	http.Redirect(w, r, "/dashboard/admin/", http.StatusSeeOther)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if _, err := s.backend.RejectBooking(r.Context(), chi.URLParam(r, "bookingID")); err != nil {
		s.backendError(w, r, "reject booking", err)
		return
	}
	http.Redirect(w, r, "/dashboard/admin/", http.StatusSeeOther)
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if _, err := s.backend.SetRole(r.Context(), r.PostFormValue("email"), r.PostFormValue("role")); err != nil {
		s.backendError(w, r, "set role", err)
		return
	}
	http.Redirect(w, r, "/dashboard/admin/", http.StatusSeeOther)
}

func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	author := ""
	if p := s.sessions.CurrentPrincipal(); p != nil {
		author = p.DisplayName
		if author == "" {
			author = p.Identifier
		}
	}
	input := sdk.AnnouncementInput{
		Title:  r.PostFormValue("title"),
		Body:   r.PostFormValue("body"),
		Author: author,
	}
	if _, err := s.backend.CreateAnnouncement(r.Context(), input); err != nil {
		s.backendError(w, r, "create announcement", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// backendError maps SDK errors onto responses. A backend 401 or 403 is
// surfaced as the forbidden page.
func (s *Server) backendError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var apiErr *sdk.APIError
	switch {
	case errors.Is(err, authclient.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden):
		http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
	case errors.Is(err, sdk.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		log.Printf("dashboard: %s: %v", op, err)
		http.Error(w, "the booking service is unavailable", http.StatusBadGateway)
	}
}
