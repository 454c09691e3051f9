// Package api exposes the authentication gate over HTTP. It is a thin
// calling layer: it moves bearer tokens between cookies, URL parameters, and
// form fields on one side and gate Decisions on the other, and owns all
// transport-level side effects the core deliberately avoids.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/clearauth/clearauth/pkg/credential"
	"github.com/clearauth/clearauth/pkg/gate"
)

type Handle struct {
	gateService *gate.Service
	store       credential.Store
	cookies     CookieSetter
}

type Option func(*Handle)

// WithCookieSetter overrides the default lax, http-only cookie setter.
func WithCookieSetter(cookies CookieSetter) Option {
	return func(h *Handle) {
		h.cookies = cookies
	}
}

func NewHandle(gateService *gate.Service, store credential.Store, opts ...Option) *Handle {
	h := &Handle{
		gateService: gateService,
		store:       store,
		cookies:     NewCookieSetter(true, false),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the authentication routes:
//
//	POST   /users                    register
//	POST   /users/{id}/confirmation  confirm account
//	PUT    /users/{id}/password      reset password
//	POST   /session                  sign in with email+password
//	GET    /session                  current session from remember cookie
//	DELETE /session                  sign out
//	POST   /passwords                request a password reset
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.Register)
		r.Post("/{id}/confirmation", h.ConfirmAccount)
		r.Put("/{id}/password", h.ResetPassword)
	})
	r.Route("/session", func(r chi.Router) {
		r.Post("/", h.SignIn)
		r.Get("/", h.CurrentSession)
		r.Delete("/", h.SignOut)
	})
	r.Post("/passwords", h.RequestPasswordReset)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account credential and triggers the confirmation
// notice.
func (h *Handle) Register(w http.ResponseWriter, r *http.Request) {
	var data registerRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if data.Email == "" || data.Password == "" {
		renderError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	decision, err := h.gateService.Register(r.Context(), data.Email, data.Password)
	if err != nil {
		if errors.Is(err, credential.ErrDuplicateEmail) {
			renderError(w, r, http.StatusConflict, "email already registered")
			return
		}
		renderInternalError(w, r, err)
		return
	}
	if !decision.OK() {
		renderOutcome(w, r, decision.Outcome)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, accountResponse(decision.Credential))
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn authenticates with email and password and sets the remember cookie.
func (h *Handle) SignIn(w http.ResponseWriter, r *http.Request) {
	var data signInRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, err := h.store.GetByEmail(r.Context(), data.Email)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			// Same response as a wrong password: the sign-in form does
			// not disclose whether the account exists.
			renderOutcome(w, r, gate.InvalidPassword)
			return
		}
		renderInternalError(w, r, err)
		return
	}

	decision, err := h.gateService.SignIn(r.Context(), cred, data.Password)
	if err != nil {
		renderInternalError(w, r, err)
		return
	}
	if !decision.OK() {
		renderOutcome(w, r, decision.Outcome)
		return
	}

	h.cookies.SetCookie(w, RememberCookieName, decision.Token, decision.ExpiresAt)
	render.JSON(w, r, sessionResponse(decision))
}

// CurrentSession resolves the remember cookie to an account.
func (h *Handle) CurrentSession(w http.ResponseWriter, r *http.Request) {
	decision, err := h.signInByCookie(r)
	if err != nil {
		renderInternalError(w, r, err)
		return
	}
	if !decision.OK() {
		renderOutcome(w, r, decision.Outcome)
		return
	}

	// Rotation-on-use surfaces here: persist whatever token the gate handed
	// back, which is the presented one unless refresh is enabled.
	h.cookies.SetCookie(w, RememberCookieName, decision.Token, decision.ExpiresAt)
	render.JSON(w, r, accountResponse(decision.Credential))
}

// SignOut clears the remember token server-side and discards the cookie.
func (h *Handle) SignOut(w http.ResponseWriter, r *http.Request) {
	decision, err := h.signInByCookie(r)
	if err != nil {
		renderInternalError(w, r, err)
		return
	}
	if decision.OK() {
		if _, err := h.gateService.SignOut(r.Context(), decision.Credential); err != nil {
			renderInternalError(w, r, err)
			return
		}
	}

	// Clear the cookie regardless; a stale client copy is worthless either way.
	h.cookies.ClearCookie(w, RememberCookieName)
	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset issues a reset token for the account with the given
// email. The response is 202 whether or not the account exists, so the
// endpoint cannot be used to probe for registered addresses.
func (h *Handle) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var data passwordResetRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, err := h.store.GetByEmail(r.Context(), data.Email)
	if err == nil {
		if _, _, err := h.gateService.RequestPasswordReset(r.Context(), cred); err != nil {
			renderInternalError(w, r, err)
			return
		}
	} else if !errors.Is(err, credential.ErrNotFound) {
		renderInternalError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted"})
}

// ConfirmAccount consumes a confirmation token carried as a query or form
// parameter and signs the user in.
func (h *Handle) ConfirmAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAccountID(w, r)
	if !ok {
		return
	}

	decision, err := h.gateService.ConfirmAccount(r.Context(), id, r.URL.Query().Get("token"))
	if err != nil {
		renderInternalError(w, r, err)
		return
	}
	if !decision.OK() {
		renderOutcome(w, r, decision.Outcome)
		return
	}

	h.cookies.SetCookie(w, RememberCookieName, decision.Token, decision.ExpiresAt)
	render.JSON(w, r, accountResponse(decision.Credential))
}

type resetPasswordRequest struct {
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ResetPassword consumes a reset token, sets the new password, and signs the
// user in.
func (h *Handle) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAccountID(w, r)
	if !ok {
		return
	}

	var data resetPasswordRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	decision, err := h.gateService.ResetPassword(r.Context(), id, data.Token, data.Password, data.PasswordConfirmation)
	if err != nil {
		renderInternalError(w, r, err)
		return
	}
	if !decision.OK() {
		renderOutcome(w, r, decision.Outcome)
		return
	}

	h.cookies.SetCookie(w, RememberCookieName, decision.Token, decision.ExpiresAt)
	render.JSON(w, r, sessionResponse(decision))
}

func (h *Handle) signInByCookie(r *http.Request) (gate.Decision, error) {
	cookie, err := r.Cookie(RememberCookieName)
	if err != nil {
		return gate.Decision{Outcome: gate.InvalidToken}, nil
	}
	return h.gateService.SignInByToken(r.Context(), cookie.Value)
}

func parseAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// An unparseable ID can never name an account; same shape as an
		// unknown one.
		renderOutcome(w, r, gate.NotFound)
		return uuid.Nil, false
	}
	return id, true
}

func renderInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("Internal error handling auth request", "path", r.URL.Path, "err", err)
	renderError(w, r, http.StatusInternalServerError, "internal error")
}
