package api

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/clearauth/clearauth/pkg/credential"
	"github.com/clearauth/clearauth/pkg/gate"
)

// Account is the JSON shape of an account credential. Secret material
// (hashes, salts, tokens) never appears in a response body; the remember
// token travels only in its cookie.
type Account struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

// Session is returned by sign-in style endpoints.
type Session struct {
	Account   Account   `json:"account"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func accountResponse(cred credential.Credential) Account {
	return Account{
		ID:        cred.ID.String(),
		Email:     cred.Email,
		Confirmed: cred.Confirmed,
	}
}

func sessionResponse(decision gate.Decision) Session {
	return Session{
		Account:   accountResponse(decision.Credential),
		ExpiresAt: decision.ExpiresAt,
	}
}

// renderOutcome maps a non-success gate outcome to an HTTP response. The
// NotFound/InvalidToken split is deliberate: the calling layer uses it to
// choose between a 404 and a friendly "token invalid" message.
func renderOutcome(w http.ResponseWriter, r *http.Request, outcome gate.Outcome) {
	switch outcome {
	case gate.NotFound:
		renderError(w, r, http.StatusNotFound, "not found")
	case gate.InvalidPassword:
		renderError(w, r, http.StatusUnauthorized, "invalid email or password")
	case gate.InvalidToken:
		renderError(w, r, http.StatusUnauthorized, "token invalid")
	case gate.ExpiredToken:
		renderError(w, r, http.StatusUnauthorized, "token expired")
	case gate.MismatchedConfirmation:
		renderError(w, r, http.StatusUnprocessableEntity, "password confirmation does not match")
	default:
		renderError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: message})
}
