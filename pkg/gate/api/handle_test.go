package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearauth/clearauth/pkg/credential"
	"github.com/clearauth/clearauth/pkg/gate"
	"github.com/clearauth/clearauth/pkg/hasher"
)

type testServer struct {
	router *chi.Mux
	store  *credential.InMemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := credential.NewInMemoryStore()
	service := gate.NewService(store, gate.WithHasherFactory(hasher.NewFactory(hasher.FastCost)))
	handle := NewHandle(service, store)

	router := chi.NewRouter()
	handle.RegisterRoutes(router)
	return &testServer{router: router, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func rememberCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == RememberCookieName {
			return c
		}
	}
	t.Fatal("no remember cookie in response")
	return nil
}

func TestRegisterAndConfirm(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/users", registerRequest{
		Email:    "user@example.com",
		Password: "rightpass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var account Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.False(t, account.Confirmed)

	// The confirmation token travels by email, never in the response body.
	assert.NotContains(t, rec.Body.String(), "token")

	id := uuid.MustParse(account.ID)
	stored, err := ts.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotEmpty(t, stored.ConfirmationToken)

	confirmPath := fmt.Sprintf("/users/%s/confirmation?token=%s", account.ID, stored.ConfirmationToken)
	rec = ts.do(t, http.MethodPost, confirmPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rememberCookie(t, rec).Value, "confirming signs the user in")

	var confirmed Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirmed))
	assert.True(t, confirmed.Confirmed)

	t.Run("ReplayIsRejected", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, confirmPath, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("DuplicateEmailConflicts", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/users", registerRequest{
			Email:    "user@example.com",
			Password: "otherpass",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/users", registerRequest{
		Email:    "user@example.com",
		Password: "rightpass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("SignInSetsCookie", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/session", signInRequest{
			Email:    "user@example.com",
			Password: "rightpass",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		cookie := rememberCookie(t, rec)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)

		t.Run("CurrentSession", func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/session", nil, cookie)
			require.Equal(t, http.StatusOK, rec.Code)

			var account Account
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
			assert.Equal(t, "user@example.com", account.Email)
		})

		t.Run("SignOutClearsServerToken", func(t *testing.T) {
			rec := ts.do(t, http.MethodDelete, "/session", nil, cookie)
			require.Equal(t, http.StatusNoContent, rec.Code)

			cleared := rememberCookie(t, rec)
			assert.Empty(t, cleared.Value)
			assert.Negative(t, cleared.MaxAge)

			// The old token must no longer resolve a session.
			rec = ts.do(t, http.MethodGet, "/session", nil, cookie)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	})

	t.Run("WrongPassword", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/session", signInRequest{
			Email:    "user@example.com",
			Password: "wrongpass",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("UnknownEmailLooksLikeWrongPassword", func(t *testing.T) {
		known := ts.do(t, http.MethodPost, "/session", signInRequest{
			Email:    "user@example.com",
			Password: "wrongpass",
		})
		unknown := ts.do(t, http.MethodPost, "/session", signInRequest{
			Email:    "ghost@example.com",
			Password: "whatever",
		})
		assert.Equal(t, known.Code, unknown.Code)
		assert.Equal(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("NoCookieNoSession", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/session", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/users", registerRequest{
		Email:    "user@example.com",
		Password: "oldpass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var account Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	id := uuid.MustParse(account.ID)

	rec = ts.do(t, http.MethodPost, "/passwords", passwordResetRequest{Email: "user@example.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	stored, err := ts.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	resetToken := stored.ConfirmationToken
	require.NotEmpty(t, resetToken)

	t.Run("UnknownEmailAcceptedAllTheSame", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/passwords", passwordResetRequest{Email: "ghost@example.com"})
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("MismatchedConfirmation", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/users/"+account.ID+"/password", resetPasswordRequest{
			Token:                resetToken,
			Password:             "new",
			PasswordConfirmation: "different",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("ResetSignsIn", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/users/"+account.ID+"/password", resetPasswordRequest{
			Token:                resetToken,
			Password:             "newpass",
			PasswordConfirmation: "newpass",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rememberCookie(t, rec).Value)

		signIn := ts.do(t, http.MethodPost, "/session", signInRequest{
			Email:    "user@example.com",
			Password: "newpass",
		})
		assert.Equal(t, http.StatusOK, signIn.Code)
	})

	t.Run("UnknownAccountIs404", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/users/"+uuid.NewString()+"/password", resetPasswordRequest{
			Token:                "whatever",
			Password:             "newpass",
			PasswordConfirmation: "newpass",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("MalformedAccountIDIs404", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/users/not-a-uuid/password", resetPasswordRequest{
			Token:                "whatever",
			Password:             "newpass",
			PasswordConfirmation: "newpass",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
