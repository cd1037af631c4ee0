package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubAuthService struct {
	auth.Service
	gotLogin auth.LoginRequest
	loginErr error
}

func (s *stubAuthService) Login(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.gotLogin = req
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &auth.LoginResponse{AccessToken: "token", TokenType: "Bearer", User: &users.UserDTO{Email: req.Email}}, nil
}

func postJSON(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
	return rec
}

func TestAuthLoginPassesDecodedBody(t *testing.T) {
	svc := &stubAuthService{}
	rec := postJSON(AuthLogin(svc, testLogger()), `{"email":"rosa@example.com","password":"hunter22"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "rosa@example.com", svc.gotLogin.Email)
	assert.Contains(t, rec.Body.String(), `"access_token":"token"`)
}

func TestAuthLoginRejectsInvalidBodyBeforeService(t *testing.T) {
	svc := &stubAuthService{}
	rec := postJSON(AuthLogin(svc, testLogger()), `{"email":"not-an-email"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.gotLogin.Email)
}

func TestAuthLoginMapsServiceErrors(t *testing.T) {
	svc := &stubAuthService{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	rec := postJSON(AuthLogin(svc, testLogger()), `{"email":"rosa@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRegisterWithoutServiceIsUnavailable(t *testing.T) {
	rec := postJSON(AuthRegister(nil, testLogger()), `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
