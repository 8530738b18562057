package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"todo-api/auth"
	"todo-api/domain"
)

type stubVerifier struct {
	verifyFn func(token string) (string, error)
}

func (s stubVerifier) Verify(token string) (string, error) { return s.verifyFn(token) }

type stubAccounts struct {
	staticAccounts
	identifyFn func(ctx context.Context, userID string) (domain.User, error)
}

func (s stubAccounts) Identify(ctx context.Context, userID string) (domain.User, error) {
	return s.identifyFn(ctx, userID)
}

func runMiddleware(t *testing.T, a *Authenticator, header string) (echo.Context, bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	var called bool
	err := a.Middleware()(func(echo.Context) error {
		called = true
		return nil
	})(c)
	return c, called, err
}

func TestAuthenticatorAttachesUser(t *testing.T) {
	user := domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}
	a := NewAuthenticator(
		stubVerifier{verifyFn: func(token string) (string, error) {
			if token != "h.p.s" {
				t.Fatalf("unexpected token %q", token)
			}
			return "u1", nil
		}},
		stubAccounts{identifyFn: func(_ context.Context, id string) (domain.User, error) {
			if id != "u1" {
				t.Fatalf("unexpected user id %q", id)
			}
			return user, nil
		}},
	)

	c, called, err := runMiddleware(t, a, "Bearer h.p.s")
	if err != nil || !called {
		t.Fatalf("expected next handler to run, err=%v called=%v", err, called)
	}
	got, err := currentUser(c)
	if err != nil || got != user {
		t.Fatalf("currentUser = %+v, %v", got, err)
	}
	if fromCtx, ok := domain.UserFromContext(c.Request().Context()); !ok || fromCtx != user {
		t.Fatalf("user missing from request context")
	}
}

func TestAuthenticatorRejects(t *testing.T) {
	storeErr := errors.New("store down")
	tests := []struct {
		name       string
		header     string
		verifyErr  error
		identify   func(context.Context, string) (domain.User, error)
		wantReason string
		wantErr    error
	}{
		{name: "no header", wantReason: "no token provided"},
		{name: "malformed", header: "Token abc", wantReason: "no token provided"},
		{name: "invalid", header: "Bearer h.p.s", verifyErr: auth.ErrInvalidToken, wantReason: "invalid token"},
		{name: "expired", header: "Bearer h.p.s", verifyErr: auth.ErrExpiredToken, wantReason: "token expired"},
		{
			name:   "unknown user",
			header: "Bearer h.p.s",
			identify: func(context.Context, string) (domain.User, error) {
				return domain.User{}, domain.Unauthorized("user not found", nil)
			},
			wantReason: "user not found",
		},
		{
			name:   "store failure",
			header: "Bearer h.p.s",
			identify: func(context.Context, string) (domain.User, error) {
				return domain.User{}, storeErr
			},
			wantErr: storeErr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identify := tt.identify
			if identify == nil {
				identify = func(context.Context, string) (domain.User, error) { return domain.User{ID: "u1"}, nil }
			}
			a := NewAuthenticator(
				stubVerifier{verifyFn: func(string) (string, error) { return "u1", tt.verifyErr }},
				stubAccounts{identifyFn: identify},
			)

			_, called, err := runMiddleware(t, a, tt.header)
			if called {
				t.Fatalf("next handler must not run")
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || errors.Is(err, domain.ErrUnauthorized) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			var ue *domain.UnauthorizedError
			if !errors.As(err, &ue) || ue.Reason != tt.wantReason || !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected unauthorized %q, got %v", tt.wantReason, err)
			}
		})
	}
}

func TestCurrentUserWithoutMiddleware(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, err := currentUser(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
