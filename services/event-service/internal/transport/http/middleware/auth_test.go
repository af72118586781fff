package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/baechuer/real-time-ressys/pkg/requestctx"
)

const (
	testSecret = "test-secret"
	testIssuer = "test-issuer"
)

func generateToken(uid, role, iss, secret string, expired bool) string {
	exp := time.Now().Add(time.Hour)
	if expired {
		exp = time.Now().Add(-time.Hour)
	}
	claims := Claims{
		UserID: uid,
		Role:   role,
		Ver:    1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, _ := token.SignedString([]byte(secret))
	return ss
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestAuthMiddleware_Require(t *testing.T) {
	auth := NewAuth(testSecret, testIssuer)

	t.Run("valid_token_should_pass_and_set_context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+generateToken("user-123", "admin", testIssuer, testSecret, false))
		rr := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "user-123", UserID(r))
			assert.Equal(t, "admin", Role(r))
			w.WriteHeader(http.StatusOK)
		})

		auth.Require(next).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing_role_defaults_to_user", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+generateToken("user-1", "", testIssuer, testSecret, false))
		rr := httptest.NewRecorder()

		auth.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "user", Role(r))
		})).ServeHTTP(rr, req)
	})

	rejected := []struct {
		name   string
		header string
	}{
		{"missing_header", ""},
		{"not_bearer", "Basic abc"},
		{"expired_token", "Bearer " + generateToken("user-1", "user", testIssuer, testSecret, true)},
		{"wrong_secret", "Bearer " + generateToken("user-1", "user", testIssuer, "wrong-secret", false)},
		{"wrong_issuer", "Bearer " + generateToken("user-1", "user", "someone-else", testSecret, false)},
		{"missing_uid", "Bearer " + generateToken("", "user", testIssuer, testSecret, false)},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			auth.Require(okHandler()).ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Body.String(), `"unauthorized"`)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	auth := NewAuth(testSecret, "")
	h := auth.Require(RequireAdmin(okHandler()))

	for role, want := range map[string]int{"admin": http.StatusOK, "user": http.StatusForbidden} {
		req := httptest.NewRequest("GET", "/admin/events", nil)
		req.Header.Set("Authorization", "Bearer "+generateToken("u-1", role, "", testSecret, false))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, want, rr.Code, role)
	}
}

func TestRequireSelf(t *testing.T) {
	auth := NewAuth(testSecret, "")
	r := chi.NewRouter()
	r.With(auth.Require, RequireSelf("userId")).Get("/users/{userId}/events", okHandler().ServeHTTP)

	const owner = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	cases := []struct {
		name string
		uid  string
		path string
		role string
		want int
	}{
		{"owner", owner, owner, "user", http.StatusOK},
		{"owner_upper_case_path", owner, strings.ToUpper(owner), "user", http.StatusOK},
		{"other_user", "7ba7b810-9dad-11d1-80b4-00c04fd430c8", owner, "user", http.StatusForbidden},
		{"non_uuid_path", owner, "u-1", "user", http.StatusForbidden},
		{"admin_on_behalf", "8ba7b810-9dad-11d1-80b4-00c04fd430c8", owner, "admin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/users/"+tc.path+"/events", nil)
			req.Header.Set("Authorization", "Bearer "+generateToken(tc.uid, tc.role, "", testSecret, false))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Run("propagates_inbound_id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(requestctx.HeaderRequestID, "rid-1")
		rr := httptest.NewRecorder()

		RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "rid-1", requestctx.GetRequestID(r.Context()))
		})).ServeHTTP(rr, req)
		assert.Equal(t, "rid-1", rr.Header().Get(requestctx.HeaderRequestID))
	})

	t.Run("generates_when_absent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()
		RequestID(okHandler()).ServeHTTP(rr, req)
		assert.Len(t, rr.Header().Get(requestctx.HeaderRequestID), 36)
	})
}

func TestAccessLog(t *testing.T) {
	req := httptest.NewRequest("GET", "/test-path", nil)
	rr := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})

	AccessLog(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "hello", rr.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}
