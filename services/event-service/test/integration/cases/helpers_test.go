//go:build integration

package cases

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/event-service/test/integration/infra"
)

// Env wraps the stack under test plus an admin token.
type Env struct {
	infra.Stack
	AdminToken string
}

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Skipf("%s not set; start the stack and export it to run this suite", k)
	}
	return v
}

func setup(t *testing.T) Env {
	t.Helper()

	stack := infra.Stack{
		BaseURL:     mustEnv(t, "EVENT_BASE_URL"),
		DatabaseURL: mustEnv(t, "DATABASE_URL"),
		JWTSecret:   mustEnv(t, "JWT_SECRET"),
		JWTIssuer:   os.Getenv("JWT_ISSUER"),
	}
	require.NoError(t, stack.WaitReady(10*time.Second))
	require.NoError(t, stack.Reset(context.Background()))

	e := Env{Stack: stack}
	e.AdminToken = e.token(t, "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa", "admin")
	return e
}

func (e Env) token(t *testing.T, uid, role string) string {
	t.Helper()
	tok, err := e.Token(uid, role)
	require.NoError(t, err)
	return tok
}

// user registers a user through the admin API and returns its id and token.
func (e Env) user(t *testing.T, name, email string) (string, string) {
	t.Helper()
	code, env := doJSON(t, http.MethodPost, e.BaseURL+"/admin/users", e.AdminToken, map[string]string{
		"name":  name,
		"email": email,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var u struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &u))
	return u.ID, e.token(t, u.ID, "user")
}

func (e Env) category(t *testing.T, name string) string {
	t.Helper()
	code, env := doJSON(t, http.MethodPost, e.BaseURL+"/admin/categories", e.AdminToken, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var c struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &c))
	return c.ID
}

type Envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Meta    map[string]string `json:"meta"`
	} `json:"error,omitempty"`
}

func doJSON(t *testing.T, method, url, token string, body any) (int, Envelope) {
	t.Helper()

	var b []byte
	if body != nil {
		var err error
		b, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env Envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}
