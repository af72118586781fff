// Package infra reaches a running event-service stack from black-box tests.
package infra

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/lib/pq"
)

// Stack is the deployed service under test.
type Stack struct {
	BaseURL     string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
}

// WaitReady polls /readyz until the service and its database answer.
func (s Stack) WaitReady(timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); time.Sleep(200 * time.Millisecond) {
		resp, err := client.Get(s.BaseURL + "/readyz")
		if err != nil {
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}
	return fmt.Errorf("%s not ready after %s", s.BaseURL, timeout)
}

// Reset truncates every table the service owns.
func (s Stack) Reset(ctx context.Context) error {
	db, err := sql.Open("postgres", s.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	_, err = db.ExecContext(ctx, `TRUNCATE TABLE event_outbox, requests, events, locations, categories, users CASCADE`)
	return err
}

type claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Ver    int64  `json:"ver"`
	jwt.RegisteredClaims
}

// Token signs an access token the way the auth service does.
func (s Stack) Token(uid, role string) (string, error) {
	now := time.Now().UTC()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: uid,
		Role:   role,
		Ver:    1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.JWTIssuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	}).SignedString([]byte(s.JWTSecret))
}
