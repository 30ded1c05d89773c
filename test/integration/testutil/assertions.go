//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// ServerStatus reads estado straight from servidores.
func ServerStatus(t *testing.T, env *TestEnv, id uuid.UUID) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var status string
	if err := env.Pool.QueryRow(ctx, "SELECT estado FROM servidores WHERE id = $1", id).Scan(&status); err != nil {
		t.Fatalf("ServerStatus: %v", err)
	}
	return status
}

// WaitForServerStatus polls until the server reaches want or the timeout passes.
func WaitForServerStatus(t *testing.T, env *TestEnv, id uuid.UUID, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		got := ServerStatus(t, env, id)
		if got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("server %s: expected status %q, still %q after %s", id, want, got, timeout)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// OutboxEventTypes returns event_type values in insertion order.
func OutboxEventTypes(t *testing.T, env *TestEnv) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := env.Pool.Query(ctx, "SELECT event_type FROM event_outbox ORDER BY id")
	if err != nil {
		t.Fatalf("OutboxEventTypes: %v", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatalf("OutboxEventTypes: scan: %v", err)
		}
		out = append(out, s)
	}
	return out
}
