//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/celerhost/panel/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is accepted by the password policy.
const TestPassword = "securepass123"

// RegisterUser creates a user through the API and returns the token and user ID.
func (env *TestEnv) RegisterUser(username, email string) (token string, userID uuid.UUID) {
	env.t.Helper()
	resp := env.POST("/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": TestPassword,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("RegisterUser: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("RegisterUser: decode: %v", err)
	}
	return result.Token, result.User.ID
}

// Login authenticates an existing user and returns the auth token.
func (env *TestEnv) Login(email, password string) string {
	env.t.Helper()
	resp := env.POST("/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("Login: expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("Login: decode: %v", err)
	}
	return result.Token
}

// RegisterAdmin inserts an admin directly into usuarios and returns a token.
func (env *TestEnv) RegisterAdmin(username string) (token string, adminID uuid.UUID) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	adminID = uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		env.t.Fatalf("RegisterAdmin: hash: %v", err)
	}
	_, err = env.Pool.Exec(ctx, `
		INSERT INTO usuarios (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, 'admin')`,
		adminID, username, username+"@celerhost.test", string(hash))
	if err != nil {
		env.t.Fatalf("RegisterAdmin: insert: %v", err)
	}

	token, err = env.JWTMgr.GenerateToken(domain.Caller{ID: adminID, Username: username, Role: domain.RoleAdmin})
	if err != nil {
		env.t.Fatalf("RegisterAdmin: token: %v", err)
	}
	return token, adminID
}

// CreateServer creates a server on plan 1 and returns its id.
func (env *TestEnv) CreateServer(token, name, game string) uuid.UUID {
	env.t.Helper()
	resp := env.POST("/servers", map[string]interface{}{
		"nombre":  name,
		"juego":   game,
		"plan_id": 1,
	}, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("CreateServer: expected 201, got %d", resp.StatusCode)
	}
	var result struct {
		Server struct {
			ID uuid.UUID `json:"id"`
		} `json:"server"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("CreateServer: decode: %v", err)
	}
	return result.Server.ID
}

// CreateTicket opens a ticket and returns its id.
func (env *TestEnv) CreateTicket(token, subject string) uuid.UUID {
	env.t.Helper()
	resp := env.POST("/tickets", map[string]string{
		"asunto":    subject,
		"mensaje":   "details for " + subject,
		"categoria": "technical",
	}, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("CreateTicket: expected 201, got %d", resp.StatusCode)
	}
	var result struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("CreateTicket: decode: %v", err)
	}
	return result.ID
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodGet, path, nil, "")
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token)
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodGet, path, nil, token)
}

// AuthPUT performs an authenticated PUT request.
func (env *TestEnv) AuthPUT(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPut, path, body, token)
}

// AuthDELETE performs an authenticated DELETE request.
func (env *TestEnv) AuthDELETE(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodDelete, path, nil, token)
}

// OPTIONS performs an OPTIONS request.
func (env *TestEnv) OPTIONS(path string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodOptions, path, nil, "")
}

// RawPOST performs a POST request with raw bytes and custom headers.
func (env *TestEnv) RawPOST(path string, body []byte, headers map[string]string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest(http.MethodPost, env.Server.URL+path, bytes.NewReader(body))
	if err != nil {
		env.t.Fatalf("RawPOST %s: new request: %v", path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("RawPOST %s: %v", path, err)
	}
	return resp
}

func (env *TestEnv) do(method, path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// FakeUUID returns a random UUID string for test placeholders.
func FakeUUID() string {
	return uuid.New().String()
}
