package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crucial707/userdir/cmd/cli/config"
)

func TestLogin_StoresToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["username"] != "alice" || payload["password"] != "secret" {
			t.Fatalf("unexpected payload: %v", payload)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok123"})
	}))
	defer srv.Close()

	t.Setenv("USERDIR_API_URL", srv.URL)

	cmd := loginCmd()
	_ = cmd.Flags().Set("username", "alice")
	_ = cmd.Flags().Set("password", "secret")

	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("login: %v", err)
	}

	token, err := config.ReadToken()
	if err != nil {
		t.Fatalf("read token: %v", err)
	}
	if token != "tok123" {
		t.Fatalf("expected stored token, got %q", token)
	}
}

func TestLogin_RequiresUsername(t *testing.T) {
	cmd := loginCmd()
	if err := cmd.RunE(cmd, nil); err == nil {
		t.Fatal("expected error for missing username")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials."})
	}))
	defer srv.Close()

	t.Setenv("USERDIR_API_URL", srv.URL)

	cmd := loginCmd()
	_ = cmd.Flags().Set("username", "alice")
	_ = cmd.Flags().Set("password", "wrong")

	if err := cmd.RunE(cmd, nil); err == nil {
		t.Fatal("expected error for rejected login")
	}
	if _, err := config.ReadToken(); err == nil {
		t.Fatal("no token should be stored after a failed login")
	}
}

func TestLogout_RemovesToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := config.SaveToken("tok123"); err != nil {
		t.Fatalf("save token: %v", err)
	}

	cmd := logoutCmd()
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := config.ReadToken(); err == nil {
		t.Fatal("expected token to be removed")
	}
}

func TestLogout_NoToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := logoutCmd()
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("logout without token: %v", err)
	}
}
