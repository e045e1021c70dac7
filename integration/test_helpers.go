package integration

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

// testConfig builds a login-front config listening on addr with every
// provider enabled
func testConfig(addr string) map[string]any {
	return map[string]any{
		"version": "v1",
		"server": map[string]any{
			"baseURL": "http://" + addr,
			"addr":    addr,
			"name":    "login-front-integration",
		},
		"providers": map[string]any{
			"google":   map[string]any{"clientId": "google-client"},
			"github":   map[string]any{"clientId": "github-client"},
			"linkedin": map[string]any{"clientId": "linkedin-client"},
			"facebook": map[string]any{
				"appId":     "1234",
				"appSecret": map[string]string{"$env": "TEST_FACEBOOK_APP_SECRET"},
				"loadJsSdk": true,
			},
			"saml": []any{
				map[string]any{"href": "https://idp.example.com/sso", "displayName": "Example SSO"},
			},
		},
		"storage":    map[string]any{"kind": "memory"},
		"signingKey": map[string]string{"$env": "TEST_SIGNING_KEY"},
	}
}

// testEnv is the environment every test config resolves against
func testEnv() []string {
	return []string{
		"LOGIN_FRONT_ENV=development",
		"TEST_FACEBOOK_APP_SECRET=app-secret",
		"TEST_SIGNING_KEY=" + testSigningKey,
	}
}

// writeTestConfig writes a config map to a temporary JSON file and returns its path.
func writeTestConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test config: %v", err)
	}
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close temp config: %v", err)
	}
	return f.Name()
}

// freeAddr returns a loopback address nothing is listening on
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

// trace logs a message if TRACE environment variable is set
func trace(t *testing.T, format string, args ...any) {
	if os.Getenv("TRACE") == "1" {
		t.Logf("TRACE: "+format, args...)
	}
}

// startLoginFront starts the server with the given config and waits for it
// to report healthy
func startLoginFront(t *testing.T, configPath, addr string, extraEnv ...string) {
	t.Helper()
	cmd := exec.Command(binaryPath, "serve", "--config", configPath)

	cmd.Env = append(os.Environ(), testEnv()...)
	cmd.Env = append(cmd.Env, extraEnv...)

	if logFile := os.Getenv("LOGIN_FRONT_LOG_FILE"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			cmd.Stderr = f
			cmd.Stdout = f
			t.Cleanup(func() { f.Close() })
		}
	}

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start login-front: %v", err)
	}
	t.Cleanup(func() {
		stopLoginFront(cmd)
	})

	waitForLoginFront(t, addr)
}

// stopLoginFront stops the server gracefully
func stopLoginFront(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-done:
		return
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
}

func waitForLoginFront(t *testing.T, addr string) {
	t.Helper()
	for range 50 {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatal("login-front failed to become ready after 10 seconds")
}

// noRedirectClient reports redirects instead of following them
func noRedirectClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
