// Package main provides a CI-friendly smoke test for the chai auth session API.
//
// It validates:
//   - register + login
//   - /me with the access token
//   - refresh rotation
//   - replay of a rotated refresh token is rejected as token_reused
//   - logout revokes the current refresh token
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"
)

type session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type smokeClient struct {
	base    string
	http    *http.Client
	timeout time.Duration
	verbose bool
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080/api/v1/users", "Auth API base URL")
		pw       = flag.String("password", "", "Password for the throwaway account (random when empty)")
		prompt   = flag.Bool("prompt", false, "Read the password from the terminal")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
		username = flag.String("username", "", "Username to register (random when empty)")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	secret := *pw
	if *prompt {
		secret = mustReadPassword()
	}
	if secret == "" {
		secret = "smoke-" + uuid.NewString()
	}

	user := *username
	if user == "" {
		user = "smoke_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{},
		timeout: *timeout,
		verbose: *verbose,
	}
	root := context.Background()

	c.mustStatus(root, http.MethodPost, "/register", "", map[string]string{
		"full_name": "Smoke Test",
		"email":     user + "@example.com",
		"username":  user,
		"password":  secret,
	}, http.StatusCreated, nil)

	var login struct {
		Session session `json:"session"`
	}
	c.mustStatus(root, http.MethodPost, "/login", "", map[string]string{
		"identifier": user,
		"password":   secret,
	}, http.StatusOK, &login)
	first := login.Session

	c.mustStatus(root, http.MethodGet, "/me", first.AccessToken, nil, http.StatusOK, nil)

	var rotated struct {
		Session session `json:"session"`
	}
	c.mustStatus(root, http.MethodPost, "/refresh-token", "", map[string]string{
		"refresh_token": first.RefreshToken,
	}, http.StatusOK, &rotated)
	if rotated.Session.RefreshToken == first.RefreshToken {
		fatalf("refresh: token was not rotated")
	}

	c.mustErrorCode(root, "/refresh-token", map[string]string{"refresh_token": first.RefreshToken}, "token_reused")

	c.mustStatus(root, http.MethodPost, "/logout", rotated.Session.AccessToken, nil, http.StatusNoContent, nil)

	c.mustErrorCode(root, "/refresh-token", map[string]string{"refresh_token": rotated.Session.RefreshToken}, "token_reused")

	fmt.Printf("OK: user=%s base=%s\n", user, c.base)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func mustReadPassword() string {
	fd := int(os.Stdin.Fd()) // #nosec G115 -- file descriptors fit in int.
	if !term.IsTerminal(fd) {
		fatalf("-prompt requires a terminal on stdin")
	}
	fmt.Fprint(os.Stderr, "password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatalf("read password: %v", err)
	}
	return strings.TrimSpace(string(b))
}

func (c *smokeClient) do(parent context.Context, method, path, bearer string, body any) (int, []byte) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fatalf("%s %s: encode: %v", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fatalf("%s %s: read body: %v", method, path, err)
	}
	if c.verbose {
		fmt.Printf("%s %s -> %d\n", method, path, resp.StatusCode)
	}
	return resp.StatusCode, out
}

func (c *smokeClient) mustStatus(ctx context.Context, method, path, bearer string, body any, want int, dst any) {
	got, out := c.do(ctx, method, path, bearer, body)
	if got != want {
		fatalf("%s %s: status=%d want=%d body=%s", method, path, got, want, out)
	}
	if dst != nil {
		if err := json.Unmarshal(out, dst); err != nil {
			fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func (c *smokeClient) mustErrorCode(ctx context.Context, path string, body any, code string) {
	got, out := c.do(ctx, http.MethodPost, path, "", body)
	if got != http.StatusUnauthorized {
		fatalf("POST %s: status=%d want=401 body=%s", path, got, out)
	}
	var e apiError
	if err := json.Unmarshal(out, &e); err != nil {
		fatalf("POST %s: decode error: %v", path, err)
	}
	if e.Error.Code != code {
		fatalf("POST %s: code=%q want=%q", path, e.Error.Code, code)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
