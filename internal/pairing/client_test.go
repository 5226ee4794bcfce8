package pairing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/senseilabs/harmonyctl/internal/shared"
	tu "github.com/senseilabs/harmonyctl/internal/testing"
)

func newTestClient(httpClient *http.Client) *Client {
	return NewClient(httpClient, shared.NewLogger(io.Discard))
}

func TestClientConnect(t *testing.T) {
	t.Run("Successful Exchange", func(t *testing.T) {
		var gotBody map[string]string
		var gotAccept, gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/mobile/connect" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			gotAccept = r.Header.Get("Accept")
			gotContentType = r.Header.Get("Content-Type")
			json.NewDecoder(r.Body).Decode(&gotBody)
			json.NewEncoder(w).Encode(map[string]any{
				"success":  true,
				"token":    "t1",
				"username": "u",
				"name":     "U Name",
				"email":    "u@x.com",
				"apiUrl":   "https://attacker.example",
			})
		}))
		defer server.Close()

		details, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if gotBody["code"] != "ABCD1234" {
			t.Errorf("expected code in request body, got %v", gotBody)
		}
		if gotAccept != "application/json" || gotContentType != "application/json" {
			t.Errorf("expected JSON headers, got accept=%s content-type=%s", gotAccept, gotContentType)
		}
		if details.Token != "t1" || details.Username != "u" || details.DisplayName != "U Name" || details.Email != "u@x.com" {
			t.Errorf("unexpected details: %+v", details)
		}
		if details.APIURL != server.URL {
			t.Errorf("request URL must win over echoed apiUrl, got %s", details.APIURL)
		}
	})

	t.Run("DisplayName Key Accepted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"token":       "t1",
				"username":    "u",
				"displayName": "U Name",
				"email":       "u@x.com",
			})
		}))
		defer server.Close()

		details, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if details.DisplayName != "U Name" {
			t.Errorf("expected displayName to be honored, got %s", details.DisplayName)
		}
	})

	t.Run("Prefixed Body Sanitized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "\uFEFFwhile(1);{\"success\":true,\"token\":\"t1\",\"username\":\"u\",\"name\":\"U\",\"email\":\"u@x.com\"}")
		}))
		defer server.Close()

		if _, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 0); err != nil {
			t.Fatalf("expected sanitized body to parse, got %v", err)
		}
	})

	t.Run("Angular Prefix Sanitized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, ")]}',\n{\"success\":true,\"token\":\"t1\",\"username\":\"u\",\"name\":\"U\",\"email\":\"u@x.com\"}")
		}))
		defer server.Close()

		if _, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 0); err != nil {
			t.Fatalf("expected sanitized body to parse, got %v", err)
		}
	})

	t.Run("Unauthorized Without Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 0)
		if !errors.Is(err, shared.ErrRejected) {
			t.Fatalf("expected ErrRejected, got %v", err)
		}

		var rej *RejectionError
		if !errors.As(err, &rej) {
			t.Fatalf("expected RejectionError, got %T", err)
		}
		if rej.Status != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rej.Status)
		}
		if rej.Message != "Expired or invalid connection code." {
			t.Errorf("unexpected message: %s", rej.Message)
		}
	})

	t.Run("Rejection Message From Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "code already used"})
		}))
		defer server.Close()

		var rej *RejectionError
		_, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 0)
		if !errors.As(err, &rej) {
			t.Fatalf("expected RejectionError, got %v", err)
		}
		if rej.Message != "code already used" || rej.Status != http.StatusForbidden {
			t.Errorf("unexpected rejection: %+v", rej)
		}
	})

	t.Run("Success Status With Garbage Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>not json</html>")
		}))
		defer server.Close()

		_, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 0)
		if !errors.Is(err, shared.ErrInvalidResponse) {
			t.Errorf("expected ErrInvalidResponse, got %v", err)
		}
	})

	t.Run("Success Status With Empty Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		_, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 0)
		if !errors.Is(err, shared.ErrInvalidResponse) {
			t.Errorf("expected ErrInvalidResponse, got %v", err)
		}
	})

	t.Run("Incomplete Fields Without Success Flag", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"token": "t1", "username": "u"})
		}))
		defer server.Close()

		_, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 0)
		if !errors.Is(err, shared.ErrInvalidResponse) {
			t.Errorf("expected ErrInvalidResponse, got %v", err)
		}
	})

	t.Run("Success Flag With Empty Token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"success": true, "token": "", "username": "u", "name": "U", "email": "u@x.com"})
		}))
		defer server.Close()

		_, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 0)
		if !errors.Is(err, shared.ErrInvalidResponse) {
			t.Errorf("expected ErrInvalidResponse, got %v", err)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}))
		defer server.Close()

		start := time.Now()
		_, err := newTestClient(nil).Connect(context.Background(), server.URL, "ABCD1234", 30*time.Millisecond)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("timeout did not cancel the request promptly, took %s", elapsed)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		client := &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused")),
		}

		_, err := newTestClient(client).Connect(context.Background(), "https://acme.senseilabs.com", "ABCD1234", 0)
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})
}

func TestSanitizeBody(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"BOM", "\uFEFF{}", "{}"},
		{"While Prefix", "while(1);{}", "{}"},
		{"While Prefix Spaced", "while (1); {}", "{}"},
		{"Angular Prefix", ")]}',\n{}", "{}"},
		{"Angular Prefix No Comma", ")]}'{}", "{}"},
		{"Clean Body Untouched", `{"a":1}`, `{"a":1}`},
		{"Whitespace Trimmed", "  {} \n", "{}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeBody(tc.in); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
