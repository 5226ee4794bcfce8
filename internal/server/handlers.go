package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/senseilabs/harmonyctl/internal/services"
	"github.com/senseilabs/harmonyctl/internal/shared"
	"golang.org/x/time/rate"
)

// ConnectPath is the pairing route, shared with the client.
const ConnectPath = "/api/mobile/connect"

// Identity is the account the stub backend reports after pairing.
type Identity struct {
	Username    string
	DisplayName string
	Email       string
}

// DefaultIdentity is used when no identity is configured.
var DefaultIdentity = Identity{
	Username:    "demo",
	DisplayName: "Demo User",
	Email:       "demo@harmony.test",
}

// Options configures a [Backend].
type Options struct {
	// Code is the connection code to accept. Generated when empty.
	Code string
	// Identity reported on successful pairing. Defaults to [DefaultIdentity].
	Identity Identity
	// ConnectRatePerMinute caps pairing attempts. Defaults to 12.
	ConnectRatePerMinute int
	Logger               *log.Logger
}

// Backend holds the stub's pairing state: one single-use code and the bearer
// token it trades for.
type Backend struct {
	mu       sync.Mutex
	code     string
	consumed bool
	token    string

	identity Identity
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewBackend creates a stub backend with a fresh single-use code and token.
func NewBackend(opts Options) *Backend {
	code := opts.Code
	if code == "" {
		code = GenerateCode()
	}
	identity := opts.Identity
	if identity == (Identity{}) {
		identity = DefaultIdentity
	}
	perMinute := opts.ConnectRatePerMinute
	if perMinute <= 0 {
		perMinute = 12
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Backend{
		code:     code,
		token:    shared.GenerateID(),
		identity: identity,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		logger:   logger,
	}
}

// GenerateCode returns an eight-character uppercase connection code.
func GenerateCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(shared.GenerateID(), "-", ""))
	return raw[:8]
}

// Code returns the connection code the backend will accept.
func (b *Backend) Code() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.code
}

// Token returns the bearer token issued on pairing, for tests.
func (b *Backend) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

// Router assembles the backend's routes with logging and rate limiting.
func (b *Backend) Router() *BasicRouter {
	router := NewBasicRouter()
	router.Use(LoggingMiddleware(b.logger))

	connect := RateLimitMiddleware(b.limiter)(&ConnectHandler{backend: b})
	router.Handle(http.MethodPost, ConnectPath, connect)
	router.Handler(&DataHandler{backend: b})

	return router
}

// ListenAndServe runs the backend on addr until ctx is canceled.
func (b *Backend) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           b.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	b.logger.Infof("stub backend listening on %s (connection code %s)", addr, b.Code())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// authorized reports whether the request carries the issued bearer token and
// the token has actually been issued (code consumed).
func (b *Backend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.consumed {
		return false
	}
	return r.Header.Get("Authorization") == "Bearer "+b.token
}

// redeem consumes the code if it matches and has not been used.
func (b *Backend) redeem(code string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumed || !strings.EqualFold(code, b.code) {
		return "", false
	}
	b.consumed = true
	return b.token, true
}

// ConnectHandler serves the pairing endpoint.
type ConnectHandler struct {
	backend *Backend
}

// Routes returns the HTTP routes this handler serves.
func (h *ConnectHandler) Routes() []string {
	return []string{ConnectPath}
}

// ServeHTTP validates the submitted code and issues the session payload.
//
// The code is single use: after the first successful exchange every request
// gets 401, same as an expired code.
func (h *ConnectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "A connection code is required.")
		return
	}

	token, ok := h.backend.redeem(strings.TrimSpace(req.Code))
	if !ok {
		writeError(w, http.StatusUnauthorized, "Expired or invalid connection code.")
		return
	}

	identity := h.backend.identity
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"token":       token,
		"username":    identity.Username,
		"displayName": identity.DisplayName,
		"email":       identity.Email,
		"apiUrl":      fmt.Sprintf("http://%s", r.Host),
	})
}

// DataHandler serves the bearer-guarded sample datasets.
type DataHandler struct {
	backend *Backend
}

// Routes returns the HTTP routes this handler serves.
func (h *DataHandler) Routes() []string {
	return []string{
		services.SampleDataPath,
		services.HarmonyChatsPath,
		services.KPIDataPath,
	}
}

func (h *DataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
		return
	}
	if !h.backend.authorized(r) {
		writeError(w, http.StatusUnauthorized, "A valid session token is required.")
		return
	}

	switch r.URL.Path {
	case services.SampleDataPath:
		writeJSON(w, http.StatusOK, SeedSampleData())
	case services.HarmonyChatsPath:
		writeJSON(w, http.StatusOK, SeedHarmonyChats())
	case services.KPIDataPath:
		writeJSON(w, http.StatusOK, SeedKPIData())
	default:
		writeError(w, http.StatusNotFound, "Unknown dataset.")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
