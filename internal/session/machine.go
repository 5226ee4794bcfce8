package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/senseilabs/harmonyctl/internal/endpoint"
	"github.com/senseilabs/harmonyctl/internal/models"
	"github.com/senseilabs/harmonyctl/internal/pairing"
	"github.com/senseilabs/harmonyctl/internal/shared"
	"github.com/senseilabs/harmonyctl/internal/storage"
)

// Status enumerates the lifecycle states of a session.
type Status string

const (
	StatusUnknown      Status = "unknown"
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// State is an immutable snapshot of the session lifecycle.
//
// Details is non-nil exactly when Status is [StatusConnected]; Err is
// non-empty exactly when Status is [StatusError].
type State struct {
	Status  Status                 `json:"status"`
	Details *models.SessionDetails `json:"details,omitempty"`
	Err     string                 `json:"error,omitempty"`
}

// clone deep-copies the snapshot so listeners cannot mutate machine state.
func (s State) clone() State {
	out := s
	if s.Details != nil {
		details := *s.Details
		out.Details = &details
	}
	return out
}

// ConnectRequest is the ephemeral input of a connection attempt.
type ConnectRequest struct {
	Code    string
	APIURL  string
	Timeout time.Duration
}

// Listener receives state snapshots on every transition.
type Listener func(State)

// Dialer performs the connection-code exchange. Implemented by
// [pairing.Client]; stubbed in tests.
type Dialer interface {
	Connect(ctx context.Context, baseURL, code string, timeout time.Duration) (*models.SessionDetails, error)
}

const connectedFlag = `{"status":"connected"}`

// User-facing messages. Free text, but never the raw token or internal URLs.
const (
	msgInvalidInput    = "Please provide a valid code and site."
	msgTimeout         = "Connection timed out. Please try again."
	msgInvalidResponse = "Received an invalid response while connecting. Please try again."
	msgUnreachable     = "Unable to reach the server. Check the site name and try again."
	msgCorruptSession  = "Your saved session could not be read. Disconnect and pair again."
	msgStorageFailure  = "Connected, but the session could not be saved."
)

// Options configures a [Machine].
type Options struct {
	Durable storage.Store
	Flags   storage.Store
	Dialer  Dialer
	// Suffix is the shorthand domain for bare site names; defaults to
	// [endpoint.DefaultSuffix].
	Suffix string
	Logger *log.Logger
}

// Machine is the session lifecycle state machine. Construct once per process
// with [NewMachine] and inject it into every surface that needs session state.
type Machine struct {
	mu        sync.Mutex
	state     State
	loaded    bool
	attempt   int
	listeners []listenerEntry
	nextID    int

	durable storage.Store
	flags   storage.Store
	dialer  Dialer
	suffix  string
	logger  *log.Logger
}

type listenerEntry struct {
	id int
	fn Listener
}

// NewMachine creates a Machine in [StatusUnknown]; call [Machine.Initialise]
// (or any operation, which initialises lazily) to restore a persisted session.
func NewMachine(opts Options) *Machine {
	if opts.Suffix == "" {
		opts.Suffix = endpoint.DefaultSuffix
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Machine{
		state:   State{Status: StatusUnknown},
		durable: opts.Durable,
		flags:   opts.Flags,
		dialer:  opts.Dialer,
		suffix:  opts.Suffix,
		logger:  opts.Logger,
	}
}

// State returns an immutable snapshot of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers a listener and returns its unsubscribe function.
//
// The listener fires on transitions only, never during Subscribe itself, so
// the unsubscribe handle always exists by the first notification; read
// [Machine.State] for the current snapshot. Listeners are notified
// synchronously on every transition, in subscription order; unsubscribing
// during notification is safe and does not skip other listeners.
func (m *Machine) Subscribe(fn Listener) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, entry := range m.listeners {
			if entry.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Initialise restores a persisted session, if any, and returns the resulting
// snapshot. Idempotent: the durable store is read at most once per machine.
func (m *Machine) Initialise(ctx context.Context) State {
	m.ensureLoaded()
	return m.State()
}

// ensureLoaded performs the one-time durable read guarded by the loaded flag.
func (m *Machine) ensureLoaded() {
	m.mu.Lock()
	if m.loaded {
		m.mu.Unlock()
		return
	}
	m.loaded = true
	m.mu.Unlock()

	raw, ok := m.durable.Get(storage.SessionKey)
	if !ok {
		m.setState(State{Status: StatusDisconnected})
		return
	}

	var details models.SessionDetails
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		// The record is left in place so the user is told, rather than
		// silently reading as logged-out. Disconnect clears it.
		m.logger.Warnf("stored session is unreadable: %v", err)
		m.setState(State{Status: StatusError, Err: msgCorruptSession})
		return
	}
	if err := details.Validate(); err != nil {
		m.logger.Warnf("stored session is incomplete: %v", err)
		m.setState(State{Status: StatusError, Err: msgCorruptSession})
		return
	}

	m.setState(State{Status: StatusConnected, Details: &details})
}

type dialResult struct {
	details *models.SessionDetails
	err     error
}

// Connect exchanges the request's code for session details, persists them,
// and transitions to [StatusConnected].
//
// Local validation failures never reach the network. Any failure puts the
// machine in [StatusError] with a user-facing message and is returned with
// its category intact for logging. A second Connect while one is in flight
// is rejected with [shared.ErrAlreadyConnecting].
func (m *Machine) Connect(ctx context.Context, req ConnectRequest) (*models.SessionDetails, error) {
	m.ensureLoaded()

	code := strings.TrimSpace(req.Code)

	m.mu.Lock()
	if m.state.Status == StatusConnecting {
		m.mu.Unlock()
		return nil, shared.ErrAlreadyConnecting
	}

	baseURL, normErr := endpoint.NormalizeWithSuffix(req.APIURL, m.suffix)
	if code == "" || normErr != nil {
		notify := m.setLocked(State{Status: StatusError, Err: msgInvalidInput})
		m.mu.Unlock()
		notify()
		if normErr != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, normErr)
		}
		return nil, fmt.Errorf("%w: empty code", shared.ErrInvalidInput)
	}

	m.attempt++
	attempt := m.attempt
	notify := m.setLocked(State{Status: StatusConnecting})
	m.mu.Unlock()
	notify()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// Request task and timer task race; the loser's completion is a no-op.
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan dialResult, 1)
	go func() {
		details, err := m.dialer.Connect(dialCtx, baseURL, code, timeout)
		resultCh <- dialResult{details: details, err: err}
	}()

	var res dialResult
	select {
	case res = <-resultCh:
	case <-dialCtx.Done():
		res = dialResult{err: fmt.Errorf("%w after %s", shared.ErrTimeout, timeout)}
	}

	m.mu.Lock()
	if m.attempt != attempt || m.state.Status != StatusConnecting {
		m.mu.Unlock()
		m.logger.Debug("discarding stale connection result", "attempt", attempt)
		if res.err != nil {
			return nil, res.err
		}
		return nil, fmt.Errorf("connection attempt superseded")
	}

	if res.err != nil {
		notify := m.setLocked(State{Status: StatusError, Err: messageFor(res.err)})
		m.mu.Unlock()
		notify()
		return nil, res.err
	}

	details := res.details
	if err := m.persist(details); err != nil {
		notify := m.setLocked(State{Status: StatusError, Err: msgStorageFailure})
		m.mu.Unlock()
		notify()
		return nil, err
	}

	notify = m.setLocked(State{Status: StatusConnected, Details: details})
	m.mu.Unlock()
	notify()
	return details, nil
}

// Disconnect clears the persisted session and transitions to
// [StatusDisconnected]. It never fails outward: storage clearing is
// best-effort and the state transition is unconditional.
func (m *Machine) Disconnect(ctx context.Context) {
	m.ensureLoaded()

	if err := m.durable.Remove(storage.SessionKey); err != nil {
		m.logger.Warnf("failed to clear stored session: %v", err)
	}
	if err := m.flags.Remove(storage.SessionStateKey); err != nil {
		m.logger.Warnf("failed to clear session flag: %v", err)
	}

	m.mu.Lock()
	m.attempt++ // invalidates any in-flight attempt
	notify := m.setLocked(State{Status: StatusDisconnected})
	m.mu.Unlock()
	notify()
}

// ApplyDeveloperBypass persists details directly, without the pairing
// exchange, through the same path as a normal connect so restore-on-restart
// behaves identically. Test-only path.
func (m *Machine) ApplyDeveloperBypass(ctx context.Context, details models.SessionDetails) error {
	m.ensureLoaded()

	if err := details.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if err := m.persist(&details); err != nil {
		return err
	}

	m.mu.Lock()
	m.attempt++
	notify := m.setLocked(State{Status: StatusConnected, Details: &details})
	m.mu.Unlock()
	notify()
	return nil
}

// ClearErrors transitions [StatusError] to [StatusDisconnected]; no-op in any
// other state.
func (m *Machine) ClearErrors() {
	m.mu.Lock()
	if m.state.Status != StatusError {
		m.mu.Unlock()
		return
	}
	notify := m.setLocked(State{Status: StatusDisconnected})
	m.mu.Unlock()
	notify()
}

// persist writes the session record and the advisory connected flag.
func (m *Machine) persist(details *models.SessionDetails) error {
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	if err := m.durable.Set(storage.SessionKey, string(data)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	if err := m.flags.Set(storage.SessionStateKey, connectedFlag); err != nil {
		m.logger.Warnf("failed to write session flag: %v", err)
	}
	return nil
}

// setState replaces the state and notifies listeners.
func (m *Machine) setState(next State) {
	m.mu.Lock()
	notify := m.setLocked(next)
	m.mu.Unlock()
	notify()
}

// setLocked replaces the state under m.mu and returns the notification to run
// after the lock is released, so listeners can call back into the machine.
func (m *Machine) setLocked(next State) func() {
	m.state = next
	entries := make([]listenerEntry, len(m.listeners))
	copy(entries, m.listeners)
	snapshot := next.clone()

	return func() {
		for _, entry := range entries {
			entry.fn(snapshot.clone())
		}
	}
}

// messageFor maps a failure category onto the user-facing message.
func messageFor(err error) string {
	var rejection *pairing.RejectionError
	switch {
	case errors.Is(err, shared.ErrTimeout):
		return msgTimeout
	case errors.As(err, &rejection):
		return rejection.Message
	case errors.Is(err, shared.ErrRejected):
		return "Unable to connect with the provided code."
	case errors.Is(err, shared.ErrInvalidResponse):
		return msgInvalidResponse
	default:
		return msgUnreachable
	}
}
