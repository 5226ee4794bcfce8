package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/senseilabs/harmonyctl/internal/models"
	"github.com/senseilabs/harmonyctl/internal/shared"
	"github.com/senseilabs/harmonyctl/internal/storage"
	tu "github.com/senseilabs/harmonyctl/internal/testing"
)

var testDetails = models.SessionDetails{
	Token:       "t1",
	APIURL:      "https://acme.senseilabs.com",
	Username:    "u",
	DisplayName: "U Name",
	Email:       "u@x.com",
}

type machineFixture struct {
	machine *Machine
	durable *tu.MemoryStore
	flags   *tu.MemoryStore
	dialer  *tu.StubDialer
}

func newFixture(t *testing.T, dialer *tu.StubDialer) *machineFixture {
	t.Helper()
	if dialer == nil {
		details := testDetails
		dialer = &tu.StubDialer{Details: &details}
	}
	durable := tu.NewMemoryStore()
	flags := tu.NewMemoryStore()
	machine := NewMachine(Options{
		Durable: durable,
		Flags:   flags,
		Dialer:  dialer,
		Logger:  shared.NewLogger(io.Discard),
	})
	return &machineFixture{machine: machine, durable: durable, flags: flags, dialer: dialer}
}

func TestInitialise(t *testing.T) {
	t.Run("Fresh Store Disconnects", func(t *testing.T) {
		f := newFixture(t, nil)

		state := f.machine.Initialise(context.Background())
		if state.Status != StatusDisconnected {
			t.Errorf("expected disconnected, got %s", state.Status)
		}
		if state.Details != nil {
			t.Error("details must be nil outside connected")
		}
	})

	t.Run("Valid Record Restores Connected", func(t *testing.T) {
		f := newFixture(t, nil)
		data, _ := json.Marshal(testDetails)
		f.durable.Seed(storage.SessionKey, string(data))

		state := f.machine.Initialise(context.Background())
		if state.Status != StatusConnected {
			t.Fatalf("expected connected, got %s", state.Status)
		}
		if state.Details == nil || *state.Details != testDetails {
			t.Errorf("restored details do not match persisted record: %+v", state.Details)
		}
	})

	t.Run("Idempotent Single Read", func(t *testing.T) {
		f := newFixture(t, nil)

		first := f.machine.Initialise(context.Background())
		second := f.machine.Initialise(context.Background())
		third := f.machine.Initialise(context.Background())

		if f.durable.Reads != 1 {
			t.Errorf("expected exactly one durable read, got %d", f.durable.Reads)
		}
		if first.Status != second.Status || second.Status != third.Status {
			t.Error("repeated initialise must return the same snapshot")
		}
	})

	t.Run("Corrupt Record Surfaces Error", func(t *testing.T) {
		f := newFixture(t, nil)
		f.durable.Seed(storage.SessionKey, "not json at all {")

		state := f.machine.Initialise(context.Background())
		if state.Status != StatusError {
			t.Fatalf("expected error state, got %s", state.Status)
		}
		if state.Err == "" {
			t.Error("error state must carry a message")
		}
		if !f.durable.Has(storage.SessionKey) {
			t.Error("corrupt session record must be left in place")
		}
	})

	t.Run("Partial Record Surfaces Error", func(t *testing.T) {
		f := newFixture(t, nil)
		f.durable.Seed(storage.SessionKey, `{"token":"t1"}`)

		state := f.machine.Initialise(context.Background())
		if state.Status != StatusError {
			t.Errorf("partial record must never surface as connected, got %s", state.Status)
		}
	})
}

func TestConnect(t *testing.T) {
	t.Run("Successful Connect", func(t *testing.T) {
		f := newFixture(t, nil)

		details, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if details.APIURL != "https://acme.senseilabs.com" {
			t.Errorf("expected normalized endpoint, got %s", details.APIURL)
		}

		state := f.machine.State()
		if state.Status != StatusConnected {
			t.Fatalf("expected connected, got %s", state.Status)
		}
		if state.Details == nil {
			t.Fatal("connected state must carry details")
		}

		raw, ok := f.durable.Get(storage.SessionKey)
		if !ok {
			t.Fatal("session record must be persisted")
		}
		var persisted models.SessionDetails
		if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
			t.Fatalf("persisted record must be clean JSON: %v", err)
		}
		if persisted != *details {
			t.Errorf("persisted record must match returned details: %+v", persisted)
		}

		if flag, ok := f.flags.Get(storage.SessionStateKey); !ok || flag != `{"status":"connected"}` {
			t.Errorf("expected connected flag, got %q ok=%v", flag, ok)
		}
	})

	t.Run("Empty Code Never Dials", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "  ", APIURL: "acme"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if f.dialer.Calls() != 0 {
			t.Error("local validation failures must not reach the network")
		}
		if state := f.machine.State(); state.Status != StatusError {
			t.Errorf("expected error state, got %s", state.Status)
		}
	})

	t.Run("Bad Endpoint Never Dials", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "ftp://x.com"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if f.dialer.Calls() != 0 {
			t.Error("local validation failures must not reach the network")
		}
	})

	t.Run("Rejection Sets Error State", func(t *testing.T) {
		f := newFixture(t, &tu.StubDialer{Err: shared.ErrRejected})

		_, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"})
		if !errors.Is(err, shared.ErrRejected) {
			t.Fatalf("expected rejection to propagate, got %v", err)
		}

		state := f.machine.State()
		if state.Status != StatusError || state.Details != nil {
			t.Errorf("expected error state without details, got %+v", state)
		}
		if f.durable.Has(storage.SessionKey) {
			t.Error("failed connect must not persist anything")
		}
	})

	t.Run("Timeout Wins And Late Success Is Discarded", func(t *testing.T) {
		details := testDetails
		f := newFixture(t, &tu.StubDialer{Details: &details, Delay: 50 * time.Millisecond, IgnoreCancel: true})

		_, err := f.machine.Connect(context.Background(), ConnectRequest{
			Code:    "ABCD1234",
			APIURL:  "acme",
			Timeout: 10 * time.Millisecond,
		})
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}

		if state := f.machine.State(); state.Status != StatusError || state.Err != msgTimeout {
			t.Fatalf("expected timeout error state, got %+v", state)
		}

		// Let the stub's late success land; it must be a no-op.
		time.Sleep(100 * time.Millisecond)
		if state := f.machine.State(); state.Status != StatusError {
			t.Errorf("late success must not override the timeout, got %s", state.Status)
		}
		if f.durable.Has(storage.SessionKey) {
			t.Error("late success must not persist a session")
		}
	})

	t.Run("Second Connect While Connecting Is Rejected", func(t *testing.T) {
		details := testDetails
		f := newFixture(t, &tu.StubDialer{Details: &details, Delay: 60 * time.Millisecond})

		firstErr := make(chan error, 1)
		go func() {
			_, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"})
			firstErr <- err
		}()

		waitForStatus(t, f.machine, StatusConnecting)

		_, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "EFGH5678", APIURL: "acme"})
		if !errors.Is(err, shared.ErrAlreadyConnecting) {
			t.Fatalf("expected ErrAlreadyConnecting, got %v", err)
		}

		if err := <-firstErr; err != nil {
			t.Fatalf("first connect must succeed, got %v", err)
		}
		if state := f.machine.State(); state.Status != StatusConnected {
			t.Errorf("expected connected, got %s", state.Status)
		}
	})

	t.Run("Persist Failure Sets Error", func(t *testing.T) {
		f := newFixture(t, nil)
		f.durable.SetErr = errors.New("disk full")

		_, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"})
		if !errors.Is(err, shared.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		if state := f.machine.State(); state.Status != StatusError {
			t.Errorf("expected error state, got %s", state.Status)
		}
	})

	t.Run("Error Message Excludes Token", func(t *testing.T) {
		f := newFixture(t, &tu.StubDialer{Err: errors.New("dial tcp: connection refused token=t1")})

		f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"})
		state := f.machine.State()
		if strings.Contains(state.Err, "t1") || strings.Contains(state.Err, "https://") {
			t.Errorf("user-facing message must not leak internals: %s", state.Err)
		}
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("Clears Store And State", func(t *testing.T) {
		f := newFixture(t, nil)

		if _, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"}); err != nil {
			t.Fatalf("connect failed: %v", err)
		}

		f.machine.Disconnect(context.Background())

		if state := f.machine.State(); state.Status != StatusDisconnected || state.Details != nil {
			t.Errorf("expected disconnected without details, got %+v", state)
		}
		if f.durable.Has(storage.SessionKey) {
			t.Error("durable record must be removed")
		}
		if f.flags.Has(storage.SessionStateKey) {
			t.Error("advisory flag must be removed")
		}
	})

	t.Run("Always Transitions On Fresh Machine", func(t *testing.T) {
		f := newFixture(t, nil)
		f.machine.Disconnect(context.Background())
		if state := f.machine.State(); state.Status != StatusDisconnected {
			t.Errorf("expected disconnected, got %s", state.Status)
		}
	})
}

func TestDeveloperBypass(t *testing.T) {
	t.Run("Persists Through Normal Path", func(t *testing.T) {
		f := newFixture(t, nil)

		if err := f.machine.ApplyDeveloperBypass(context.Background(), testDetails); err != nil {
			t.Fatalf("bypass failed: %v", err)
		}
		if state := f.machine.State(); state.Status != StatusConnected {
			t.Fatalf("expected connected, got %s", state.Status)
		}

		// A fresh machine over the same stores restores the bypass session.
		restored := NewMachine(Options{
			Durable: f.durable,
			Flags:   f.flags,
			Dialer:  f.dialer,
			Logger:  shared.NewLogger(io.Discard),
		})
		state := restored.Initialise(context.Background())
		if state.Status != StatusConnected || state.Details == nil || state.Details.Token != testDetails.Token {
			t.Errorf("expected bypass session to restore, got %+v", state)
		}
	})

	t.Run("Partial Details Rejected", func(t *testing.T) {
		f := newFixture(t, nil)
		err := f.machine.ApplyDeveloperBypass(context.Background(), models.SessionDetails{Token: "t1"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestClearErrors(t *testing.T) {
	t.Run("Error To Disconnected", func(t *testing.T) {
		f := newFixture(t, &tu.StubDialer{Err: shared.ErrRejected})
		f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"})

		f.machine.ClearErrors()
		if state := f.machine.State(); state.Status != StatusDisconnected {
			t.Errorf("expected disconnected, got %s", state.Status)
		}
	})

	t.Run("No Op Outside Error", func(t *testing.T) {
		f := newFixture(t, nil)
		if _, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"}); err != nil {
			t.Fatalf("connect failed: %v", err)
		}

		f.machine.ClearErrors()
		if state := f.machine.State(); state.Status != StatusConnected {
			t.Errorf("clearErrors must not touch a connected session, got %s", state.Status)
		}
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("No Notification During Subscribe", func(t *testing.T) {
		f := newFixture(t, nil)
		f.machine.Initialise(context.Background())

		called := false
		f.machine.Subscribe(func(State) { called = true })
		if called {
			t.Error("listeners fire on transitions only, not on subscribe")
		}
		if state := f.machine.State(); state.Status != StatusDisconnected {
			t.Errorf("expected disconnected snapshot via State, got %s", state.Status)
		}
	})

	t.Run("Unsubscribe In First Notification After Late Subscribe", func(t *testing.T) {
		f := newFixture(t, nil)
		f.machine.Initialise(context.Background())

		// The handle must exist by the time the listener first fires,
		// even when the subscription happens long after the first load.
		var unsubscribe func()
		calls := 0
		unsubscribe = f.machine.Subscribe(func(State) {
			calls++
			unsubscribe()
		})

		f.machine.Disconnect(context.Background())
		f.machine.Disconnect(context.Background())

		if calls != 1 {
			t.Errorf("expected exactly one notification, got %d", calls)
		}
	})

	t.Run("Transitions In Subscription Order", func(t *testing.T) {
		f := newFixture(t, nil)
		f.machine.Initialise(context.Background())

		var order []string
		f.machine.Subscribe(func(s State) { order = append(order, "a:"+string(s.Status)) })
		f.machine.Subscribe(func(s State) { order = append(order, "b:"+string(s.Status)) })

		order = order[:0]
		if _, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"}); err != nil {
			t.Fatalf("connect failed: %v", err)
		}

		want := []string{"a:connecting", "b:connecting", "a:connected", "b:connected"}
		if len(order) != len(want) {
			t.Fatalf("expected %v, got %v", want, order)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, order)
			}
		}
	})

	t.Run("Unsubscribe During Notification", func(t *testing.T) {
		f := newFixture(t, nil)
		f.machine.Initialise(context.Background())

		var unsubscribe func()
		firstCalls, secondCalls := 0, 0
		unsubscribe = f.machine.Subscribe(func(State) {
			firstCalls++
			unsubscribe()
		})
		f.machine.Subscribe(func(State) { secondCalls++ })

		firstCalls, secondCalls = 0, 0
		f.machine.Disconnect(context.Background())

		if firstCalls != 1 {
			t.Errorf("expected first listener to fire once, got %d", firstCalls)
		}
		if secondCalls != 1 {
			t.Errorf("unsubscribing must not skip other listeners, got %d", secondCalls)
		}

		f.machine.ClearErrors() // no-op, no notifications
		firstCalls = 0
		f.machine.Disconnect(context.Background())
		if firstCalls != 0 {
			t.Error("unsubscribed listener must not fire again")
		}
	})

	t.Run("Listener Mutation Does Not Leak", func(t *testing.T) {
		f := newFixture(t, nil)

		fired := false
		f.machine.Subscribe(func(s State) {
			if s.Details != nil {
				fired = true
				s.Details.Token = "mutated"
			}
		})

		if _, err := f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"}); err != nil {
			t.Fatalf("connect failed: %v", err)
		}

		if !fired {
			t.Fatal("listener never saw the connected snapshot")
		}
		if state := f.machine.State(); state.Details.Token != "t1" {
			t.Errorf("listener mutation leaked into machine state: %s", state.Details.Token)
		}
	})
}

// waitForStatus polls until the machine reaches want or the deadline passes.
func waitForStatus(t *testing.T, m *Machine, want Status) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.State().Status == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("machine never reached %s", want)
}

// Guards the invariant that snapshots are safe to read concurrently while an
// attempt is in flight.
func TestStateSnapshotsAreRaceFree(t *testing.T) {
	details := testDetails
	f := newFixture(t, &tu.StubDialer{Details: &details, Delay: 20 * time.Millisecond})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.machine.Connect(context.Background(), ConnectRequest{Code: "ABCD1234", APIURL: "acme"})
	}()

	for i := 0; i < 50; i++ {
		_ = f.machine.State()
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	if state := f.machine.State(); state.Status != StatusConnected {
		t.Errorf("expected connected, got %s", state.Status)
	}
}
