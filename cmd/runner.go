package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/senseilabs/harmonyctl/internal/endpoint"
	"github.com/senseilabs/harmonyctl/internal/pairing"
	"github.com/senseilabs/harmonyctl/internal/session"
	"github.com/senseilabs/harmonyctl/internal/shared"
	"github.com/senseilabs/harmonyctl/internal/storage"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	durable storage.Store
	flags   storage.Store
	dialer  session.Dialer
	machine *session.Machine
	dev     *session.DevStore
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Durable, Flags and Dialer are injectable for tests; when unset the runner
// opens the configured sqlite-backed store and a real pairing client on
// first use.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Durable    storage.Store
	Flags      storage.Store
	Dialer     session.Dialer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		durable:    opts.Durable,
		flags:      opts.Flags,
		dialer:     opts.Dialer,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		connectCommand, disconnectCommand, statusCommand, scanCommand, dataCommand, devCommand, serveCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the runner's database handle, if one was opened.
func (r *Runner) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// suffix returns the configured shorthand suffix.
func (r *Runner) suffix() string {
	if s := r.config.Pairing.ShorthandSuffix; s != "" {
		return s
	}
	return endpoint.DefaultSuffix
}

// timeout returns the configured pairing timeout.
func (r *Runner) timeout() time.Duration {
	if ms := r.config.Pairing.TimeoutMs; ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return pairing.DefaultTimeout
}

// ensureStores opens the credential stores on first use.
func (r *Runner) ensureStores() error {
	if r.durable != nil && r.flags != nil {
		return nil
	}

	dir := r.config.Storage.Path
	if dir == "" {
		dir = "./.harmonyctl"
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: failed to create storage directory: %v", shared.ErrStorage, err)
	}

	if r.durable == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		durable, err := storage.NewSecureStore(db, filepath.Join(dir, "store.key"), r.logger)
		if err != nil {
			db.Close()
			return err
		}
		r.db = db
		r.durable = durable
	}

	if r.flags == nil {
		r.flags = storage.NewFlagStore(filepath.Join(dir, "flags.json"), r.logger)
	}

	return nil
}

// ensureMachine builds the session machine on first use.
func (r *Runner) ensureMachine() (*session.Machine, error) {
	if r.machine != nil {
		return r.machine, nil
	}
	if err := r.ensureStores(); err != nil {
		return nil, err
	}

	if r.dialer == nil {
		r.dialer = pairing.NewClient(r.httpClient, r.logger)
	}

	r.machine = session.NewMachine(session.Options{
		Durable: r.durable,
		Flags:   r.flags,
		Dialer:  r.dialer,
		Suffix:  r.suffix(),
		Logger:  r.logger,
	})
	return r.machine, nil
}

// ensureDevStore builds the developer settings store on first use.
func (r *Runner) ensureDevStore() (*session.DevStore, error) {
	if r.dev != nil {
		return r.dev, nil
	}
	if err := r.ensureStores(); err != nil {
		return nil, err
	}

	r.dev = session.NewDevStore(r.durable, r.flags, r.logger)
	return r.dev, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
