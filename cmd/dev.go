package main

import (
	"context"
	"fmt"

	"github.com/senseilabs/harmonyctl/internal/models"
	"github.com/senseilabs/harmonyctl/internal/session"
	"github.com/senseilabs/harmonyctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// DevStatus shows developer settings and whether bypass credentials exist.
func (r *Runner) DevStatus(ctx context.Context, cmd *cli.Command) error {
	dev, err := r.ensureDevStore()
	if err != nil {
		return err
	}

	settings := dev.Settings()
	creds, hasCreds := dev.BypassCredentials()

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"settings":       settings,
			"hasCredentials": hasCreds,
		}, true)
	}

	r.writePlain("Mock latency:     %v (%dms)\n", settings.EnableMockLatency, settings.MockLatencyMs)
	r.writePlain("Network logging:  %v\n", settings.EnableNetworkLogging)
	r.writePlain("QR bypass:        %v\n", settings.QRBypassEnabled)
	if hasCreds {
		r.writePlain("Credentials:      stored for %s\n", creds.InstanceURL)
	} else {
		r.writePlain("Credentials:      none\n")
	}
	return nil
}

// DevSet stores bypass credentials.
func (r *Runner) DevSet(ctx context.Context, cmd *cli.Command) error {
	dev, err := r.ensureDevStore()
	if err != nil {
		return err
	}

	creds := models.DeveloperCredentials{
		AuthToken:   cmd.String("token"),
		InstanceURL: cmd.String("url"),
		UserID:      cmd.String("user"),
		WorkspaceID: cmd.String("workspace"),
	}
	if err := creds.Session().Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if err := dev.SetBypassCredentials(&creds); err != nil {
		return err
	}

	r.writePlain("✓ Bypass credentials stored for %s\n", creds.InstanceURL)
	r.writePlain("Run `harmonyctl dev bypass` to apply them.\n")
	return nil
}

// DevBypass applies the stored bypass credentials as the active session.
func (r *Runner) DevBypass(ctx context.Context, cmd *cli.Command) error {
	dev, err := r.ensureDevStore()
	if err != nil {
		return err
	}

	creds, ok := dev.BypassCredentials()
	if !ok {
		return fmt.Errorf("%w: no bypass credentials stored, run `harmonyctl dev set` first", shared.ErrMissingConfig)
	}

	machine, err := r.ensureMachine()
	if err != nil {
		return err
	}
	machine.Initialise(ctx)

	if err := machine.ApplyDeveloperBypass(ctx, creds.Session()); err != nil {
		return err
	}

	state := machine.State()
	if state.Status != session.StatusConnected || state.Details == nil {
		return fmt.Errorf("%w: bypass did not produce a session", shared.ErrInvalidInput)
	}

	r.writePlain("✓ Connected to %s via developer bypass\n", state.Details.APIURL)
	return nil
}

// DevClear removes bypass credentials and resets developer settings.
func (r *Runner) DevClear(ctx context.Context, cmd *cli.Command) error {
	dev, err := r.ensureDevStore()
	if err != nil {
		return err
	}

	dev.Clear()
	r.writePlain("✓ Developer settings and bypass credentials cleared\n")
	return nil
}

// DevSettings updates the developer toggles that were passed as flags.
func (r *Runner) DevSettings(ctx context.Context, cmd *cli.Command) error {
	dev, err := r.ensureDevStore()
	if err != nil {
		return err
	}

	settings := dev.Update(func(s *session.DevSettings) {
		if cmd.IsSet("mock-latency") {
			s.EnableMockLatency = cmd.Bool("mock-latency")
		}
		if cmd.IsSet("latency-ms") {
			s.MockLatencyMs = int(cmd.Int("latency-ms"))
		}
		if cmd.IsSet("network-logging") {
			s.EnableNetworkLogging = cmd.Bool("network-logging")
		}
	})

	return r.writeJSON(settings, true)
}
