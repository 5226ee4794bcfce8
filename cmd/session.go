package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/senseilabs/harmonyctl/internal/endpoint"
	"github.com/senseilabs/harmonyctl/internal/formatter"
	"github.com/senseilabs/harmonyctl/internal/pairing"
	"github.com/senseilabs/harmonyctl/internal/session"
	"github.com/senseilabs/harmonyctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// Connect pairs with a backend using a code and site, or a scanned payload.
func (r *Runner) Connect(ctx context.Context, cmd *cli.Command) error {
	code := cmd.String("code")
	site := cmd.String("site")

	if payload := cmd.StringArg("payload"); payload != "" {
		decoded, ok := pairing.ParsePayload(payload)
		if !ok {
			return fmt.Errorf("%w: could not decode pairing payload", shared.ErrInvalidPayload)
		}
		code = decoded.Code
		site = decoded.APIURL
	}

	if site == "" {
		site = r.config.Pairing.DefaultSite
	}
	if code == "" || site == "" {
		return fmt.Errorf("%w: a connection code and site are required", shared.ErrMissingArgument)
	}

	if cmd.Bool("open") {
		if url, err := endpoint.NormalizeWithSuffix(site, r.suffix()); err == nil {
			if err := shared.OpenBrowser(url); err != nil {
				r.logger.Warnf("failed to open browser: %v", err)
			}
		}
	}

	machine, err := r.ensureMachine()
	if err != nil {
		return err
	}
	machine.Initialise(ctx)

	r.logger.Info("connecting", "site", site)

	details, err := machine.Connect(ctx, session.ConnectRequest{
		Code:    code,
		APIURL:  site,
		Timeout: r.timeout(),
	})
	if err != nil {
		state := machine.State()
		if state.Err != "" {
			return fmt.Errorf("%w: %s", err, state.Err)
		}
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(details, true)
	}

	r.writePlain("✓ Connected to %s\n", details.APIURL)
	r.writePlain("Signed in as %s (%s)\n", details.DisplayName, details.Email)
	return nil
}

// Disconnect clears the stored session.
func (r *Runner) Disconnect(ctx context.Context, cmd *cli.Command) error {
	machine, err := r.ensureMachine()
	if err != nil {
		return err
	}
	machine.Initialise(ctx)
	machine.Disconnect(ctx)

	r.writePlain("Disconnected\n")
	return nil
}

// Status reports the current session state.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	machine, err := r.ensureMachine()
	if err != nil {
		return err
	}
	state := machine.Initialise(ctx)

	if cmd.Bool("json") {
		return r.writeJSON(state, true)
	}

	if state.Status == session.StatusError {
		r.writePlain("Error: %s\n", state.Err)
		return nil
	}

	r.output.Write(formatter.StatusSummary(state.Details))
	return nil
}

// Scan decodes a pairing payload without connecting.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("payload")
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: a payload argument is required", shared.ErrMissingArgument)
	}

	decoded, ok := pairing.ParsePayload(raw)
	if !ok {
		return fmt.Errorf("%w: could not decode pairing payload", shared.ErrInvalidPayload)
	}

	if cmd.Bool("json") {
		return r.writeJSON(decoded, true)
	}

	r.writePlain("Code: %s\n", pairing.FormatCode(decoded.Code))
	r.writePlain("Site: %s\n", decoded.APIURL)
	return nil
}
