package main

import (
	"context"
	"fmt"

	"github.com/senseilabs/harmonyctl/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the stub desktop backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := cmd.String("host")
	if host == "" {
		host = r.config.Server.Host
	}
	if host == "" {
		host = "127.0.0.1"
	}

	port := int(cmd.Int("port"))
	if port == 0 {
		port = r.config.Server.Port
	}
	if port == 0 {
		port = 4632
	}

	backend := server.NewBackend(server.Options{
		Code:                 cmd.String("code"),
		ConnectRatePerMinute: r.config.Server.ConnectRatePerMinute,
		Logger:               r.logger,
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	r.writePlain("Stub backend listening on http://%s\n", addr)
	r.writePlain("Connection code: %s\n\n", backend.Code())
	r.writePlain("%s", pairingHint(backend.Code()))

	return backend.ListenAndServe(ctx, addr)
}

// pairingHint explains how to pair against the stub. Clients normalize every
// site to https, so the stub's plaintext address cannot be dialed directly;
// it has to sit behind an https-terminating tunnel or proxy.
func pairingHint(code string) string {
	return fmt.Sprintf(
		"Clients always dial https. Expose this stub behind an https address\n"+
			"(an `ngrok http <port>` tunnel works), then pair with:\n"+
			"  harmonyctl connect --code %s --site <https-address>\n",
		code,
	)
}
