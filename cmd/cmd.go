// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// connectCommand pairs the client with a desktop backend.
func connectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Pair with a Conductor backend using a connection code",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "payload",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "code",
				Aliases: []string{"c"},
				Usage:   "Connection code shown on the desktop pairing screen",
			},
			&cli.StringFlag{
				Name:    "site",
				Aliases: []string{"s"},
				Usage:   "Site name or full URL of the backend",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the backend's pairing screen in the browser first",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the session as JSON",
			},
		},
		Action: r.Connect,
	}
}

// disconnectCommand clears the stored session.
func disconnectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "disconnect",
		Usage:  "Clear the stored session and return to disconnected",
		Action: r.Disconnect,
	}
}

// statusCommand reports the current session state.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current pairing status",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the state as JSON",
			},
		},
		Action: r.Status,
	}
}

// scanCommand decodes a pairing payload without connecting.
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Decode a QR/deep-link pairing payload",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "payload",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the decoded payload as JSON",
			},
		},
		Action: r.Scan,
	}
}

// dataCommand fetches the backend's sample datasets.
func dataCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "data",
		Usage: "Fetch sample data from the paired backend",
		Commands: []*cli.Command{
			{
				Name:   "sample",
				Usage:  "Fetch the activity/tasks/podcasts dataset",
				Flags:  dataFlags(),
				Action: r.DataSample,
			},
			{
				Name:    "chats",
				Aliases: []string{"harmony-chats"},
				Usage:   "Fetch the sample chat dataset",
				Flags:   dataFlags(),
				Action:  r.DataChats,
			},
			{
				Name:   "kpis",
				Usage:  "Fetch the KPI dashboard dataset",
				Flags:  dataFlags(),
				Action: r.DataKPIs,
			},
		},
	}
}

func dataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "save",
			Usage: "Save the dataset locally",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Base path for saved files",
		},
	}
}

// devCommand manages developer settings and the QR bypass.
func devCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dev",
		Usage: "Developer tools: settings and pairing bypass",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show developer settings and stored bypass credentials",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
				},
				Action: r.DevStatus,
			},
			{
				Name:  "set",
				Usage: "Store bypass credentials for pairing without a code",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token",
						Usage:    "Auth token",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "url",
						Usage:    "Instance URL",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "user",
						Usage:    "User ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "workspace",
						Usage: "Workspace ID",
					},
				},
				Action: r.DevSet,
			},
			{
				Name:   "bypass",
				Usage:  "Apply the stored bypass credentials as the active session",
				Action: r.DevBypass,
			},
			{
				Name:   "clear",
				Usage:  "Remove bypass credentials and reset developer settings",
				Action: r.DevClear,
			},
			{
				Name:  "settings",
				Usage: "Toggle developer settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "mock-latency",
						Usage: "Delay data fetches artificially",
					},
					&cli.IntFlag{
						Name:  "latency-ms",
						Usage: "Artificial latency in milliseconds",
					},
					&cli.BoolFlag{
						Name:  "network-logging",
						Usage: "Log each request's method, path, status and duration",
					},
				},
				Action: r.DevSettings,
			},
		},
	}
}

// serveCommand runs the stub desktop backend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a stub Conductor backend for local demos",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "code",
				Usage: "Connection code to accept (generated when empty)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Create a config.toml from the embedded template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the credential database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive pairing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive pairing interface",
		Action:  r.TUI,
	}
}
