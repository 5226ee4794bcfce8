package main

import (
	"context"
	"fmt"
	"time"

	"github.com/senseilabs/harmonyctl/internal/formatter"
	"github.com/senseilabs/harmonyctl/internal/services"
	"github.com/senseilabs/harmonyctl/internal/session"
	"github.com/senseilabs/harmonyctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// apiService builds an authenticated client for the current session,
// honoring the developer settings.
func (r *Runner) apiService(ctx context.Context) (*services.APIService, error) {
	machine, err := r.ensureMachine()
	if err != nil {
		return nil, err
	}
	state := machine.Initialise(ctx)
	if state.Status != session.StatusConnected {
		return nil, fmt.Errorf("%w: run `harmonyctl connect` first", shared.ErrNotConnected)
	}

	dev, err := r.ensureDevStore()
	if err != nil {
		return nil, err
	}
	settings := dev.Settings()

	if settings.EnableMockLatency && settings.MockLatencyMs > 0 {
		r.logger.Debug("applying mock latency", "ms", settings.MockLatencyMs)
		select {
		case <-time.After(time.Duration(settings.MockLatencyMs) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return services.NewAPIService(*state.Details,
		services.WithHTTPClient(r.httpClient),
		services.WithLogger(r.logger),
		services.WithNetworkLogging(settings.EnableNetworkLogging),
	), nil
}

// DataSample fetches and renders the activity/tasks/podcasts dataset.
func (r *Runner) DataSample(ctx context.Context, cmd *cli.Command) error {
	api, err := r.apiService(ctx)
	if err != nil {
		return err
	}

	data, err := api.FetchSampleData(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("save") {
		result, err := formatter.WriteSampleExport(data, cmd.String("output"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Saved %s and %s\n", result.TasksFile, result.PodcastsFile)
	}

	if cmd.Bool("json") {
		return r.writeJSON(data, cmd.Bool("pretty"))
	}

	r.writePlain("Activity: %d items, Tasks: %d, Podcasts: %d\n\n", len(data.ActivityPool), len(data.Tasks), len(data.Podcasts))

	csvData, err := formatter.TasksToCSV(data.Tasks)
	if err != nil {
		return err
	}
	r.output.Write(csvData)
	return nil
}

// DataChats fetches and renders the sample chat dataset.
func (r *Runner) DataChats(ctx context.Context, cmd *cli.Command) error {
	api, err := r.apiService(ctx)
	if err != nil {
		return err
	}

	data, err := api.FetchHarmonyChats(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("save") {
		path, err := formatter.WriteJSONExport(data, saveBase(cmd, "harmony_chats"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Saved %s\n", path)
	}

	if cmd.Bool("json") {
		return r.writeJSON(data, cmd.Bool("pretty"))
	}

	text, err := formatter.ChatsToText(data)
	if err != nil {
		return err
	}
	r.output.Write(text)
	return nil
}

// DataKPIs fetches and renders the KPI dashboard dataset.
func (r *Runner) DataKPIs(ctx context.Context, cmd *cli.Command) error {
	api, err := r.apiService(ctx)
	if err != nil {
		return err
	}

	data, err := api.FetchKPIData(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("save") {
		path, err := formatter.WriteJSONExport(data, saveBase(cmd, "kpis"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Saved %s\n", path)
	}

	if cmd.Bool("json") {
		return r.writeJSON(data, cmd.Bool("pretty"))
	}

	text, err := formatter.KPIsToText(data)
	if err != nil {
		return err
	}
	r.output.Write(text)
	return nil
}

func saveBase(cmd *cli.Command, fallback string) string {
	if base := cmd.String("output"); base != "" {
		return base
	}
	return fallback
}
