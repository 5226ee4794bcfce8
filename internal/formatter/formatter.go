// package formatter provides functions to export backend sample data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/senseilabs/harmonyctl/internal/endpoint"
	"github.com/senseilabs/harmonyctl/internal/models"
	"github.com/senseilabs/harmonyctl/internal/shared"
)

// TasksToCSV converts a task list to CSV with columns: ID, Title, Status, Priority, Project, DueDate, Description
func TasksToCSV(tasks []models.TaskItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Status", "Priority", "Project", "DueDate", "Description"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, task := range tasks {
		record := []string{
			task.ID,
			task.Title,
			task.Status,
			task.Priority,
			task.Project,
			task.DueDate,
			task.Description,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// PodcastsToMarkdown converts podcast episodes to a Markdown listing.
func PodcastsToMarkdown(episodes []models.PodcastEpisode) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Podcast Episodes\n\n")
	buf.WriteString(fmt.Sprintf("**Episodes**: %d\n\n", len(episodes)))

	for i, ep := range episodes {
		duration := ep.Duration
		if duration == "" && ep.DurationSeconds > 0 {
			duration = shared.FormatDuration(int(ep.DurationSeconds))
		}
		datePart := ""
		if ep.Date != "" {
			datePart = fmt.Sprintf(" (%s)", ep.Date)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s", i+1, ep.Title, datePart))
		if duration != "" {
			buf.WriteString(fmt.Sprintf(" [%s]", duration))
		}
		buf.WriteString("\n")
		if ep.Description != "" {
			buf.WriteString(fmt.Sprintf("   %s\n", ep.Description))
		}
	}

	return buf.Bytes(), nil
}

// ChatsToText converts the sample chat dataset to a plain text transcript.
func ChatsToText(chats *models.HarmonyChats) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Conversations: %d\n\n", len(chats.ChatList)))

	for _, item := range chats.ChatList {
		buf.WriteString(fmt.Sprintf("## %s", item.Name))
		if item.Date != "" {
			buf.WriteString(fmt.Sprintf(" (%s)", item.Date))
		}
		buf.WriteString("\n")
		if item.ConductorEntityName != "" {
			buf.WriteString(fmt.Sprintf("Linked to: %s\n", item.ConductorEntityName))
		}
		for _, msg := range chats.ChatMessages[item.Name] {
			role := msg.Type
			if role == "" {
				role = "message"
			}
			buf.WriteString(fmt.Sprintf("  [%s] %s\n", role, msg.Content))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// KPIsToText renders KPI tiles as an aligned plain text table, sorted by label.
func KPIsToText(data *models.KPIData) ([]byte, error) {
	var buf bytes.Buffer

	tiles := make([]models.KPITile, len(data.Tiles))
	copy(tiles, data.Tiles)
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Label < tiles[j].Label })

	width := 0
	for _, tile := range tiles {
		if len(tile.Label) > width {
			width = len(tile.Label)
		}
	}

	for _, tile := range tiles {
		buf.WriteString(fmt.Sprintf("%-*s  %g", width, tile.Label, tile.Value))
		if tile.Unit != "" {
			buf.WriteString(" " + tile.Unit)
		}
		if tile.Trend != "" {
			buf.WriteString(fmt.Sprintf(" (%s)", tile.Trend))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// StatusSummary renders a session as a short plain text block for `harmonyctl status`.
func StatusSummary(details *models.SessionDetails) []byte {
	var buf bytes.Buffer

	if details == nil {
		buf.WriteString("Not connected\n")
		return buf.Bytes()
	}

	buf.WriteString("Connected\n")
	buf.WriteString(fmt.Sprintf("  Site:  %s\n", endpoint.SiteFromURL(details.APIURL, endpoint.DefaultSuffix)))
	buf.WriteString(fmt.Sprintf("  URL:   %s\n", details.APIURL))
	buf.WriteString(fmt.Sprintf("  User:  %s (%s)\n", details.DisplayName, details.Username))
	buf.WriteString(fmt.Sprintf("  Email: %s\n", details.Email))
	return buf.Bytes()
}

// SampleExportResult contains the paths of files created by WriteSampleExport.
type SampleExportResult struct {
	TasksFile    string
	PodcastsFile string
}

// WriteSampleExport writes the sample dataset to disk as {base}_tasks.csv and {base}_podcasts.md.
func WriteSampleExport(data *models.SampleData, baseFilepath string) (*SampleExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "sample"
	}

	csvData, err := TasksToCSV(data.Tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tasksFile := baseFilepath + "_tasks.csv"
	if err := os.WriteFile(tasksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	mdData, err := PodcastsToMarkdown(data.Podcasts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	podcastsFile := baseFilepath + "_podcasts.md"
	if err := os.WriteFile(podcastsFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return &SampleExportResult{
		TasksFile:    tasksFile,
		PodcastsFile: podcastsFile,
	}, nil
}

// WriteJSONExport writes any dataset to {base}.json, indented.
func WriteJSONExport(v any, baseFilepath string) (string, error) {
	if baseFilepath == "" {
		baseFilepath = "export"
	}

	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	path := baseFilepath + ".json"
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}
