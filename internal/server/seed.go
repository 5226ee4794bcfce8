package server

import "github.com/senseilabs/harmonyctl/internal/models"

// Seed data is deterministic so demos and tests can assert on it.

// SeedSampleData returns the activity/tasks/podcasts dataset.
func SeedSampleData() models.SampleData {
	return models.SampleData{
		ActivityPool: []models.ActivityItem{
			{ActivityType: "email", Platform: "Outlook", Action: "sent", Details: "Q3 forecast to finance", User: "Avery Chen"},
			{ActivityType: "meeting", Platform: "Teams", Action: "scheduled", Details: "Renewal sync with Acme Corp", User: "Jordan Blake"},
			{ActivityType: "note", Platform: "Conductor", Action: "created", Details: "Call summary for Northwind onboarding", User: "Avery Chen"},
			{ActivityType: "task", Platform: "Conductor", Action: "completed", Details: "Upload signed order form", User: "Sam Rivera"},
		},
		Tasks: []models.TaskItem{
			{ID: "task-001", Title: "Review renewal proposal", Description: "Acme Corp renewal lands next month", DueDate: "2026-09-05", Project: "Acme Corp", Status: "open", Priority: "high"},
			{ID: "task-002", Title: "Prep QBR deck", Description: "Pull KPI slides from the dashboard", DueDate: "2026-09-12", Project: "Northwind", Status: "open", Priority: "medium"},
			{ID: "task-003", Title: "Log onboarding call notes", DueDate: "2026-08-30", Project: "Northwind", Status: "done", Priority: "low"},
		},
		Podcasts: []models.PodcastEpisode{
			{Date: "2026-08-25", EpisodeID: "ep-014", Title: "Pipeline Review", Description: "This week's pipeline movement", Duration: "18:42", DurationSeconds: 1122},
			{Date: "2026-08-18", EpisodeID: "ep-013", Title: "Forecast Deep Dive", Description: "How the Q3 forecast was built", Duration: "24:10", DurationSeconds: 1450},
		},
	}
}

// SeedHarmonyChats returns the sample chat dataset.
func SeedHarmonyChats() models.HarmonyChats {
	return models.HarmonyChats{
		ChatList: []models.ChatListItem{
			{Name: "Acme Corp Renewal", Date: "2026-08-27", ConductorEntityID: "acct-acme", ConductorEntityName: "Acme Corp", ConductorEntityType: "account"},
			{Name: "Weekly Pipeline", Date: "2026-08-26"},
		},
		ChatMessages: map[string][]models.ChatMessage{
			"Acme Corp Renewal": {
				{ID: "m-1", Type: "user", Content: "What's the status of the Acme renewal?", Timestamp: "2026-08-27T09:12:00Z"},
				{ID: "m-2", Type: "assistant", Content: "The renewal is in legal review. The signed order form is expected by Friday.", Timestamp: "2026-08-27T09:12:04Z"},
			},
			"Weekly Pipeline": {
				{ID: "m-3", Type: "user", Content: "Summarize pipeline changes this week.", Timestamp: "2026-08-26T16:40:00Z"},
				{ID: "m-4", Type: "assistant", Content: "Two opportunities advanced to negotiation and one closed won at $48k.", Timestamp: "2026-08-26T16:40:05Z"},
			},
		},
	}
}

// SeedKPIData returns the KPI dashboard dataset.
func SeedKPIData() models.KPIData {
	return models.KPIData{
		Tiles: []models.KPITile{
			{ID: "kpi-arr", Label: "ARR", Value: 1840000, Unit: "USD", Trend: "up", Target: 2000000},
			{ID: "kpi-nrr", Label: "Net Revenue Retention", Value: 112, Unit: "%", Trend: "flat", Target: 115},
			{ID: "kpi-open-tasks", Label: "Open Tasks", Value: 2, Trend: "down"},
			{ID: "kpi-meetings", Label: "Meetings This Week", Value: 14, Trend: "up"},
		},
	}
}
