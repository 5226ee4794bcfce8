package models

import (
	"fmt"
	"net/url"
	"strings"
)

// SessionDetails is the authenticated identity record for a paired backend.
type SessionDetails struct {
	Token       string `json:"token"`
	APIURL      string `json:"apiUrl"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Validate checks that every field is present and that APIURL parses as http or https.
func (d SessionDetails) Validate() error {
	if d.Token == "" || d.APIURL == "" || d.Username == "" || d.DisplayName == "" || d.Email == "" {
		return fmt.Errorf("session details are incomplete")
	}
	u, err := url.Parse(d.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url: %s", d.APIURL)
	}
	return nil
}

// DeveloperCredentials is the lower-trust record behind the QR bypass path.
type DeveloperCredentials struct {
	AuthToken   string `json:"authToken"`
	InstanceURL string `json:"instanceUrl"`
	UserID      string `json:"userId"`
	WorkspaceID string `json:"workspaceId"`
}

// Session maps developer credentials into a full [SessionDetails] record
// with a synthetic display name and email.
func (c DeveloperCredentials) Session() SessionDetails {
	display := strings.TrimSpace(c.UserID)
	if display == "" {
		display = "Developer"
	}
	return SessionDetails{
		Token:       c.AuthToken,
		APIURL:      c.InstanceURL,
		Username:    c.UserID,
		DisplayName: display,
		Email:       fmt.Sprintf("%s@harmony.test", c.UserID),
	}
}

// ActivityItem is one entry of the backend's sample activity feed.
type ActivityItem struct {
	ActivityType string `json:"activityType,omitempty"`
	Platform     string `json:"platform,omitempty"`
	Action       string `json:"action,omitempty"`
	Details      string `json:"details,omitempty"`
	User         string `json:"user,omitempty"`
}

// TaskItem is one entry of the backend's sample task list.
type TaskItem struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	Project     string `json:"project,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// PodcastEpisode is one entry of the backend's sample podcast feed.
type PodcastEpisode struct {
	Date            string  `json:"date,omitempty"`
	EpisodeID       string  `json:"episodeId,omitempty"`
	Title           string  `json:"title,omitempty"`
	Description     string  `json:"description,omitempty"`
	Duration        string  `json:"duration,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

// SampleData bundles the datasets served by /api/mobile/data/sample.
type SampleData struct {
	ActivityPool []ActivityItem   `json:"activityPool"`
	Tasks        []TaskItem       `json:"tasks"`
	Podcasts     []PodcastEpisode `json:"podcasts"`
}

// ChatListItem is a conversation summary in the sample chat dataset.
type ChatListItem struct {
	Name                string `json:"name"`
	Date                string `json:"date,omitempty"`
	ConductorEntityID   string `json:"conductorEntityId,omitempty"`
	ConductorEntityName string `json:"conductorEntityName,omitempty"`
	ConductorEntityType string `json:"conductorEntityType,omitempty"`
}

// ChatMessage is a single message within a sample conversation.
type ChatMessage struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// HarmonyChats bundles the datasets served by /api/mobile/data/harmony-chats.
type HarmonyChats struct {
	ChatList     []ChatListItem           `json:"chatList"`
	ChatMessages map[string][]ChatMessage `json:"chatMessages"`
}

// KPITile is one tile of the sample KPI dashboard.
type KPITile struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	Trend  string  `json:"trend,omitempty"`
	Target float64 `json:"target,omitempty"`
}

// KPIData bundles the datasets served by /api/mobile/data/kpis.
type KPIData struct {
	Tiles []KPITile `json:"tiles"`
}
