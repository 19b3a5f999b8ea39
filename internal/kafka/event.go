package kafka

import "time"

type EventType string

const (
	EventTypeAuthenticated     EventType = "authenticated"
	EventTypeLogout            EventType = "logout"
	EventTypeForcedLogout      EventType = "forced_logout"
	EventTypeFeedbackSubmitted EventType = "feedback_submitted"
)

// Event - действие пользователя в портале
type Event struct {
	SessionID string    `json:"session_id"`
	Username  string    `json:"username,omitempty"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
