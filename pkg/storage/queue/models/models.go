package models

// EventType labels a key lifecycle notification.
type EventType string

const (
	KeyIssued  EventType = "KEY_ISSUED"
	KeyToggled EventType = "KEY_TOGGLED"
	KeyDeleted EventType = "KEY_DELETED"
	UserBound  EventType = "USER_BOUND"
)

// KeyEvent is the fire-and-forget message published after every key
// lifecycle change, keyed by the owning user for downstream cache
// invalidation.
type KeyEvent struct {
	EventID int64     `json:"event_id"`
	Event   EventType `json:"event"`
	UserID  uint      `json:"user_id"`
	KeyUUID string    `json:"key_uuid,omitempty"`
}
