package event

import "time"

// EventStatePayload is the body of event.published, event.rejected and event.canceled.
type EventStatePayload struct {
	EventID     string     `json:"event_id"`
	InitiatorID string     `json:"initiator_id"`
	Title       string     `json:"title"`
	CategoryID  string     `json:"category_id"`
	EventDate   time.Time  `json:"event_date"`
	State       string     `json:"state"`
	PublishedOn *time.Time `json:"published_on,omitempty"`
	Actor       string     `json:"actor"`
}
