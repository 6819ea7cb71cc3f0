package domain

// Event is one entry of the append-only event log.
type Event struct {
	ID          int64   `json:"id"`
	UUID        string  `json:"uuid"`
	Timestamp   string  `json:"timestamp"`
	EventType   string  `json:"event_type"`
	ResourceURI string  `json:"resource_uri"`
	Payload     *string `json:"payload,omitempty"`
}
