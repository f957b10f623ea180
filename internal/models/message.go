package models

// Message is a text post authored by an account.
type Message struct {
	ID          int64  `json:"id"`
	PostedBy    int64  `json:"postedBy"`
	MessageText string `json:"messageText"`
	TimePosted  int64  `json:"timePosted"`
}

type EventType string

const (
	EventMessageCreated EventType = "message.created"
	EventMessageUpdated EventType = "message.updated"
	EventMessageDeleted EventType = "message.deleted"
)

// MessageEvent describes a committed change to a message.
// Message is nil for deletions.
type MessageEvent struct {
	Type      EventType `json:"type"`
	MessageID int64     `json:"messageId"`
	Message   *Message  `json:"message,omitempty"`
}
