package models

import (
	"encoding/json"
	"time"
)

type MessageStatus string

const (
	MessageUnread MessageStatus = "unread"
	MessageRead   MessageStatus = "read"
)

func (s MessageStatus) Valid() bool {
	return s == MessageUnread || s == MessageRead
}

type MessageSource string

const (
	SourceWebhook MessageSource = "webhook"
	SourceSMTP    MessageSource = "smtp"
)

// Message это письмо во входящих (коллекция received_emails)
type Message struct {
	ID         string          `json:"id" bson:"_id" firestore:"-"`
	From       string          `json:"from" bson:"from" firestore:"from"`
	To         string          `json:"to" bson:"to" firestore:"to"`
	Subject    string          `json:"subject" bson:"subject" firestore:"subject"`
	Text       string          `json:"text" bson:"text" firestore:"text"`
	HTML       string          `json:"html" bson:"html" firestore:"html"`
	ReceivedAt time.Time       `json:"receivedAt" bson:"receivedAt" firestore:"receivedAt"`
	Status     MessageStatus   `json:"status" bson:"status" firestore:"status"`
	Source     MessageSource   `json:"source" bson:"source" firestore:"source"`
	Payload    json.RawMessage `json:"payload,omitempty" bson:"payload,omitempty" firestore:"payload,omitempty"`
}

// InboundEmail is what an inbound channel hands to the inbox.
type InboundEmail struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
	Payload json.RawMessage
}

type MessageFilter struct {
	Query  string `json:"q" query:"q"`
	Status string `json:"status" query:"status"` // all, read, unread
}

type InboxEventType string

const (
	InboxMessageCreated InboxEventType = "created"
	InboxMessageUpdated InboxEventType = "updated"
	InboxMessageDeleted InboxEventType = "deleted"
)

type InboxEvent struct {
	Type      InboxEventType `json:"type"`
	MessageID string         `json:"messageId"`
	At        time.Time      `json:"at"`
}
