package entity

import (
	"sort"
	"strings"
	"time"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile:
		return true
	}
	return false
}

// MessageStatus is local delivery state and is never persisted.
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusFailed  MessageStatus = "failed"
)

// TempIDPrefix marks ids of optimistic messages that are not stored yet.
const TempIDPrefix = "temp-"

type Message struct {
	ID             string                 `json:"id" firestore:"id"`
	ConversationID string                 `json:"conversation_id" firestore:"conversationId"`
	SenderID       string                 `json:"sender_id" firestore:"senderId"`
	ReceiverID     string                 `json:"receiver_id" firestore:"receiverId"`
	Content        string                 `json:"content" firestore:"content"`
	Timestamp      time.Time              `json:"timestamp" firestore:"timestamp"`
	Read           bool                   `json:"read" firestore:"read"`
	Type           MessageType            `json:"type" firestore:"type"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" firestore:"metadata,omitempty"`
	Status         MessageStatus          `json:"status,omitempty" firestore:"-"`
}

func (m *Message) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Before orders messages by timestamp, then id.
func (m *Message) Before(other *Message) bool {
	if m.Timestamp.Equal(other.Timestamp) {
		return m.ID < other.ID
	}
	return m.Timestamp.Before(other.Timestamp)
}

// SortMessages sorts msgs ascending by timestamp in place.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Before(&msgs[j])
	})
}

// MessageCursor is the position of the oldest loaded message of a conversation.
type MessageCursor struct {
	Timestamp time.Time `json:"ts"`
	ID        string    `json:"id"`
}

func (c MessageCursor) IsZero() bool {
	return c.ID == "" && c.Timestamp.IsZero()
}

func CursorOf(m Message) MessageCursor {
	return MessageCursor{Timestamp: m.Timestamp, ID: m.ID}
}

// Attachment is a stored file referenced by an image or file message.
type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Metadata is the message metadata describing the attachment.
func (a Attachment) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"url":         a.URL,
		"name":        a.Name,
		"contentType": a.ContentType,
		"size":        a.Size,
	}
}

// MessageTypeFor returns the message type used to share a file of contentType.
func MessageTypeFor(contentType string) MessageType {
	if strings.HasPrefix(contentType, "image/") {
		return MessageTypeImage
	}
	return MessageTypeFile
}
