package entity

import (
	"sort"
	"strings"
	"time"
)

// ConversationIDSeparator joins the two sorted participant ids.
const ConversationIDSeparator = "_"

type Conversation struct {
	ID           string         `json:"id" firestore:"-"`
	Participants []string       `json:"participants" firestore:"participants"`
	LastMessage  *Message       `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	UnreadCount  map[string]int `json:"unread_count" firestore:"unreadCount"` // Map of userID to unread count
	LastActivity time.Time      `json:"last_activity" firestore:"lastActivity"`
	IsTyping     bool           `json:"is_typing" firestore:"-"`
	TypingUsers  []string       `json:"typing_users" firestore:"typingUsers"`
}

// ConversationID returns the deterministic id of the conversation between a and b.
// The result does not depend on argument order.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ConversationIDSeparator)
}

// SortedParticipants returns a and b in the order used by ConversationID.
func SortedParticipants(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID, or "" if none.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// UnreadFor returns the unread counter of userID.
func (c *Conversation) UnreadFor(userID string) int {
	if c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[userID]
}
