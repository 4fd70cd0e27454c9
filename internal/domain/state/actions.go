package state

import (
	"time"

	"quillchat/internal/domain/entity"
)

// Action is a tagged state transition. Reduce ignores types it does not know.
type Action interface {
	Type() string
}

type LoadingSet struct{ Loading bool }

type LoadingMoreSet struct{ Loading bool }

type ConnectedSet struct{ Connected bool }

// ErrorSet replaces the user visible error; an empty Message clears it.
type ErrorSet struct{ Message string }

type ConversationsReplaced struct {
	Conversations []entity.Conversation
	// Self is the uid of the session owner, used to derive IsTyping.
	Self string
}

// MessageReceived merges a message delivered by a listener.
type MessageReceived struct {
	ConversationID string
	Message        entity.Message
}

// MessageSent is the optimistic local append of an outgoing message.
type MessageSent struct {
	ConversationID string
	Message        entity.Message
	// Participants seeds the conversation when it is not in the list yet.
	Participants []string
}

// MessageConfirmed swaps the optimistic message TempID for the stored one.
type MessageConfirmed struct {
	ConversationID string
	TempID         string
	Message        entity.Message
}

type MessageFailed struct {
	ConversationID string
	TempID         string
}

type MessageRetrying struct {
	ConversationID string
	TempID         string
}

// MessagesLoaded replaces the cached page of a conversation.
type MessagesLoaded struct {
	ConversationID string
	Messages       []entity.Message
	HasMore        bool
	Cursor         entity.MessageCursor
}

// CachedMessagesShown shows the cached messages of the selected conversation
// and its pagination state without touching the cache itself.
type CachedMessagesShown struct {
	ConversationID string
}

// MessagesAppended prepends an older page to the cache of a conversation.
type MessagesAppended struct {
	ConversationID string
	Messages       []entity.Message
	HasMore        bool
	Cursor         entity.MessageCursor
}

// MessagesRead zeroes the unread counter of ReaderID in the conversation and
// flips Read on the messages ReaderID received. With AllConversations the
// flip covers every cached conversation.
type MessagesRead struct {
	ConversationID   string
	ReaderID         string
	AllConversations bool
}

type MessageDeleted struct {
	ConversationID string
	MessageID      string
}

type ConversationUpdated struct {
	ConversationID string
	LastMessage    *entity.Message
	LastActivity   time.Time
}

type TypingUpdated struct {
	ConversationID string
	TypingUsers    []string
	Self           string
}

// CurrentConversationSet selects a conversation; nil deselects.
type CurrentConversationSet struct {
	Conversation *entity.Conversation
}

type UserUpserted struct {
	Users []entity.ChatUser
}

type SearchUpdated struct {
	Query     string
	Results   []entity.ChatUser
	Searching bool
}

func (LoadingSet) Type() string             { return "loading_set" }
func (LoadingMoreSet) Type() string         { return "loading_more_set" }
func (ConnectedSet) Type() string           { return "connected_set" }
func (ErrorSet) Type() string               { return "error_set" }
func (ConversationsReplaced) Type() string  { return "conversations_replaced" }
func (MessageReceived) Type() string        { return "message_received" }
func (MessageSent) Type() string            { return "message_sent" }
func (MessageConfirmed) Type() string       { return "message_confirmed" }
func (MessageFailed) Type() string          { return "message_failed" }
func (MessageRetrying) Type() string        { return "message_retrying" }
func (MessagesLoaded) Type() string         { return "messages_loaded" }
func (CachedMessagesShown) Type() string    { return "cached_messages_shown" }
func (MessagesAppended) Type() string       { return "messages_appended" }
func (MessagesRead) Type() string           { return "messages_read" }
func (MessageDeleted) Type() string         { return "message_deleted" }
func (ConversationUpdated) Type() string    { return "conversation_updated" }
func (TypingUpdated) Type() string          { return "typing_updated" }
func (CurrentConversationSet) Type() string { return "current_conversation_set" }
func (UserUpserted) Type() string           { return "user_upserted" }
func (SearchUpdated) Type() string          { return "search_updated" }
