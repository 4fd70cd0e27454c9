package state

import (
	"quillchat/internal/domain/entity"
)

// State is the client view of one user's direct messages.
type State struct {
	Conversations       []entity.Conversation       `json:"conversations"`
	CurrentConversation *entity.Conversation        `json:"current_conversation,omitempty"`
	Messages            []entity.Message            `json:"messages"`
	Users               map[string]entity.ChatUser  `json:"users"`
	MessageCache        map[string][]entity.Message `json:"-"`
	Pages               map[string]PageInfo         `json:"-"`
	HasMoreMessages     bool                        `json:"has_more_messages"`
	IsLoadingMore       bool                        `json:"is_loading_more"`
	IsConnected         bool                        `json:"is_connected"`
	IsLoading           bool                        `json:"is_loading"`
	Error               string                      `json:"error,omitempty"`
	Search              SearchState                 `json:"search"`
}

// PageInfo is the pagination position of one cached conversation.
type PageInfo struct {
	Cursor  entity.MessageCursor
	HasMore bool
}

type SearchState struct {
	Query     string            `json:"query"`
	Results   []entity.ChatUser `json:"results"`
	Searching bool              `json:"searching"`
}

// Initial returns the empty state.
func Initial() State {
	return State{
		Conversations: []entity.Conversation{},
		Messages:      []entity.Message{},
		Users:         map[string]entity.ChatUser{},
		MessageCache:  map[string][]entity.Message{},
		Pages:         map[string]PageInfo{},
	}
}

// CurrentConversationID returns the selected conversation id or "".
func (s State) CurrentConversationID() string {
	if s.CurrentConversation == nil {
		return ""
	}
	return s.CurrentConversation.ID
}

// Conversation looks up a conversation of the list by id.
func (s State) Conversation(id string) (entity.Conversation, bool) {
	for _, c := range s.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return entity.Conversation{}, false
}

// CachedMessage looks up a message in the cache of a conversation.
func (s State) CachedMessage(conversationID, messageID string) (entity.Message, bool) {
	for _, m := range s.MessageCache[conversationID] {
		if m.ID == messageID {
			return m, true
		}
	}
	return entity.Message{}, false
}

// FindMessage searches every cache entry for messageID.
func (s State) FindMessage(messageID string) (entity.Message, bool) {
	for _, msgs := range s.MessageCache {
		for _, m := range msgs {
			if m.ID == messageID {
				return m, true
			}
		}
	}
	return entity.Message{}, false
}

func (s State) HasCache(conversationID string) bool {
	_, ok := s.MessageCache[conversationID]
	return ok
}
