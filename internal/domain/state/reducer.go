package state

import (
	"sort"

	"quillchat/internal/domain/entity"
)

// Reduce returns the state that follows s after action. It never mutates s:
// every slice or map it changes is copied first.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case LoadingSet:
		s.IsLoading = a.Loading
	case LoadingMoreSet:
		s.IsLoadingMore = a.Loading
	case ConnectedSet:
		s.IsConnected = a.Connected
	case ErrorSet:
		s.Error = a.Message
	case ConversationsReplaced:
		return replaceConversations(s, a)
	case MessageReceived:
		return receiveMessage(s, a.ConversationID, a.Message)
	case MessageSent:
		return sendMessage(s, a)
	case MessageConfirmed:
		return confirmMessage(s, a)
	case MessageFailed:
		return setMessageStatus(s, a.ConversationID, a.TempID, entity.MessageStatusFailed)
	case MessageRetrying:
		return setMessageStatus(s, a.ConversationID, a.TempID, entity.MessageStatusPending)
	case MessagesLoaded:
		return loadMessages(s, a)
	case CachedMessagesShown:
		if s.CurrentConversationID() == a.ConversationID {
			s.Messages = cloneMessages(s.MessageCache[a.ConversationID])
			s.HasMoreMessages = s.Pages[a.ConversationID].HasMore
		}
	case MessagesAppended:
		return appendMessages(s, a)
	case MessagesRead:
		return readMessages(s, a)
	case MessageDeleted:
		return deleteMessage(s, a)
	case ConversationUpdated:
		return updateConversation(s, a.ConversationID, func(c *entity.Conversation) {
			c.LastMessage = copyMessagePtr(a.LastMessage)
			if !a.LastActivity.IsZero() {
				c.LastActivity = a.LastActivity
			}
		})
	case TypingUpdated:
		return updateConversation(s, a.ConversationID, func(c *entity.Conversation) {
			c.TypingUsers = append([]string(nil), a.TypingUsers...)
			c.IsTyping = othersTyping(c.TypingUsers, a.Self)
		})
	case CurrentConversationSet:
		return setCurrentConversation(s, a.Conversation)
	case UserUpserted:
		users := make(map[string]entity.ChatUser, len(s.Users)+len(a.Users))
		for id, u := range s.Users {
			users[id] = u
		}
		for _, u := range a.Users {
			users[u.ID] = u
		}
		s.Users = users
	case SearchUpdated:
		s.Search = SearchState{
			Query:     a.Query,
			Results:   append([]entity.ChatUser{}, a.Results...),
			Searching: a.Searching,
		}
	}
	return s
}

func replaceConversations(s State, a ConversationsReplaced) State {
	list := make([]entity.Conversation, 0, len(a.Conversations))
	for _, c := range a.Conversations {
		c.IsTyping = othersTyping(c.TypingUsers, a.Self)
		list = append(list, c)
	}
	s.Conversations = list

	if s.CurrentConversation != nil {
		for i := range list {
			if list[i].ID == s.CurrentConversation.ID {
				current := list[i]
				s.CurrentConversation = &current
				break
			}
		}
	}
	return s
}

func receiveMessage(s State, conversationID string, msg entity.Message) State {
	if msg.Status == "" {
		msg.Status = entity.MessageStatusSent
	}
	if cached, ok := s.MessageCache[conversationID]; ok && indexOf(cached, msg.ID) < 0 {
		next := append(cloneMessages(cached), msg)
		entity.SortMessages(next)
		s = withCache(s, conversationID, next)
	}
	return updateConversation(s, conversationID, func(c *entity.Conversation) {
		patchLastMessage(c, msg)
	})
}

func sendMessage(s State, a MessageSent) State {
	cached, ok := s.MessageCache[a.ConversationID]
	if ok || s.CurrentConversationID() == a.ConversationID {
		next := append(cloneMessages(cached), a.Message)
		entity.SortMessages(next)
		s = withCache(s, a.ConversationID, next)
	}

	if _, exists := s.Conversation(a.ConversationID); !exists {
		conv := entity.Conversation{
			ID:           a.ConversationID,
			Participants: append([]string(nil), a.Participants...),
			UnreadCount:  map[string]int{},
			TypingUsers:  []string{},
		}
		s.Conversations = append([]entity.Conversation{conv}, s.Conversations...)
	}
	return updateConversation(s, a.ConversationID, func(c *entity.Conversation) {
		patchLastMessage(c, a.Message)
	})
}

func confirmMessage(s State, a MessageConfirmed) State {
	msg := a.Message
	msg.Status = entity.MessageStatusSent

	if cached, ok := s.MessageCache[a.ConversationID]; ok {
		next := cloneMessages(cached)
		tempIdx := indexOf(next, a.TempID)
		switch {
		case indexOf(next, msg.ID) >= 0:
			// The listener delivered the stored copy first.
			if tempIdx >= 0 {
				next = append(next[:tempIdx], next[tempIdx+1:]...)
			}
		case tempIdx >= 0:
			next[tempIdx] = msg
		default:
			next = append(next, msg)
		}
		entity.SortMessages(next)
		s = withCache(s, a.ConversationID, next)
	}

	return updateConversation(s, a.ConversationID, func(c *entity.Conversation) {
		if c.LastMessage != nil && c.LastMessage.ID == a.TempID {
			c.LastMessage = copyMessagePtr(&msg)
			return
		}
		patchLastMessage(c, msg)
	})
}

func setMessageStatus(s State, conversationID, messageID string, status entity.MessageStatus) State {
	cached, ok := s.MessageCache[conversationID]
	if !ok {
		return s
	}
	idx := indexOf(cached, messageID)
	if idx < 0 {
		return s
	}
	next := cloneMessages(cached)
	next[idx].Status = status
	return withCache(s, conversationID, next)
}

// loadMessages replaces the cache of a conversation with a fetched page.
// Outgoing messages that are not stored yet are kept.
func loadMessages(s State, a MessagesLoaded) State {
	next := cloneMessages(a.Messages)
	for _, m := range s.MessageCache[a.ConversationID] {
		if unsent(m) && indexOf(next, m.ID) < 0 {
			next = append(next, m)
		}
	}
	entity.SortMessages(next)
	s = withCache(s, a.ConversationID, next)
	s = withPage(s, a.ConversationID, PageInfo{Cursor: a.Cursor, HasMore: a.HasMore})
	if s.CurrentConversationID() == a.ConversationID {
		s.HasMoreMessages = a.HasMore
	}
	return s
}

func appendMessages(s State, a MessagesAppended) State {
	existing := s.MessageCache[a.ConversationID]
	combined := make([]entity.Message, 0, len(a.Messages)+len(existing))
	for _, m := range a.Messages {
		if indexOf(existing, m.ID) < 0 {
			combined = append(combined, m)
		}
	}
	combined = append(combined, existing...)
	s = withCache(s, a.ConversationID, combined)

	page := PageInfo{Cursor: a.Cursor, HasMore: a.HasMore}
	if page.Cursor.IsZero() {
		page.Cursor = s.Pages[a.ConversationID].Cursor
	}
	s = withPage(s, a.ConversationID, page)
	if s.CurrentConversationID() == a.ConversationID {
		s.HasMoreMessages = a.HasMore
	}
	return s
}

func readMessages(s State, a MessagesRead) State {
	for conversationID, cached := range s.MessageCache {
		if !a.AllConversations && conversationID != a.ConversationID {
			continue
		}
		var next []entity.Message
		for i, m := range cached {
			if m.ReceiverID == a.ReaderID && !m.Read {
				if next == nil {
					next = cloneMessages(cached)
				}
				next[i].Read = true
			}
		}
		if next != nil {
			s = withCache(s, conversationID, next)
		}
	}

	return updateConversation(s, a.ConversationID, func(c *entity.Conversation) {
		unread := make(map[string]int, len(c.UnreadCount)+1)
		for uid, n := range c.UnreadCount {
			unread[uid] = n
		}
		unread[a.ReaderID] = 0
		c.UnreadCount = unread
		if c.LastMessage != nil && c.LastMessage.ReceiverID == a.ReaderID && !c.LastMessage.Read {
			last := *c.LastMessage
			last.Read = true
			c.LastMessage = &last
		}
	})
}

func deleteMessage(s State, a MessageDeleted) State {
	remaining := s.MessageCache[a.ConversationID]
	if idx := indexOf(remaining, a.MessageID); idx >= 0 {
		next := cloneMessages(remaining)
		next = append(next[:idx], next[idx+1:]...)
		s = withCache(s, a.ConversationID, next)
		remaining = next
	}

	return updateConversation(s, a.ConversationID, func(c *entity.Conversation) {
		if c.LastMessage == nil || c.LastMessage.ID != a.MessageID {
			return
		}
		c.LastMessage = nil
		for i := range remaining {
			if c.LastMessage == nil || c.LastMessage.Before(&remaining[i]) {
				latest := remaining[i]
				c.LastMessage = &latest
			}
		}
	})
}

func setCurrentConversation(s State, conv *entity.Conversation) State {
	s.Messages = []entity.Message{}
	s.HasMoreMessages = false
	s.IsLoadingMore = false
	if conv == nil {
		s.CurrentConversation = nil
		return s
	}
	current := *conv
	if listed, ok := s.Conversation(conv.ID); ok {
		current = listed
	}
	s.CurrentConversation = &current
	return s
}

// withCache stores msgs as the cache of conversationID and keeps Messages
// mirroring it when conversationID is selected.
func withCache(s State, conversationID string, msgs []entity.Message) State {
	cache := make(map[string][]entity.Message, len(s.MessageCache)+1)
	for id, m := range s.MessageCache {
		cache[id] = m
	}
	cache[conversationID] = msgs
	s.MessageCache = cache
	if s.CurrentConversationID() == conversationID {
		s.Messages = cloneMessages(msgs)
	}
	return s
}

func withPage(s State, conversationID string, page PageInfo) State {
	pages := make(map[string]PageInfo, len(s.Pages)+1)
	for id, p := range s.Pages {
		pages[id] = p
	}
	pages[conversationID] = page
	s.Pages = pages
	return s
}

// updateConversation applies fn to a copy of the listed conversation (and of
// the current conversation when it is the same one). fn must replace maps and
// slices instead of writing into them.
func updateConversation(s State, conversationID string, fn func(c *entity.Conversation)) State {
	idx := -1
	for i := range s.Conversations {
		if s.Conversations[i].ID == conversationID {
			idx = i
			break
		}
	}

	if idx >= 0 {
		list := make([]entity.Conversation, len(s.Conversations))
		copy(list, s.Conversations)
		fn(&list[idx])
		sortConversations(list)
		s.Conversations = list
	}

	if s.CurrentConversation != nil && s.CurrentConversation.ID == conversationID {
		current := *s.CurrentConversation
		fn(&current)
		s.CurrentConversation = &current
	}
	return s
}

func patchLastMessage(c *entity.Conversation, msg entity.Message) {
	if c.LastMessage == nil || !msg.Before(c.LastMessage) {
		c.LastMessage = copyMessagePtr(&msg)
	}
	if msg.Timestamp.After(c.LastActivity) {
		c.LastActivity = msg.Timestamp
	}
}

func sortConversations(list []entity.Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastActivity.After(list[j].LastActivity)
	})
}

func othersTyping(typingUsers []string, self string) bool {
	for _, uid := range typingUsers {
		if uid != self {
			return true
		}
	}
	return false
}

func unsent(m entity.Message) bool {
	return m.IsTemporary() || m.Status == entity.MessageStatusPending || m.Status == entity.MessageStatusFailed
}

func indexOf(msgs []entity.Message, id string) int {
	for i := range msgs {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneMessages(msgs []entity.Message) []entity.Message {
	out := make([]entity.Message, len(msgs))
	copy(out, msgs)
	return out
}

func copyMessagePtr(m *entity.Message) *entity.Message {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
