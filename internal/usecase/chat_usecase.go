package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"quillchat/internal/domain/entity"
	"quillchat/internal/domain/repository"
	"quillchat/internal/domain/state"
	"quillchat/internal/infrastructure/metrics"
	"quillchat/internal/infrastructure/ratelimit"
	"quillchat/pkg/config"
	"quillchat/pkg/errors"
	"quillchat/pkg/logger"
)

const (
	listenerKindConversations = "conversations"
	listenerKindMessages      = "messages"
)

// ChatUseCase is the synchronization session of one signed-in user. It owns
// the user's state store and every snapshot listener feeding it.
type ChatUseCase struct {
	identity entity.Identity
	cfg      config.ChatConfig

	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	publisher        EventPublisher
	attachments      AttachmentStore
	rateLimiter      *ratelimit.RateLimiter

	store      *state.Store
	listeners  *ListenerRegistry
	newBackOff func() backoff.BackOff
	now        func() time.Time

	mu                 sync.Mutex
	ctx                context.Context
	cancel             context.CancelFunc
	conversationsUnsub repository.Unsubscribe
	stopped            bool
	pending            map[string]*pendingSend
}

// pendingSend is an optimistic message that is not stored yet.
type pendingSend struct {
	message  entity.Message
	inFlight bool
}

func NewChatUseCase(
	identity entity.Identity,
	cfg config.ChatConfig,
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	publisher EventPublisher,
	attachments AttachmentStore,
	rateLimiter *ratelimit.RateLimiter,
) *ChatUseCase {
	if cfg.PageSize <= 0 {
		cfg.PageSize = config.DefaultChatConfig().PageSize
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.NewRateLimiter(cfg.SendRatePerMinute)
	}

	uc := &ChatUseCase{
		identity:         identity,
		cfg:              cfg,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		publisher:        publisher,
		attachments:      attachments,
		rateLimiter:      rateLimiter,
		listeners:        NewListenerRegistry(listenerKindMessages),
		now:              time.Now,
		pending:          make(map[string]*pendingSend),
	}
	uc.store = state.NewStore(state.Initial(), func(a state.Action) {
		metrics.IncActionDispatched(a.Type())
	})
	uc.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Second
		b.MaxInterval = 30 * time.Second
		b.MaxElapsedTime = 0
		return backoff.WithMaxRetries(b, uc.cfg.ListenerMaxRetries)
	}
	return uc
}

func (uc *ChatUseCase) Identity() entity.Identity {
	return uc.identity
}

func (uc *ChatUseCase) State() state.State {
	return uc.store.State()
}

// Subscribe registers fn for every state change and returns its disposer.
func (uc *ChatUseCase) Subscribe(fn func(state.State)) func() {
	return uc.store.Subscribe(fn)
}

// Start marks the user online and subscribes to their conversations. The
// session lives until Stop or until ctx is cancelled.
func (uc *ChatUseCase) Start(ctx context.Context) error {
	uc.mu.Lock()
	if uc.ctx != nil {
		uc.mu.Unlock()
		return nil
	}
	uc.ctx, uc.cancel = context.WithCancel(ctx)
	sessionCtx := uc.ctx
	uc.mu.Unlock()

	profile := &entity.ChatUser{
		ID:          uc.identity.UID,
		DisplayName: uc.identity.DisplayName,
		PhotoURL:    uc.identity.PhotoURL,
	}
	if err := uc.userRepo.Upsert(sessionCtx, profile); err != nil {
		log.Printf("Start Error: Failed to sync profile of %s: %v", uc.identity.UID, err)
	}
	if err := uc.userRepo.SetPresence(sessionCtx, uc.identity.UID, true, uc.now()); err != nil {
		log.Printf("Start Error: Failed to mark %s online: %v", uc.identity.UID, err)
	}

	uc.LoadConversations(sessionCtx)
	metrics.IncSessions()
	logger.Session(uc.identity.UID, "started")
	return nil
}

// Stop detaches every listener and marks the user offline.
func (uc *ChatUseCase) Stop() {
	uc.mu.Lock()
	if uc.ctx == nil || uc.stopped {
		uc.mu.Unlock()
		return
	}
	uc.stopped = true
	cancel := uc.cancel
	unsubscribe := uc.conversationsUnsub
	uc.conversationsUnsub = nil
	uc.mu.Unlock()

	uc.listeners.DetachAll()
	if unsubscribe != nil {
		unsubscribe()
	}
	cancel()

	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := uc.userRepo.SetPresence(ctx, uc.identity.UID, false, uc.now()); err != nil {
		log.Printf("Stop Error: Failed to mark %s offline: %v", uc.identity.UID, err)
	}

	metrics.DecSessions()
	logger.Session(uc.identity.UID, "stopped")
}

func (uc *ChatUseCase) sessionContext() context.Context {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.ctx == nil {
		return context.Background()
	}
	return uc.ctx
}

// fail records err as the user visible error and returns it.
func (uc *ChatUseCase) fail(op string, err error) error {
	log.Printf("%s Error: %v", op, err)
	uc.store.Dispatch(state.ErrorSet{Message: errors.Message(err)})
	return err
}

// authorize reads the conversation and checks that the session user takes part in it.
func (uc *ChatUseCase) authorize(ctx context.Context, conversationID string) (*entity.Conversation, error) {
	conv, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(uc.identity.UID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}
	return conv, nil
}

// LoadConversations subscribes to the session user's conversations. Every
// snapshot replaces the list and fetches the profiles of unknown
// participants. A failed listener is resubscribed with exponential backoff.
func (uc *ChatUseCase) LoadConversations(ctx context.Context) repository.Unsubscribe {
	uc.store.Dispatch(state.LoadingSet{Loading: true})

	feed := &conversationFeed{
		uc:  uc,
		ctx: ctx,
		bo:  backoff.WithContext(uc.newBackOff(), ctx),
	}
	feed.subscribe()
	metrics.IncListeners(listenerKindConversations)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			feed.stop()
			metrics.DecListeners(listenerKindConversations)
		})
	}

	uc.mu.Lock()
	previous := uc.conversationsUnsub
	uc.conversationsUnsub = unsubscribe
	uc.mu.Unlock()

	if previous != nil {
		previous()
	}
	return unsubscribe
}

type conversationFeed struct {
	uc  *ChatUseCase
	ctx context.Context

	mu      sync.Mutex
	bo      backoff.BackOff
	unsub   repository.Unsubscribe
	timer   *time.Timer
	stopped bool
}

func (f *conversationFeed) subscribe() {
	unsub := f.uc.conversationRepo.ListenByParticipant(f.ctx, f.uc.identity.UID, f.onChange, f.onError)

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		unsub()
		return
	}
	f.unsub = unsub
	f.mu.Unlock()
}

func (f *conversationFeed) onChange(conversations []entity.Conversation) {
	f.mu.Lock()
	f.bo.Reset()
	f.mu.Unlock()

	uc := f.uc
	uc.store.Dispatch(state.ConnectedSet{Connected: true})
	st := uc.store.Dispatch(state.ConversationsReplaced{Conversations: conversations, Self: uc.identity.UID})
	uc.store.Dispatch(state.LoadingSet{Loading: false})

	var missing []string
	for i := range st.Conversations {
		other := st.Conversations[i].OtherParticipant(uc.identity.UID)
		if _, ok := st.Users[other]; other != "" && !ok {
			missing = append(missing, other)
		}
	}
	if len(missing) > 0 {
		if err := uc.FetchUsers(f.ctx, missing); err != nil {
			log.Printf("LoadConversations Error: Failed to fetch participants: %v", err)
		}
	}
}

func (f *conversationFeed) onError(err error) {
	uc := f.uc
	logger.LogListenerError(listenerKindConversations, uc.identity.UID, err)
	metrics.IncListenerError(listenerKindConversations)
	uc.store.Dispatch(state.ConnectedSet{Connected: false})

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.unsub = nil

	delay := f.bo.NextBackOff()
	if delay == backoff.Stop {
		log.Printf("LoadConversations Error: giving up on conversation listener for %s", uc.identity.UID)
		uc.store.Dispatch(state.LoadingSet{Loading: false})
		return
	}
	f.timer = time.AfterFunc(delay, f.subscribe)
}

func (f *conversationFeed) stop() {
	f.mu.Lock()
	f.stopped = true
	unsub := f.unsub
	f.unsub = nil
	if f.timer != nil {
		f.timer.Stop()
	}
	f.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// LoadMessages fills the cache of a conversation. Without loadMore a cached
// conversation is served as is; otherwise the newest page (or, with
// loadMore, the page older than the cursor) is fetched. Both paths attach
// the conversation's tail listener.
func (uc *ChatUseCase) LoadMessages(ctx context.Context, conversationID string, loadMore bool) error {
	st := uc.store.State()

	if !loadMore && st.HasCache(conversationID) {
		uc.store.Dispatch(state.CachedMessagesShown{ConversationID: conversationID})
		uc.setupMessageListener(conversationID)
		return nil
	}

	if _, err := uc.authorize(ctx, conversationID); err != nil {
		return uc.fail("LoadMessages", err)
	}

	var before *entity.MessageCursor
	if loadMore {
		page, ok := st.Pages[conversationID]
		if ok && !page.HasMore {
			return nil
		}
		if ok && !page.Cursor.IsZero() {
			before = &page.Cursor
		}
		uc.store.Dispatch(state.LoadingMoreSet{Loading: true})
		defer uc.store.Dispatch(state.LoadingMoreSet{Loading: false})
	} else {
		uc.store.Dispatch(state.LoadingSet{Loading: true})
		defer uc.store.Dispatch(state.LoadingSet{Loading: false})
	}

	messages, err := uc.messageRepo.ListPage(ctx, conversationID, before, uc.cfg.PageSize)
	if err != nil {
		return uc.fail("LoadMessages", err)
	}

	hasMore := len(messages) == uc.cfg.PageSize
	var cursor entity.MessageCursor
	if len(messages) > 0 {
		cursor = entity.CursorOf(messages[len(messages)-1])
	}
	entity.SortMessages(messages)

	if loadMore {
		uc.store.Dispatch(state.MessagesAppended{
			ConversationID: conversationID,
			Messages:       messages,
			HasMore:        hasMore,
			Cursor:         cursor,
		})
		return nil
	}

	uc.store.Dispatch(state.MessagesLoaded{
		ConversationID: conversationID,
		Messages:       messages,
		HasMore:        hasMore,
		Cursor:         cursor,
	})
	uc.setupMessageListener(conversationID)
	return nil
}

// LoadMoreMessages loads the page before the oldest message of the selected
// conversation.
func (uc *ChatUseCase) LoadMoreMessages(ctx context.Context) error {
	st := uc.store.State()
	conversationID := st.CurrentConversationID()
	if conversationID == "" || !st.HasMoreMessages || st.IsLoadingMore {
		return nil
	}
	return uc.LoadMessages(ctx, conversationID, true)
}

func (uc *ChatUseCase) setupMessageListener(conversationID string) {
	uc.listeners.Attach(conversationID, func() repository.Unsubscribe {
		return uc.messageRepo.ListenLatest(uc.sessionContext(), conversationID,
			func(msg entity.Message) {
				uc.store.Dispatch(state.MessageReceived{ConversationID: conversationID, Message: msg})
			},
			func(err error) {
				logger.LogListenerError(listenerKindMessages, conversationID, err)
				metrics.IncListenerError(listenerKindMessages)
				uc.listeners.Detach(conversationID)
			},
		)
	})
}

// SetCurrentConversation selects a conversation, or deselects with an empty
// id. Listeners of the previous selection are disposed first.
func (uc *ChatUseCase) SetCurrentConversation(ctx context.Context, conversationID string) error {
	uc.listeners.DetachAll()

	if conversationID == "" {
		uc.store.Dispatch(state.CurrentConversationSet{})
		return nil
	}

	conv, ok := uc.store.State().Conversation(conversationID)
	if !ok {
		remote, err := uc.authorize(ctx, conversationID)
		if err != nil {
			return uc.fail("SetCurrentConversation", err)
		}
		conv = *remote
	}

	uc.store.Dispatch(state.CurrentConversationSet{Conversation: &conv})
	if err := uc.LoadMessages(ctx, conversationID, false); err != nil {
		return err
	}

	if uc.hasUnread(uc.store.State(), conversationID) {
		return uc.MarkAsRead(ctx, conversationID)
	}
	return nil
}

func (uc *ChatUseCase) hasUnread(st state.State, conversationID string) bool {
	if st.CurrentConversation != nil && st.CurrentConversation.UnreadFor(uc.identity.UID) > 0 {
		return true
	}
	for _, m := range st.MessageCache[conversationID] {
		if m.ReceiverID == uc.identity.UID && !m.Read {
			return true
		}
	}
	return false
}

// OpenConversation creates the conversation with otherUID when needed and selects it.
func (uc *ChatUseCase) OpenConversation(ctx context.Context, otherUID string) (*entity.Conversation, error) {
	if otherUID == "" || otherUID == uc.identity.UID {
		return nil, uc.fail("OpenConversation", errors.BadRequest("You cannot start a conversation with yourself", nil))
	}

	conversationID := entity.ConversationID(uc.identity.UID, otherUID)
	if err := uc.conversationRepo.Ensure(ctx, conversationID, entity.SortedParticipants(uc.identity.UID, otherUID)); err != nil {
		return nil, uc.fail("OpenConversation", err)
	}

	if _, err := uc.FetchUserData(ctx, otherUID); err != nil {
		log.Printf("OpenConversation Error: Failed to fetch user %s: %v", otherUID, err)
	}

	if err := uc.SetCurrentConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return uc.store.State().CurrentConversation, nil
}

// MarkAsRead flips the session user's unread received messages to read and
// zeroes their unread counter of the conversation. With the global scope the
// flip covers every conversation of the user.
func (uc *ChatUseCase) MarkAsRead(ctx context.Context, conversationID string) error {
	if _, err := uc.authorize(ctx, conversationID); err != nil {
		return uc.fail("MarkAsRead", err)
	}

	global := uc.cfg.MarkReadScope != config.MarkReadScopeConversation
	scope := conversationID
	if global {
		scope = ""
	}

	unread, err := uc.messageRepo.ListUnread(ctx, uc.identity.UID, scope)
	if err != nil {
		return uc.fail("MarkAsRead", err)
	}

	ids := make([]string, 0, len(unread))
	for _, m := range unread {
		ids = append(ids, m.ID)
	}
	if err := uc.messageRepo.MarkRead(ctx, ids); err != nil {
		return uc.fail("MarkAsRead", err)
	}
	if err := uc.conversationRepo.ResetUnread(ctx, conversationID, uc.identity.UID); err != nil {
		return uc.fail("MarkAsRead", err)
	}

	uc.store.Dispatch(state.MessagesRead{
		ConversationID:   conversationID,
		ReaderID:         uc.identity.UID,
		AllConversations: global,
	})
	return nil
}

// DeleteMessage deletes a message sent by the session user. When it was the
// last message of the conversation the newest remaining one takes its place.
func (uc *ChatUseCase) DeleteMessage(ctx context.Context, messageID, conversationID string) error {
	if uc.discardPending(conversationID, messageID) {
		return nil
	}

	conv, err := uc.authorize(ctx, conversationID)
	if err != nil {
		return uc.fail("DeleteMessage", err)
	}

	msg, err := uc.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return uc.fail("DeleteMessage", err)
	}
	if msg.ConversationID != conversationID {
		return uc.fail("DeleteMessage", errors.NotFound("Message", nil))
	}
	if msg.SenderID != uc.identity.UID {
		return uc.fail("DeleteMessage", errors.Forbidden("Only the sender can delete this message", nil))
	}

	if err := uc.messageRepo.Delete(ctx, messageID); err != nil {
		return uc.fail("DeleteMessage", err)
	}
	uc.store.Dispatch(state.MessageDeleted{ConversationID: conversationID, MessageID: messageID})

	if conv.LastMessage == nil || conv.LastMessage.ID != messageID {
		return nil
	}

	last, err := uc.latestRemaining(ctx, conversationID, messageID)
	if err != nil {
		return uc.fail("DeleteMessage", err)
	}
	if err := uc.conversationRepo.SetLastMessage(ctx, conversationID, last); err != nil {
		return uc.fail("DeleteMessage", err)
	}
	uc.store.Dispatch(state.ConversationUpdated{ConversationID: conversationID, LastMessage: last})
	return nil
}

// latestRemaining returns the newest message of the conversation other than
// deletedID, from the cache when it is loaded.
func (uc *ChatUseCase) latestRemaining(ctx context.Context, conversationID, deletedID string) (*entity.Message, error) {
	st := uc.store.State()
	if st.HasCache(conversationID) {
		var last *entity.Message
		for _, m := range st.MessageCache[conversationID] {
			if m.ID == deletedID || m.IsTemporary() {
				continue
			}
			if last == nil || last.Before(&m) {
				latest := m
				last = &latest
			}
		}
		return last, nil
	}

	page, err := uc.messageRepo.ListPage(ctx, conversationID, nil, 2)
	if err != nil {
		return nil, err
	}
	for i := range page {
		if page[i].ID != deletedID {
			return &page[i], nil
		}
	}
	return nil, nil
}

// discardPending drops an optimistic message that was never stored.
func (uc *ChatUseCase) discardPending(conversationID, messageID string) bool {
	uc.mu.Lock()
	p, ok := uc.pending[messageID]
	if ok && !p.inFlight && p.message.ConversationID == conversationID {
		delete(uc.pending, messageID)
	} else {
		ok = false
	}
	uc.mu.Unlock()

	if ok {
		uc.store.Dispatch(state.MessageDeleted{ConversationID: conversationID, MessageID: messageID})
	}
	return ok
}

// SetTyping adds or removes the session user from the typing users of a
// conversation. Only typing starts are rate limited; a stop always goes through.
func (uc *ChatUseCase) SetTyping(ctx context.Context, conversationID string, typing bool) error {
	if typing {
		if allowed, _ := uc.rateLimiter.Allow(uc.identity.UID, ratelimit.ActionTyping); !allowed {
			return nil
		}
	}

	conv, ok := uc.store.State().Conversation(conversationID)
	if !ok {
		remote, err := uc.authorize(ctx, conversationID)
		if err != nil {
			return uc.fail("SetTyping", err)
		}
		conv = *remote
	}

	if err := uc.conversationRepo.SetTyping(ctx, conversationID, uc.identity.UID, typing); err != nil {
		return uc.fail("SetTyping", err)
	}

	typingUsers := make([]string, 0, len(conv.TypingUsers)+1)
	for _, uid := range conv.TypingUsers {
		if uid != uc.identity.UID {
			typingUsers = append(typingUsers, uid)
		}
	}
	if typing {
		typingUsers = append(typingUsers, uc.identity.UID)
	}
	uc.store.Dispatch(state.TypingUpdated{
		ConversationID: conversationID,
		TypingUsers:    typingUsers,
		Self:           uc.identity.UID,
	})
	return nil
}
