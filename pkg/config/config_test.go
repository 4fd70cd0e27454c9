package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadChatDefaults(t *testing.T) {
	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 50, cfg.Chat.PageSize)
	assert.Equal(t, MarkReadScopeGlobal, cfg.Chat.MarkReadScope)
	assert.Equal(t, 30*time.Minute, cfg.Chat.SessionIdleTimeout)
}

func TestLoadChatOverrides(t *testing.T) {
	t.Setenv("CHAT_PAGE_SIZE", "20")
	t.Setenv("CHAT_MARK_READ_SCOPE", "Conversation")
	t.Setenv("CHAT_SESSION_IDLE_TIMEOUT", "90s")
	t.Setenv("CHAT_LISTENER_MAX_RETRIES", "not-a-number")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 20, cfg.Chat.PageSize)
	assert.Equal(t, MarkReadScopeConversation, cfg.Chat.MarkReadScope)
	assert.Equal(t, 90*time.Second, cfg.Chat.SessionIdleTimeout)
	assert.Equal(t, uint64(5), cfg.Chat.ListenerMaxRetries)
}

func TestUnknownMarkReadScopeFallsBackToGlobal(t *testing.T) {
	t.Setenv("CHAT_MARK_READ_SCOPE", "everything")

	cfg, _ := Load()
	assert.Equal(t, MarkReadScopeGlobal, cfg.Chat.MarkReadScope)
}
