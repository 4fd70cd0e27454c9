package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillchat/internal/domain/entity"
	"quillchat/pkg/utils"
)

func TestConversationIDCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"conversation-id", "zed", "amy"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "amy_zed\n", out.String())
}

func TestPrintMessagesPrintsCursorOfFullPage(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	page := []entity.Message{
		{ID: "m2", SenderID: "u1", Content: "second", Timestamp: at.Add(time.Minute), Type: entity.MessageTypeText},
		{ID: "m1", SenderID: "u2", Content: "first", Timestamp: at, Type: entity.MessageTypeText},
	}

	var out bytes.Buffer
	printMessages(&out, page, 2)

	text := out.String()
	assert.Less(t, strings.Index(text, "first"), strings.Index(text, "second"))
	assert.Contains(t, text, "--before "+utils.EncodeCursor(at, "m1"))

	out.Reset()
	printMessages(&out, page, 3)
	assert.NotContains(t, out.String(), "--before")
}

func TestPrintConversations(t *testing.T) {
	last := entity.Message{Content: "hello"}
	convs := []entity.Conversation{{
		ID:           "u1_u2",
		Participants: []string{"u1", "u2"},
		LastMessage:  &last,
		UnreadCount:  map[string]int{"u1": 3},
	}}

	var out bytes.Buffer
	printConversations(&out, "u1", convs)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"u1_u2", "u2", "3", "-", "hello"}, strings.Fields(lines[1]))
}
