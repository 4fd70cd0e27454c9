package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quillchat/internal/domain/repository"
)

func TestListenerRegistryKeepsOnePerKey(t *testing.T) {
	r := NewListenerRegistry("messages")
	disposed := map[string]int{}
	subscribe := func(key string) func() repository.Unsubscribe {
		return func() repository.Unsubscribe {
			return func() { disposed[key]++ }
		}
	}

	assert.True(t, r.Attach("a", subscribe("a")))
	assert.False(t, r.Attach("a", subscribe("a")))
	assert.True(t, r.Attach("b", subscribe("b")))
	assert.Equal(t, 2, r.Len())

	assert.True(t, r.Detach("a"))
	assert.False(t, r.Detach("a"))
	assert.Equal(t, 1, disposed["a"])

	assert.Equal(t, 1, r.DetachAll())
	assert.Equal(t, 1, disposed["b"])
	assert.False(t, r.Has("b"))
	assert.Equal(t, 0, r.DetachAll())
}
