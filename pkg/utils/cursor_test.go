package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.FixedZone("WIB", 7*3600))

	token := EncodeCursor(ts, "msg|with|pipes")
	assert.NotContains(t, token, "=")

	decodedTS, id, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.True(t, ts.Equal(decodedTS))
	assert.Equal(t, "msg|with|pipes", id)
}

func TestDecodeCursorEmpty(t *testing.T) {
	ts, id, err := DecodeCursor("")

	require.NoError(t, err)
	assert.True(t, ts.IsZero())
	assert.Empty(t, id)
	assert.Empty(t, EncodeCursor(time.Time{}, ""))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"%%%", EncodeCursor(time.Now(), "")[:4], "bm90LWEtY3Vyc29y"} {
		_, _, err := DecodeCursor(token)
		assert.Error(t, err, token)
	}
}
