package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpirationDate(t *testing.T) {
	t.Run("365 days out", func(tt *testing.T) {
		from := time.Date(2023, 3, 15, 10, 30, 0, 0, time.UTC)
		got := ExpirationDate(from, 365)
		assert.Equal(tt, "2024-03-14T10:30:00Z", got)

		parsed, err := time.Parse(time.RFC3339, got)
		assert.NoError(tt, err)
		assert.Equal(tt, from.AddDate(0, 0, 365), parsed)
	})

	t.Run("leap year follows calendar arithmetic", func(tt *testing.T) {
		// 2024 is a leap year; +365 calendar days from Feb 28 lands on Feb 27,
		// one day short of a full year because of Feb 29
		from := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
		assert.Equal(tt, "2025-02-27T00:00:00Z", ExpirationDate(from, 365))
	})
}

func TestIs2xxResponse(t *testing.T) {
	assert.True(t, Is2xxResponse(200))
	assert.True(t, Is2xxResponse(204))
	assert.False(t, Is2xxResponse(302))
	assert.False(t, Is2xxResponse(500))
}

func TestSanitizeLog(t *testing.T) {
	assert.Equal(t, "did:key:abc", SanitizeLog("did:key:abc\r\n"))
}
