package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeyUnique(t *testing.T) {
	// Same filename from two senders must never collide.
	k1 := ObjectKey("invoice.pdf")
	k2 := ObjectKey("invoice.pdf")

	assert.NotEqual(t, k1, k2)
	assert.True(t, strings.HasSuffix(k1, "-invoice.pdf"))
	assert.True(t, strings.HasSuffix(k2, "-invoice.pdf"))
}

func TestObjectKeySanitizesName(t *testing.T) {
	key := ObjectKey("../secret dir/rate card (final).pdf")

	require.False(t, strings.Contains(key, "/"))
	require.False(t, strings.Contains(key, "\\"))
	assert.True(t, strings.HasSuffix(key, "-rate_card__final_.pdf"))
}

func TestObjectKeyEmptyName(t *testing.T) {
	key := ObjectKey("")
	assert.True(t, strings.HasSuffix(key, "-file"))
}

func TestObjectURL(t *testing.T) {
	s := &S3Store{bucket: "chat-media", region: "eu-west-1"}
	assert.Equal(t,
		"https://chat-media.s3.eu-west-1.amazonaws.com/abc-photo.png",
		s.objectURL("abc-photo.png"),
	)

	s.publicURL = "https://cdn.example.com/"
	assert.Equal(t, "https://cdn.example.com/abc-photo.png", s.objectURL("abc-photo.png"))
}
