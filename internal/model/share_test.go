package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShareLinkString(t *testing.T) {
	link := ShareLink{BaseURL: "https://cloud.example.com/", Token: "aBc123", FileName: "dataset v2.zip"}
	assert.Equal(t, "https://cloud.example.com/s/aBc123/download/dataset%20v2.zip", link.String())
}

func TestNewShareReference(t *testing.T) {
	ref := NewShareReference("https://cloud.example.com", "tok", "/models/42/archive.zip", "2026-10-21 00:00:00")

	assert.Equal(t, "tok", ref.Token)
	assert.Equal(t, "/models/42/archive.zip", ref.Path)
	assert.Equal(t, "https://cloud.example.com/s/tok/download/archive.zip", ref.URL)

	at, ok := ref.ExpiresAt()
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 21, 0, 0, 0, 0, time.Local), at)
}

func TestShareReferenceWithoutExpiration(t *testing.T) {
	ref := NewShareReference("https://cloud.example.com", "tok", "/a.png", "")
	_, ok := ref.ExpiresAt()
	assert.False(t, ok)
	assert.Equal(t, "https://cloud.example.com/s/tok/download/a.png", ref.URL)
}
