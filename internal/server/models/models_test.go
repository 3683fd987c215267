package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_JSONOmitsPasswordHash(t *testing.T) {
	bd, err := ParseDate("1990-05-17")
	require.NoError(t, err)

	u := User{ID: 7, Name: "Ann Lee", Email: "ann@x.com", PasswordHash: "$2a$10$secret", BirthDate: &bd}
	b, err := json.Marshal(u)
	require.NoError(t, err)

	s := string(b)
	assert.NotContains(t, s, "secret")
	assert.NotContains(t, s, "password")
	assert.Contains(t, s, `"birthDate":"1990-05-17"`)
	assert.Contains(t, s, `"firstName":""`)
	assert.Empty(t, u.Sanitized().PasswordHash)
}

func TestDate_JSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2001-02-03"`), &d))
	assert.Equal(t, time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC), d.Time)

	assert.Error(t, json.Unmarshal([]byte(`"03.02.2001"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20010203`), &d))

	assert.Equal(t, "2001-02-03", NewDate(time.Date(2001, 2, 3, 23, 59, 0, 0, time.UTC)).String())
}

func TestRefreshToken_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := &RefreshToken{ExpiresAt: now}

	assert.False(t, tok.Expired(now))
	assert.True(t, tok.Expired(now.Add(time.Nanosecond)))
}

func TestEvent_JSONFieldNames(t *testing.T) {
	url := "/uploads/1-a.png"
	b, err := json.Marshal(Event{ID: 1, Title: "Meetup", CreatedBy: 2, ImageURL: &url})
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `"createdBy":2`)
	assert.Contains(t, s, `"image_url":"/uploads/1-a.png"`)
	assert.Contains(t, s, `"description":null`)
}
