package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserJSONOmitsPassword(t *testing.T) {
	u := &User{ID: 3, Username: "alice", Password: "$2a$10$hash"}

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$10$hash")
	assert.NotContains(t, string(raw), "password")
}

func TestToProfile(t *testing.T) {
	u := &User{
		ID:        3,
		Username:  "alice",
		Email:     "a@x.com",
		FirstName: "A",
		LastName:  "L",
		ForHire:   true,
		Password:  "$2a$10$hash",
		Avatar:    "<svg/>",
	}

	p := u.ToProfile()
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "a@x.com", p.Email)
	assert.True(t, p.ForHire)
	assert.Equal(t, "<svg/>", p.Avatar)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$10$hash")
}
