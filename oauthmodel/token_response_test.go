package oauthmodel_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/synco-portal/oauthmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionResponseFlatTokens(t *testing.T) {
	var r oauthmodel.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(`{"user":{"email":"a@example.com"},"access_token":"acc","refresh_token":"ref"}`), &r))

	assert.Equal(t, "acc", r.Access())
	assert.Equal(t, "ref", r.Refresh())
	require.NotNil(t, r.User)
	assert.Equal(t, "a@example.com", r.User.Email)
}

func TestSessionResponseNestedTokens(t *testing.T) {
	var r oauthmodel.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(`{"user":{"email":"a@example.com"},"tokens":{"access_token":"acc2"}}`), &r))

	assert.Equal(t, "acc2", r.Access())
	assert.Equal(t, "", r.Refresh())
}

func TestSessionResponseWithoutTokens(t *testing.T) {
	var r oauthmodel.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(`{"user":{"email":"a@example.com"}}`), &r))

	assert.Empty(t, r.Access())
	assert.Empty(t, r.Refresh())
}
