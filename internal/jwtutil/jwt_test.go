package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndValidate(t *testing.T) {
	m := NewManager("test-signing-key", time.Hour)

	token, err := m.IssueToken("admin@example.com", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestManager_ValidateToken_WrongKey(t *testing.T) {
	issuer := NewManager("key-one", time.Hour)
	verifier := NewManager("key-two", time.Hour)

	token, err := issuer.IssueToken("admin@example.com", "admin")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestManager_ValidateToken_Expired(t *testing.T) {
	m := NewManager("test-signing-key", time.Millisecond)

	token, err := m.IssueToken("admin@example.com", "admin")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestManager_ValidateToken_Garbage(t *testing.T) {
	m := NewManager("test-signing-key", time.Hour)
	_, err := m.ValidateToken("not.a.token")
	assert.Error(t, err)
}
