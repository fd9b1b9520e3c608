package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	usr := &User{Username: "root", Name: "root first"}

	err := usr.SetPassword("sekret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("sekret"), usr.PasswordHash, "the password must not be stored as plaintext")

	match, err := usr.IsPasswordMatch("sekret")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = usr.IsPasswordMatch("test")
	require.NoError(t, err)
	assert.False(t, match)
}

func TestIsPasswordMatchWithoutHash(t *testing.T) {
	usr := &User{}

	match, err := usr.IsPasswordMatch("anything")
	assert.Error(t, err)
	assert.False(t, match)
}
