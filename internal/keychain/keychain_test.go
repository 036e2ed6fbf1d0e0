package keychain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestTokenRoundTrip(t *testing.T) {
	keyring.MockInit()

	_, err := Token()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetToken("123:abc"))
	tok, err := Token()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", tok)

	require.NoError(t, DeleteToken())
	_, err = Token()
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, DeleteToken())
}
