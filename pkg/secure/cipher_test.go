package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldCipher(t *testing.T) {
	c, err := NewFieldCipher("test-secret")
	require.NoError(t, err)

	t.Run("Encrypt and Decrypt", func(t *testing.T) {
		sealed, err := c.Encrypt("LB0012345678")
		require.NoError(t, err)
		assert.NotEqual(t, "LB0012345678", sealed)

		opened, err := c.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, "LB0012345678", opened)
	})

	t.Run("Nonce differs per call", func(t *testing.T) {
		a, err := c.Encrypt("LB0012345678")
		require.NoError(t, err)
		b, err := c.Encrypt("LB0012345678")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("Empty stays empty", func(t *testing.T) {
		sealed, err := c.Encrypt("")
		require.NoError(t, err)
		assert.Empty(t, sealed)
	})

	t.Run("Wrong secret fails", func(t *testing.T) {
		sealed, err := c.Encrypt("LB0012345678")
		require.NoError(t, err)
		other, err := NewFieldCipher("other-secret")
		require.NoError(t, err)
		_, err = other.Decrypt(sealed)
		assert.Error(t, err)
	})

	t.Run("Garbage input", func(t *testing.T) {
		_, err := c.Decrypt("!!!")
		assert.Error(t, err)
		_, err = c.Decrypt("YWJj")
		assert.Error(t, err)
	})

	_, err = NewFieldCipher("")
	assert.Error(t, err)
}
