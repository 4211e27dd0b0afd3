package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNew_KeyLength(t *testing.T) {
	_, err := New("short")
	assert.Error(t, err)

	c, err := New(testKey)
	assert.NoError(t, err)
	assert.NotNil(t, c)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c, err := New(testKey)
	assert.NoError(t, err)

	plaintext := "sandbox-gateway-token-xyz"
	ciphertext, nonce, err := c.Encrypt(plaintext)
	assert.NoError(t, err)
	assert.NotEqual(t, []byte(plaintext), ciphertext)

	decrypted, err := c.Decrypt(ciphertext, nonce)
	assert.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecrypt_WrongKey(t *testing.T) {
	c1, err := New(testKey)
	assert.NoError(t, err)
	c2, err := New("fedcba9876543210fedcba9876543210")
	assert.NoError(t, err)

	ciphertext, nonce, err := c1.Encrypt("secret")
	assert.NoError(t, err)

	_, err = c2.Decrypt(ciphertext, nonce)
	assert.Error(t, err)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	c, err := New(testKey)
	assert.NoError(t, err)

	ciphertext, nonce, err := c.Encrypt("secret")
	assert.NoError(t, err)

	ciphertext[0] ^= 0xff
	_, err = c.Decrypt(ciphertext, nonce)
	assert.Error(t, err)
}
