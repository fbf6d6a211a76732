package coldcard

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngineECDHAgreement(t *testing.T) {
	alice, err := NewEngine()
	require.NoError(t, err)
	bob, err := NewEngine()
	require.NoError(t, err)

	alicePub := alice.PubKey()
	bobPub := bob.PubKey()

	require.NoError(t, alice.Ready(bobPub))
	require.NoError(t, bob.Ready(alicePub))

	plaintext := []byte("hello coldcard")
	ciphertext, err := alice.Encrypt(plaintext)
	require.NoError(t, err)

	recovered, err := bob.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)
}

func TestEngineCTRSymmetry(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	peer, err := NewEngine()
	require.NoError(t, err)
	require.NoError(t, e.Ready(peer.PubKey()))
	require.NoError(t, peer.Ready(e.PubKey()))

	plaintext := bytes.Repeat([]byte{0x42}, 100)
	ciphertext, err := e.Encrypt(append([]byte(nil), plaintext...))
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	second := []byte("second message")
	ciphertext2, err := e.Encrypt(second)
	require.NoError(t, err)

	// Decrypting in the same order as encryption recovers every message.
	recovered, err := peer.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)
	recovered2, err := peer.Decrypt(ciphertext2)
	require.NoError(t, err)
	require.Equal(t, second, recovered2)
}

func TestEngineNotReadyErrors(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	_, err = e.Encrypt([]byte("x"))
	require.Error(t, err)

	_, err = e.Decrypt([]byte("x"))
	require.Error(t, err)
}

func TestEngineReadyTwiceErrors(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	peer, err := NewEngine()
	require.NoError(t, err)

	require.NoError(t, e.Ready(peer.PubKey()))
	require.Error(t, e.Ready(peer.PubKey()))
}
