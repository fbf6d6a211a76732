package coldcard

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Engine is the Coldcard session-encryption state machine: an ephemeral
// secp256k1 key pair that, once the device's own ephemeral public key
// arrives, derives a shared session key via ECDH and switches to two
// independent AES-256-CTR keystreams (one per direction).
//
// The zero value is not usable; construct with NewEngine.
type Engine struct {
	privateKey *btcec.PrivateKey
	encrypt    cipher.Stream
	decrypt    cipher.Stream
	ready      bool
}

// NewEngine generates a fresh ephemeral key pair.
func NewEngine() (*Engine, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("coldcard: generate ephemeral key: %w", err)
	}
	return &Engine{privateKey: priv}, nil
}

// PubKey returns our ephemeral public key in the 64-byte
// uncompressed-minus-prefix form the handshake wire format uses.
func (e *Engine) PubKey() [64]byte {
	return uncompressed(e.privateKey.PubKey())
}

// Ready derives the session key from the device's ephemeral public key
// (64-byte uncompressed-minus-prefix form) and switches the engine into
// its ready state. It is an error to call Ready more than once.
func (e *Engine) Ready(devicePubKey [64]byte) error {
	if e.ready {
		return fmt.Errorf("coldcard: engine already ready")
	}

	prefixed := make([]byte, 65)
	prefixed[0] = 0x04
	copy(prefixed[1:], devicePubKey[:])
	pub, err := btcec.ParsePubKey(prefixed)
	if err != nil {
		return fmt.Errorf("coldcard: parse device public key: %w", err)
	}

	key, err := sessionKey(e.privateKey, pub)
	if err != nil {
		return fmt.Errorf("coldcard: derive session key: %w", err)
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return fmt.Errorf("coldcard: aes cipher: %w", err)
	}
	iv := make([]byte, aes.BlockSize)

	e.encrypt = cipher.NewCTR(block, iv)
	e.decrypt = cipher.NewCTR(block, iv)
	e.ready = true
	return nil
}

// IsReady reports whether the session key has been derived.
func (e *Engine) IsReady() bool { return e.ready }

// Encrypt XORs data with the outbound keystream. The engine must be
// Ready.
func (e *Engine) Encrypt(data []byte) ([]byte, error) {
	if !e.ready {
		return nil, fmt.Errorf("coldcard: engine not ready")
	}
	out := make([]byte, len(data))
	e.encrypt.XORKeyStream(out, data)
	return out, nil
}

// Decrypt XORs data with the inbound keystream. The engine must be
// Ready.
func (e *Engine) Decrypt(data []byte) ([]byte, error) {
	if !e.ready {
		return nil, fmt.Errorf("coldcard: engine not ready")
	}
	out := make([]byte, len(data))
	e.decrypt.XORKeyStream(out, data)
	return out, nil
}

// sessionKey computes SHA-256(x || y) of sk*pk (ECDH shared point),
// matching the original crate's `session_key`.
func sessionKey(sk *btcec.PrivateKey, pk *btcec.PublicKey) ([32]byte, error) {
	curve := btcec.S256()
	pubECDSA := pk.ToECDSA()

	x, y := curve.ScalarMult(pubECDSA.X, pubECDSA.Y, sk.Serialize())

	shared := make([]byte, 64)
	x.FillBytes(shared[:32])
	y.FillBytes(shared[32:])

	return sha256.Sum256(shared), nil
}

// uncompressed returns a public key's 64-byte uncompressed encoding with
// the leading 0x04 prefix stripped.
func uncompressed(pub *btcec.PublicKey) [64]byte {
	ecdsaPub := pub.ToECDSA()
	var out [64]byte
	xb := ecdsaPub.X.Bytes()
	yb := ecdsaPub.Y.Bytes()
	copy(out[32-len(xb):32], xb)
	copy(out[64-len(yb):64], yb)
	return out
}
