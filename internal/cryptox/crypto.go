// Package cryptox implements the one-shot authenticated encryption used for
// encrypted uploads.
//
// Every call to Encrypt generates a fresh AES-256 key and a fresh 96-bit
// nonce, seals the payload with AES-GCM (128-bit tag appended to the
// ciphertext) and hands the key material back only as a hex string of
// nonce‖key. Nothing is stored: whoever receives the ciphertext also needs
// that hex string to open it.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/dmitrijs2005/customuploader/internal/common"
	"github.com/dmitrijs2005/customuploader/internal/shared"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
	// NonceAndKeyHexLen is the length of EncryptedResult.NonceAndKeyHex.
	NonceAndKeyHexLen = 2 * (NonceSize + KeySize)
)

// randReader is the process-wide entropy source. crypto/rand.Reader is safe
// for concurrent use and is never reseeded by this package; tests may swap it.
var randReader io.Reader = rand.Reader

// EncryptedResult is the output of a single Encrypt call.
type EncryptedResult struct {
	// NonceAndKeyHex is lowercase hex of the 12-byte nonce followed by the 32-byte key.
	NonceAndKeyHex string
	// Ciphertext is the GCM output with the tag appended.
	Ciphertext []byte
}

// Encrypt seals plaintext with a freshly generated key and nonce.
//
// The plaintext slice is not modified. The raw key is wiped once it has been
// hex encoded, so the only remaining copy is NonceAndKeyHex.
func Encrypt(plaintext []byte) (*EncryptedResult, error) {
	material := make([]byte, NonceSize+KeySize)
	defer shared.WipeByteArray(material)

	if _, err := io.ReadFull(randReader, material); err != nil {
		return nil, fmt.Errorf("%w: generating nonce and key: %v", common.ErrCryptoFailure, err)
	}

	nonce := material[:NonceSize]
	key := material[NonceSize:]

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if uint64(len(plaintext)) > maxPlaintextSize {
		return nil, fmt.Errorf("%w: plaintext too large (%d bytes)", common.ErrCryptoFailure, len(plaintext))
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &EncryptedResult{
		NonceAndKeyHex: hex.EncodeToString(material),
		Ciphertext:     ciphertext,
	}, nil
}

// maxPlaintextSize is the GCM limit for a single message: (2^32 - 2) blocks.
const maxPlaintextSize = (1<<32 - 2) * aes.BlockSize

// ParseNonceAndKey splits a NonceAndKeyHex string back into nonce and key.
func ParseNonceAndKey(nonceAndKeyHex string) (nonce, key []byte, err error) {
	if len(nonceAndKeyHex) != NonceAndKeyHexLen {
		return nil, nil, fmt.Errorf("%w: expected %d hex characters, got %d",
			common.ErrCryptoFailure, NonceAndKeyHexLen, len(nonceAndKeyHex))
	}

	raw, err := hex.DecodeString(nonceAndKeyHex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decoding key material: %v", common.ErrCryptoFailure, err)
	}

	return raw[:NonceSize], raw[NonceSize:], nil
}

// Decrypt opens a ciphertext produced by Encrypt. It is meant for the
// receiving side of an encrypted upload and is not used on the upload path.
func Decrypt(ciphertext []byte, nonceAndKeyHex string) ([]byte, error) {
	nonce, key, err := ParseNonceAndKey(nonceAndKeyHex)
	if err != nil {
		return nil, err
	}
	defer shared.WipeByteArray(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening ciphertext: %v", common.ErrCryptoFailure, err)
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: creating cipher: %v", common.ErrCryptoFailure, err)
	}

	aead, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("%w: creating GCM: %v", common.ErrCryptoFailure, err)
	}

	return aead, nil
}
