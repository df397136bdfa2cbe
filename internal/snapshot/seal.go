package snapshot

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// magic prefixes every sealed export and is bound into the GCM tag.
var magic = []byte("PETPALS1")

var (
	ErrNotSnapshot   = errors.New("not a petpals export")
	ErrBadPassphrase = errors.New("wrong passphrase or corrupted export")
)

// deriveKey stretches passphrase into an AES-256 key with Argon2id.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, keySize)
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// seal writes [magic][salt][nonce][AES-256-GCM ciphertext] to w.
func seal(w io.Writer, plaintext []byte, passphrase string) error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}

	out := make([]byte, 0, len(magic)+saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, magic)

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func open(r io.Reader, passphrase string) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	header := len(magic) + saltSize + nonceSize
	if len(data) < header || string(data[:len(magic)]) != string(magic) {
		return nil, ErrNotSnapshot
	}

	salt := data[len(magic) : len(magic)+saltSize]
	nonce := data[len(magic)+saltSize : header]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, data[header:], magic)
	if err != nil {
		return nil, ErrBadPassphrase
	}
	return plaintext, nil
}
