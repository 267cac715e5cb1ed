package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	// SecretKeyEnv holds the key used for enc:-prefixed configuration values.
	SecretKeyEnv    = "PROXYPOOL_SECRET_KEY"
	EncryptedPrefix = "enc:"
)

// Secrets encrypts and decrypts configuration values with AES-GCM. The
// cipher is derived from the raw key on first use and cached on the value, so
// each loaded configuration owns its own key material.
type Secrets struct {
	rawKey string

	once sync.Once
	gcm  cipher.AEAD
	err  error
}

func NewSecrets(rawKey string) *Secrets {
	return &Secrets{rawKey: strings.TrimSpace(rawKey)}
}

func (s *Secrets) aead() (cipher.AEAD, error) {
	s.once.Do(func() {
		if s.rawKey == "" {
			s.err = errors.New("secret key not set: " + SecretKeyEnv)
			return
		}
		block, err := aes.NewCipher(deriveKey(s.rawKey))
		if err != nil {
			s.err = fmt.Errorf("create cipher: %w", err)
			return
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			s.err = fmt.Errorf("create gcm: %w", err)
			return
		}
		s.gcm = gcm
	})
	return s.gcm, s.err
}

// deriveKey accepts a base64 AES key or any passphrase, which is hashed.
func deriveKey(raw string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		switch len(decoded) {
		case 16, 24, 32:
			return decoded
		}
		sum := sha256.Sum256(decoded)
		return sum[:]
	}
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}

func (s *Secrets) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	payload := gcm.Seal(nonce, nonce, []byte(plain), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt returns plain values unchanged.
func (s *Secrets) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) <= nonceSize {
		return "", errors.New("ciphertext too short")
	}
	plain, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt ciphertext: %w", err)
	}
	return string(plain), nil
}

func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}
