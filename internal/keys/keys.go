// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keys stores provider API keys encrypted at rest.
//
// The vault is a single file holding an AES-256-GCM encrypted JSON map of
// key names to secrets. The data key is derived from a passphrase with
// PBKDF2-SHA-256; the salt travels in the vault file header so the vault
// is self-contained and copyable between machines.
package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/deeting/chatkit/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// encryptedPrefix marks the ciphertext section of the vault file.
	encryptedPrefix = "ENC:"

	// nonceSize is the AES-GCM nonce size (96 bits).
	nonceSize = 12

	// keySize is the AES-256 key size.
	keySize = 32

	// saltSize is the PBKDF2 salt size.
	saltSize = 32

	// pbkdf2Iterations follows the OWASP 2023 recommendation for
	// PBKDF2-SHA-256.
	pbkdf2Iterations = 600000
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrKeyNotFound indicates the named key is not in the vault.
	ErrKeyNotFound = errors.New("key not found in vault")

	// ErrInvalidVault indicates the vault file is malformed.
	ErrInvalidVault = errors.New("invalid vault file format")

	// ErrDecryptionFailed indicates a wrong passphrase or tampered data.
	ErrDecryptionFailed = errors.New("vault decryption failed: wrong passphrase or tampered data")
)

// =============================================================================
// VAULT
// =============================================================================

// Vault is an encrypted name-to-secret store backed by a single file.
type Vault struct {
	mu      sync.RWMutex
	path    string
	salt    []byte
	aead    cipher.AEAD
	entries map[string]string
}

// DefaultPath returns the vault location under the profile directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".deeting", "keys.enc"), nil
}

// Open opens or creates the vault at path, unlocking it with passphrase.
// A missing file yields an empty vault; the file appears on first Set.
func Open(path, passphrase string) (*Vault, error) {
	v := &Vault{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		salt := make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := v.unlock(passphrase, salt); err != nil {
			return nil, err
		}
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	salt, blob, err := parseVaultFile(data)
	if err != nil {
		return nil, err
	}
	if err := v.unlock(passphrase, salt); err != nil {
		return nil, err
	}
	if err := v.decryptInto(blob); err != nil {
		return nil, err
	}
	return v, nil
}

// unlock derives the data key and initializes the cipher.
func (v *Vault) unlock(passphrase string, salt []byte) error {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to init GCM: %w", err)
	}
	v.salt = salt
	v.aead = aead
	return nil
}

// parseVaultFile splits the file into its salt header and ciphertext.
// Format: base64(salt) newline "ENC:" base64(nonce|ciphertext|tag).
func parseVaultFile(data []byte) (salt, blob []byte, err error) {
	head, tail, found := strings.Cut(string(data), "\n")
	if !found {
		return nil, nil, ErrInvalidVault
	}
	salt, err = base64.StdEncoding.DecodeString(strings.TrimSpace(head))
	if err != nil || len(salt) != saltSize {
		return nil, nil, ErrInvalidVault
	}
	tail = strings.TrimSpace(tail)
	if !strings.HasPrefix(tail, encryptedPrefix) {
		return nil, nil, ErrInvalidVault
	}
	blob, err = base64.StdEncoding.DecodeString(strings.TrimPrefix(tail, encryptedPrefix))
	if err != nil {
		return nil, nil, ErrInvalidVault
	}
	return salt, blob, nil
}

// decryptInto decrypts the blob and replaces the entry map.
func (v *Vault) decryptInto(blob []byte) error {
	if len(blob) < nonceSize {
		return ErrInvalidVault
	}
	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrDecryptionFailed
	}
	defer zeroBytes(plaintext)

	entries := make(map[string]string)
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return ErrInvalidVault
	}
	v.entries = entries
	return nil
}

// flushLocked encrypts and writes the vault. Caller holds the lock.
func (v *Vault) flushLocked() error {
	plaintext, err := json.Marshal(v.entries)
	if err != nil {
		return fmt.Errorf("failed to encode vault: %w", err)
	}
	defer zeroBytes(plaintext)

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	blob := v.aead.Seal(nonce, nonce, plaintext, nil)

	var out strings.Builder
	out.WriteString(base64.StdEncoding.EncodeToString(v.salt))
	out.WriteString("\n")
	out.WriteString(encryptedPrefix)
	out.WriteString(base64.StdEncoding.EncodeToString(blob))
	out.WriteString("\n")

	if err := os.MkdirAll(filepath.Dir(v.path), 0755); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}
	return util.AtomicWriteFile(v.path, []byte(out.String()), 0600)
}

// Get returns the secret stored under name.
func (v *Vault) Get(name string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	secret, ok := v.entries[name]
	if !ok {
		return "", ErrKeyNotFound
	}
	return secret, nil
}

// Set stores a secret under name and persists the vault.
func (v *Vault) Set(name, secret string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[name] = secret
	return v.flushLocked()
}

// Delete removes a secret and persists the vault.
func (v *Vault) Delete(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.entries[name]; !ok {
		return ErrKeyNotFound
	}
	delete(v.entries, name)
	return v.flushLocked()
}

// Names returns the stored key names, sorted.
func (v *Vault) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.entries))
	for name := range v.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// zeroBytes clears key material so it does not linger in crash dumps.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
