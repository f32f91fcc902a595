// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/deeting/chatkit/internal/util"
)

// KV is a durable string-to-string store backed by a single JSON file.
// It holds profile-scoped client state: the per-agent last-session mapping
// and user preferences. Writes are atomic so a crash never corrupts it.
type KV struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// OpenKV loads (or initializes) the key-value store at path.
// A missing file is an empty store; a corrupted file is replaced on the
// next write rather than failing every read.
func OpenKV(path string) (*KV, error) {
	kv := &KV{
		path: path,
		data: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return kv, nil
		}
		return nil, fmt.Errorf("failed to read kv store: %w", err)
	}

	if err := json.Unmarshal(raw, &kv.data); err != nil {
		// Unreadable state is dropped; preferences are advisory.
		kv.data = make(map[string]string)
	}
	return kv, nil
}

// Get returns the value for key and whether it was present.
func (kv *KV) Get(key string) (string, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	return v, ok
}

// Set stores key=value and persists the store.
func (kv *KV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
	return kv.flushLocked()
}

// Delete removes a key and persists the store. Deleting an absent key is a
// no-op.
func (kv *KV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, ok := kv.data[key]; !ok {
		return nil
	}
	delete(kv.data, key)
	return kv.flushLocked()
}

// Keys returns a snapshot of all keys.
func (kv *KV) Keys() []string {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	keys := make([]string, 0, len(kv.data))
	for k := range kv.data {
		keys = append(keys, k)
	}
	return keys
}

func (kv *KV) flushLocked() error {
	raw, err := json.MarshalIndent(kv.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode kv store: %w", err)
	}
	return util.AtomicWriteFile(kv.path, raw, 0600)
}
