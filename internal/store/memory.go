package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process subscriber store for local development and
// tests. It mirrors the DynamoDB key semantics: one record per (PK, SK).
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]SubscriberRecord // keyed by SK
	failMsg error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]SubscriberRecord)}
}

// PutSubscriber upserts the record for an address.
func (s *MemoryStore) PutSubscriber(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMsg != nil {
		return s.failMsg
	}
	s.records[email] = NewSubscriberRecord(email)
	return nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record for an address, if present.
func (s *MemoryStore) Get(email string) (SubscriberRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[email]
	return rec, ok
}

// FailWith makes every subsequent write return err. Used in tests to
// exercise storage-error paths.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failMsg = err
}
