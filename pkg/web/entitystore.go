package web

import (
	"crypto/sha1" //nolint:gosec // ETags need stability, not collision resistance.
	"encoding/hex"
	"encoding/json"
	"errors"
	"maps"
	"sync"
)

// Entity store errors.
var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrStaleETag      = errors.New("etag does not match current entity version")
)

type entityDoc struct {
	data    map[string]any
	version int64
}

func (d *entityDoc) etag() string {
	canonical := struct {
		Data    map[string]any `json:"data"`
		Version int64          `json:"version"`
	}{Data: d.data, Version: d.version}

	raw, err := json.Marshal(canonical)
	if err != nil {
		return ""
	}

	sum := sha1.Sum(raw) //nolint:gosec

	return hex.EncodeToString(sum[:])
}

// EntityStore holds the ETag-versioned entity documents the admin surface
// edits. Every accepted write bumps the version, so a client holding an old
// tag always loses and must reload.
type EntityStore struct {
	mu   sync.RWMutex
	docs map[string]*entityDoc
}

// NewEntityStore creates an empty store.
func NewEntityStore() *EntityStore {
	return &EntityStore{docs: make(map[string]*entityDoc)}
}

func entityKey(entityType, id string) string {
	return entityType + "/" + id
}

// Get returns the entity document and its current ETag. The returned map is
// a copy: callers serialize it after the lock is released, while Patch
// mutates the stored document in place.
func (s *EntityStore) Get(entityType, id string) (map[string]any, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[entityKey(entityType, id)]
	if !ok {
		return nil, "", ErrEntityNotFound
	}

	return maps.Clone(doc.data), doc.etag(), nil
}

// Put replaces the entity document. For an existing entity ifMatch must
// equal the current ETag; for a new one it must be empty.
func (s *EntityStore) Put(entityType, id string, data map[string]any, ifMatch string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entityKey(entityType, id)

	doc, ok := s.docs[key]
	if !ok {
		if ifMatch != "" {
			return "", ErrStaleETag
		}

		doc = &entityDoc{}
		s.docs[key] = doc
	} else if ifMatch != doc.etag() {
		return "", ErrStaleETag
	}

	doc.data = data
	doc.version++

	return doc.etag(), nil
}

// Patch updates a single field of an existing entity document.
func (s *EntityStore) Patch(entityType, id string, fields map[string]any, ifMatch string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[entityKey(entityType, id)]
	if !ok {
		return "", ErrEntityNotFound
	}

	if ifMatch != doc.etag() {
		return "", ErrStaleETag
	}

	for field, value := range fields {
		doc.data[field] = value
	}

	doc.version++

	return doc.etag(), nil
}

// Seed inserts a document without ETag checks. Intended for startup fixtures
// and tests.
func (s *EntityStore) Seed(entityType, id string, data map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &entityDoc{data: data, version: 1}
	s.docs[entityKey(entityType, id)] = doc

	return doc.etag()
}
