package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lataonhehe/data-contract-hackathon/model"
	"github.com/lataonhehe/data-contract-hackathon/pkg/apperr"
)

// MemoryBlobStore keeps contract YAML documents in process memory. It backs
// local runs and tests so the full service works without an object store.
type MemoryBlobStore struct {
	mu     sync.RWMutex
	blobs  map[string]string
	bucket string
}

func NewMemoryBlobStore(bucket string) *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs:  make(map[string]string),
		bucket: bucket,
	}
}

func (s *MemoryBlobStore) Ensure(ctx context.Context) error { return nil }

func (s *MemoryBlobStore) Put(ctx context.Context, id, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = content
	return fmt.Sprintf("mem://%s/%s", s.bucket, objectKey(id)), nil
}

func (s *MemoryBlobStore) Get(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.blobs[id]
	if !ok {
		return "", apperr.New(apperr.KindNotFound, "contract YAML %s not found", id)
	}
	return content, nil
}

func (s *MemoryBlobStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
	return nil
}

// MemoryMetadataStore keeps contract metadata records in process memory.
type MemoryMetadataStore struct {
	mu      sync.RWMutex
	records map[string]*model.Contract
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		records: make(map[string]*model.Contract),
	}
}

func (s *MemoryMetadataStore) Ensure(ctx context.Context) error { return nil }

func (s *MemoryMetadataStore) Put(ctx context.Context, rec *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Store a copy; the YAML field belongs to the blob store.
	cp := *rec
	cp.YAML = ""
	s.records[cp.ContractID] = &cp
	return nil
}

func (s *MemoryMetadataStore) Get(ctx context.Context, id string) (*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "contract %s not found", id)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryMetadataStore) Update(ctx context.Context, id string, status *string, updatedTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "contract %s not found", id)
	}
	if status != nil {
		rec.Status = *status
	}
	rec.UpdatedTime = updatedTime
	return nil
}

func (s *MemoryMetadataStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryMetadataStore) List(ctx context.Context) ([]*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Contract, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}
