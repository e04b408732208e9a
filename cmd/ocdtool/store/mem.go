package store

import (
	"context"
	"sort"
	"sync"
)

// MemStorage keeps documents in memory for the life of the process.
type MemStorage struct {
	sync.Mutex
	docs map[string]*Document
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		docs: make(map[string]*Document),
	}
}

func (s *MemStorage) Open(ctx context.Context) error {
	return nil
}

func (s *MemStorage) Close(ctx context.Context) error {
	return nil
}

func (s *MemStorage) Put(ctx context.Context, doc *Document) error {
	s.Lock()
	d := *doc
	s.docs[doc.Name] = &d
	s.Unlock()
	return nil
}

func (s *MemStorage) Get(ctx context.Context, name string) (*Document, error) {
	s.Lock()
	defer s.Unlock()
	doc, have := s.docs[name]
	if !have {
		return nil, ErrNotFound
	}
	d := *doc
	return &d, nil
}

func (s *MemStorage) List(ctx context.Context) ([]*Document, error) {
	s.Lock()
	acc := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		d := *doc
		d.Source = nil
		acc = append(acc, &d)
	}
	s.Unlock()
	sort.Slice(acc, func(i, j int) bool {
		return acc[i].Name < acc[j].Name
	})
	return acc, nil
}

func (s *MemStorage) Remove(ctx context.Context, name string) error {
	s.Lock()
	defer s.Unlock()
	if _, have := s.docs[name]; !have {
		return ErrNotFound
	}
	delete(s.docs, name)
	return nil
}
