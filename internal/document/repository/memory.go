package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/secureblog/secureblog/backend/go-services/internal/document"
)

// MemoryRepo keeps documents and their revisions in process memory. It is used
// when no MongoDB is configured and in tests. Records are copied on the way in
// and out so callers can never mutate stored history.
type MemoryRepo struct {
	mu        sync.RWMutex
	docs      map[int64]*document.Document
	revisions map[int64]*document.Revision
	byDoc     map[int64][]int64 // document id -> revision ids, oldest first
	nextDoc   int64
	nextRev   int64
	now       func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:      make(map[int64]*document.Document),
		revisions: make(map[int64]*document.Revision),
		byDoc:     make(map[int64][]int64),
		now:       time.Now,
	}
}

func (m *MemoryRepo) CreateDocument(_ context.Context, doc *document.Document) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDoc++
	doc.ID = m.nextDoc
	doc.CreatedAt = m.now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	cp := *doc
	m.docs[doc.ID] = &cp
	return doc.ID, nil
}

func (m *MemoryRepo) GetDocument(_ context.Context, id int64) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// ListDocuments returns documents newest first, optionally restricted to one owner.
func (m *MemoryRepo) ListDocuments(_ context.Context, owner string) ([]*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*document.Document, 0, len(m.docs))
	for _, d := range m.docs {
		if owner != "" && d.OwnerID != owner {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteDocument removes the document and all of its revisions.
func (m *MemoryRepo) DeleteDocument(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return document.ErrNotFound
	}
	for _, rid := range m.byDoc[id] {
		delete(m.revisions, rid)
	}
	delete(m.byDoc, id)
	delete(m.docs, id)
	return nil
}

// Corpus returns the content of every stored document except excludeID, in id order.
func (m *MemoryRepo) Corpus(_ context.Context, excludeID int64) ([]document.CorpusEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]document.CorpusEntry, 0, len(m.docs))
	for id, d := range m.docs {
		if id == excludeID {
			continue
		}
		out = append(out, document.CorpusEntry{DocumentID: id, Content: d.Content})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

func (m *MemoryRepo) MaxVersion(_ context.Context, docID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	highest := 0
	for _, rid := range m.byDoc[docID] {
		if v := m.revisions[rid].Version; v > highest {
			highest = v
		}
	}
	return highest, nil
}

func (m *MemoryRepo) GetRevision(_ context.Context, id int64) (*document.Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.revisions[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ListRevisions returns a document's revisions, newest first.
func (m *MemoryRepo) ListRevisions(_ context.Context, docID int64) ([]*document.Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byDoc[docID]
	out := make([]*document.Revision, 0, len(ids))
	for _, rid := range ids {
		cp := *m.revisions[rid]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

// AppendRevision stores rev and points the document's content at it. Both
// happen under one lock, so either both are visible or neither is.
func (m *MemoryRepo) AppendRevision(_ context.Context, rev *document.Revision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[rev.DocumentID]
	if !ok {
		return document.ErrNotFound
	}
	for _, rid := range m.byDoc[rev.DocumentID] {
		if m.revisions[rid].Version == rev.Version {
			return document.ErrVersionConflict
		}
	}
	m.nextRev++
	rev.ID = m.nextRev
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = m.now().UTC()
	}
	cp := *rev
	m.revisions[rev.ID] = &cp
	m.byDoc[rev.DocumentID] = append(m.byDoc[rev.DocumentID], rev.ID)
	d.Content = rev.Content
	d.UpdatedAt = rev.CreatedAt
	return nil
}
