// Package ledger maintains the append-only revision history of documents.
// Edits and restores always add a new head revision; nothing is rewritten.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/secureblog/secureblog/backend/go-services/internal/document"
)

const (
	InitialDescription     = "Initial Publication"
	DefaultEditDescription = "Updated content"
)

// Store is the persistence the ledger needs. AppendRevision must insert the
// revision and update the document's current content as one unit, and must
// report document.ErrVersionConflict if (DocumentID, Version) already exists.
type Store interface {
	MaxVersion(ctx context.Context, docID int64) (int, error)
	GetRevision(ctx context.Context, id int64) (*document.Revision, error)
	ListRevisions(ctx context.Context, docID int64) ([]*document.Revision, error)
	AppendRevision(ctx context.Context, rev *document.Revision) error
}

// Ledger assigns version numbers and appends revisions. The version read and
// the insert happen under a per-document lock.
type Ledger struct {
	store  Store
	locker Locker
}

// New returns a ledger over store. A nil locker uses a LocalLocker.
func New(store Store, locker Locker) *Ledger {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Ledger{store: store, locker: locker}
}

// CreateInitial records version 1 of a document. It fails with
// document.ErrAlreadyExists if the document already has history.
func (l *Ledger) CreateInitial(ctx context.Context, docID int64, content string) (*document.Revision, error) {
	if err := validID(docID); err != nil {
		return nil, err
	}
	return l.withDocument(ctx, docID, func(current int) (*document.Revision, error) {
		if current > 0 {
			return nil, fmt.Errorf("document %d: %w", docID, document.ErrAlreadyExists)
		}
		return &document.Revision{DocumentID: docID, Content: content, ChangeDescription: InitialDescription}, nil
	})
}

// AppendEdit records new content as the next version.
func (l *Ledger) AppendEdit(ctx context.Context, docID int64, content, description string) (*document.Revision, error) {
	if err := validID(docID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		description = DefaultEditDescription
	}
	return l.withDocument(ctx, docID, func(current int) (*document.Revision, error) {
		if current == 0 {
			return nil, fmt.Errorf("document %d has no revisions: %w", docID, document.ErrNotFound)
		}
		return &document.Revision{DocumentID: docID, Content: content, ChangeDescription: description}, nil
	})
}

// Restore copies the content of revisionID into a new head revision. Existing
// revisions are left untouched.
func (l *Ledger) Restore(ctx context.Context, docID, revisionID int64) (*document.Revision, error) {
	if err := validID(docID); err != nil {
		return nil, err
	}
	if err := validID(revisionID); err != nil {
		return nil, err
	}
	return l.withDocument(ctx, docID, func(current int) (*document.Revision, error) {
		target, err := l.store.GetRevision(ctx, revisionID)
		if err != nil {
			return nil, fmt.Errorf("revision %d: %w", revisionID, err)
		}
		if target.DocumentID != docID {
			return nil, fmt.Errorf("revision %d of document %d: %w", revisionID, docID, document.ErrRevisionMismatch)
		}
		if current == 0 {
			return nil, fmt.Errorf("document %d has no revisions: %w", docID, document.ErrNotFound)
		}
		return &document.Revision{
			DocumentID:        docID,
			Content:           target.Content,
			ChangeDescription: "Restored from Version " + strconv.Itoa(target.Version),
		}, nil
	})
}

// ListRevisions returns the history of docID, newest first.
func (l *Ledger) ListRevisions(ctx context.Context, docID int64) ([]*document.Revision, error) {
	if err := validID(docID); err != nil {
		return nil, err
	}
	return l.store.ListRevisions(ctx, docID)
}

// withDocument holds the document lock while build decides the next revision
// from the current highest version, then stores it as version current+1.
func (l *Ledger) withDocument(ctx context.Context, docID int64, build func(current int) (*document.Revision, error)) (*document.Revision, error) {
	unlock, err := l.locker.Lock(ctx, "document:"+strconv.FormatInt(docID, 10))
	if err != nil {
		return nil, fmt.Errorf("lock document %d: %w", docID, err)
	}
	defer unlock()

	current, err := l.store.MaxVersion(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("read version of document %d: %w", docID, err)
	}
	rev, err := build(current)
	if err != nil {
		return nil, err
	}
	rev.Version = current + 1
	if err := l.store.AppendRevision(ctx, rev); err != nil {
		return nil, fmt.Errorf("append revision %d of document %d: %w", rev.Version, docID, err)
	}
	return rev, nil
}

func validID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("id %d: %w", id, document.ErrInvalidInput)
	}
	return nil
}
