package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/secureblog/secureblog/backend/go-services/internal/document"
	"github.com/secureblog/secureblog/backend/go-services/internal/document/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) (*Ledger, *repository.MemoryRepo, int64) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	id, err := repo.CreateDocument(context.Background(), &document.Document{Title: "post", Content: "first"})
	require.NoError(t, err)
	return New(repo, nil), repo, id
}

func TestCreateInitial_TwiceFails(t *testing.T) {
	ctx := context.Background()
	l, _, id := newLedger(t)

	rev, err := l.CreateInitial(ctx, id, "first")
	require.NoError(t, err)
	assert.Equal(t, 1, rev.Version)
	assert.Equal(t, InitialDescription, rev.ChangeDescription)
	assert.NotZero(t, rev.ID)

	_, err = l.CreateInitial(ctx, id, "again")
	require.ErrorIs(t, err, document.ErrAlreadyExists)
}

func TestAppendEdit_OrderingAndCurrentContent(t *testing.T) {
	ctx := context.Background()
	l, repo, id := newLedger(t)

	_, err := l.CreateInitial(ctx, id, "first")
	require.NoError(t, err)
	_, err = l.AppendEdit(ctx, id, "second", "fix typo")
	require.NoError(t, err)
	third, err := l.AppendEdit(ctx, id, "third", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultEditDescription, third.ChangeDescription)

	revs, err := l.ListRevisions(ctx, id)
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{revs[0].Version, revs[1].Version, revs[2].Version})
	assert.Equal(t, "fix typo", revs[1].ChangeDescription)

	doc, err := repo.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, revs[0].Content, doc.Content)
	assert.Equal(t, "third", doc.Content)
}

func TestAppendEdit_WithoutHistory(t *testing.T) {
	l, _, id := newLedger(t)
	_, err := l.AppendEdit(context.Background(), id, "x", "y")
	require.ErrorIs(t, err, document.ErrNotFound)
}

func TestRestore_AppendsNewHead(t *testing.T) {
	ctx := context.Background()
	l, repo, id := newLedger(t)

	first, err := l.CreateInitial(ctx, id, "first")
	require.NoError(t, err)
	_, err = l.AppendEdit(ctx, id, "second", "edit")
	require.NoError(t, err)
	_, err = l.AppendEdit(ctx, id, "third", "edit")
	require.NoError(t, err)

	before, err := l.ListRevisions(ctx, id)
	require.NoError(t, err)

	restored, err := l.Restore(ctx, id, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, restored.Version)
	assert.Equal(t, "first", restored.Content)
	assert.Equal(t, "Restored from Version 1", restored.ChangeDescription)

	after, err := l.ListRevisions(ctx, id)
	require.NoError(t, err)
	require.Len(t, after, 4)
	assert.Equal(t, before, after[1:], "existing revisions are untouched")

	doc, err := repo.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "first", doc.Content)
}

func TestRestore_Errors(t *testing.T) {
	ctx := context.Background()
	l, repo, id := newLedger(t)
	_, err := l.CreateInitial(ctx, id, "first")
	require.NoError(t, err)

	otherID, err := repo.CreateDocument(ctx, &document.Document{Content: "other"})
	require.NoError(t, err)
	other, err := l.CreateInitial(ctx, otherID, "other")
	require.NoError(t, err)

	_, err = l.Restore(ctx, id, 999)
	require.ErrorIs(t, err, document.ErrNotFound)

	_, err = l.Restore(ctx, id, other.ID)
	require.ErrorIs(t, err, document.ErrRevisionMismatch)
	require.ErrorIs(t, err, document.ErrNotFound)

	_, err = l.Restore(ctx, 0, other.ID)
	require.ErrorIs(t, err, document.ErrInvalidInput)
}

func TestInvalidIDs(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	_, err := l.CreateInitial(ctx, -1, "x")
	assert.ErrorIs(t, err, document.ErrInvalidInput)
	_, err = l.AppendEdit(ctx, 0, "x", "")
	assert.ErrorIs(t, err, document.ErrInvalidInput)
	_, err = l.ListRevisions(ctx, 0)
	assert.ErrorIs(t, err, document.ErrInvalidInput)
}

func TestConcurrentEditsGetContiguousVersions(t *testing.T) {
	ctx := context.Background()
	l, _, id := newLedger(t)
	_, err := l.CreateInitial(ctx, id, "first")
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.AppendEdit(ctx, id, "edit", "concurrent"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	revs, err := l.ListRevisions(ctx, id)
	require.NoError(t, err)
	require.Len(t, revs, writers+1)
	for i, r := range revs {
		assert.Equal(t, writers+1-i, r.Version)
	}
}

// racyStore widens the window between MaxVersion and AppendRevision.
type racyStore struct {
	*repository.MemoryRepo
}

func (r racyStore) MaxVersion(ctx context.Context, docID int64) (int, error) {
	v, err := r.MemoryRepo.MaxVersion(ctx, docID)
	time.Sleep(5 * time.Millisecond)
	return v, err
}

func TestLockPreventsVersionRace(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	id, err := repo.CreateDocument(ctx, &document.Document{})
	require.NoError(t, err)
	l := New(racyStore{repo}, NewLocalLocker())
	_, err = l.CreateInitial(ctx, id, "v1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var conflicts int
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.AppendEdit(ctx, id, "x", ""); errors.Is(err, document.ErrVersionConflict) {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, conflicts)
}

// noopLocker disables serialisation to show the store still rejects duplicates.
type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

func TestWithoutLockStoreReportsConflict(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	id, err := repo.CreateDocument(ctx, &document.Document{})
	require.NoError(t, err)
	l := New(racyStore{repo}, noopLocker{})
	_, err = l.CreateInitial(ctx, id, "v1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.AppendEdit(ctx, id, "x", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, document.ErrVersionConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.GreaterOrEqual(t, ok, 1)
	assert.Equal(t, 4, ok+conflicts)

	revs, err := repo.ListRevisions(ctx, id)
	require.NoError(t, err)
	seen := map[int]bool{}
	for _, r := range revs {
		require.False(t, seen[r.Version], "duplicate version %d", r.Version)
		seen[r.Version] = true
	}
}
