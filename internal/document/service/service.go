package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/secureblog/secureblog/backend/go-services/internal/audit"
	"github.com/secureblog/secureblog/backend/go-services/internal/document"
	"github.com/secureblog/secureblog/backend/go-services/internal/document/ledger"
	"github.com/secureblog/secureblog/backend/go-services/internal/ingestion"
	"github.com/secureblog/secureblog/backend/go-services/pkg/logger"
	"github.com/secureblog/secureblog/backend/go-services/pkg/metrics"
)

// ErrArchiveDisabled is returned when archived revisions are requested but no
// object storage is configured.
var ErrArchiveDisabled = errors.New("revision archive not configured")

// Repository is the storage collaborator for documents and revisions.
type Repository interface {
	ledger.Store
	CreateDocument(ctx context.Context, doc *document.Document) (int64, error)
	GetDocument(ctx context.Context, id int64) (*document.Document, error)
	ListDocuments(ctx context.Context, owner string) ([]*document.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
	Corpus(ctx context.Context, excludeID int64) ([]document.CorpusEntry, error)
}

// Archiver receives a copy of every appended revision.
type Archiver interface {
	Archive(ctx context.Context, rev *document.Revision) error
	PresignedURL(ctx context.Context, docID int64, version int, expires time.Duration) (string, error)
}

// Service defines the document business operations used by the handler layer.
type Service interface {
	Create(ctx context.Context, owner, title, content string) (*CreateResult, error)
	Get(ctx context.Context, id int64) (*document.Document, error)
	List(ctx context.Context, owner string) ([]*document.Document, error)
	Update(ctx context.Context, owner string, id int64, content, description string) (*document.Revision, error)
	Restore(ctx context.Context, owner string, id, revisionID int64) (*RestoreResult, error)
	Delete(ctx context.Context, owner string, id int64) error
	Revisions(ctx context.Context, id int64) ([]*document.Revision, error)
	ArchiveURL(ctx context.Context, id int64, version int) (string, error)
	Reports(ctx context.Context, limit int) ([]*audit.Report, error)
}

// CreateResult describes an accepted submission.
type CreateResult struct {
	Document *document.Document
	Revision *document.Revision
	Decision ingestion.Decision
}

type RestoreResult struct {
	Revision        *document.Revision
	RestoredVersion int
}

// Options wires the collaborators of a document service. Recorder and
// Archiver are optional.
type Options struct {
	Repo     Repository
	Ledger   *ledger.Ledger
	Policy   *ingestion.Policy
	Recorder audit.Recorder
	Archiver Archiver
}

func New(opts Options) Service {
	if opts.Ledger == nil {
		opts.Ledger = ledger.New(opts.Repo, nil)
	}
	if opts.Recorder == nil {
		opts.Recorder = audit.NewMemoryRecorder(0)
	}
	return &documentService{
		repo:     opts.Repo,
		ledger:   opts.Ledger,
		policy:   opts.Policy,
		recorder: opts.Recorder,
		archiver: opts.Archiver,
	}
}

type documentService struct {
	repo     Repository
	ledger   *ledger.Ledger
	policy   *ingestion.Policy
	recorder audit.Recorder
	archiver Archiver
}

// Create screens content against every accepted document and, when accepted,
// stores the document together with its first revision.
func (s *documentService) Create(ctx context.Context, owner, title, content string) (*CreateResult, error) {
	if owner == "" || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("owner and content are required: %w", document.ErrInvalidInput)
	}
	corpus, err := s.repo.Corpus(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	decision, err := s.policy.Submit(content, contents(corpus))
	if err != nil {
		return nil, s.screeningError(err)
	}
	s.observe(ctx, audit.KindCreate, owner, 0, decision, corpus)
	if err := decision.Err(); err != nil {
		logger.Info("submission rejected", "owner", owner, "similarity", decision.Similarity)
		return &CreateResult{Decision: decision}, err
	}

	doc := &document.Document{
		Title:             title,
		Content:           content,
		OwnerID:           owner,
		SimilarityScore:   decision.Similarity,
		MachineLikelihood: decision.MachineLikelihood,
	}
	if _, err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	rev, err := s.ledger.CreateInitial(ctx, doc.ID, content)
	if err != nil {
		if derr := s.repo.DeleteDocument(ctx, doc.ID); derr != nil {
			logger.Errorf("rollback of document %d failed: %v", doc.ID, derr)
		}
		return nil, fmt.Errorf("initial revision: %w", err)
	}
	s.appended(ctx, "initial", rev)
	logger.Info("document created", "document_id", doc.ID, "owner", owner,
		"similarity", decision.Similarity, "machine_likelihood", decision.MachineLikelihood)
	return &CreateResult{Document: doc, Revision: rev, Decision: decision}, nil
}

func (s *documentService) Get(ctx context.Context, id int64) (*document.Document, error) {
	if id <= 0 {
		return nil, document.ErrInvalidInput
	}
	return s.repo.GetDocument(ctx, id)
}

func (s *documentService) List(ctx context.Context, owner string) ([]*document.Document, error) {
	return s.repo.ListDocuments(ctx, owner)
}

func (s *documentService) Update(ctx context.Context, owner string, id int64, content, description string) (*document.Revision, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required: %w", document.ErrInvalidInput)
	}
	if _, err := s.owned(ctx, owner, id); err != nil {
		return nil, err
	}
	if s.policy.Config().ScoreEdits {
		corpus, err := s.repo.Corpus(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
		decision, err := s.policy.ScreenEdit(content, contents(corpus))
		if err != nil {
			return nil, s.screeningError(err)
		}
		s.observe(ctx, audit.KindEdit, owner, id, decision, corpus)
		if err := decision.Err(); err != nil {
			return nil, err
		}
	}
	rev, err := s.ledger.AppendEdit(ctx, id, content, description)
	if err != nil {
		return nil, err
	}
	s.appended(ctx, "edit", rev)
	return rev, nil
}

func (s *documentService) Restore(ctx context.Context, owner string, id, revisionID int64) (*RestoreResult, error) {
	if _, err := s.owned(ctx, owner, id); err != nil {
		return nil, err
	}
	rev, err := s.ledger.Restore(ctx, id, revisionID)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	s.appended(ctx, "restore", rev)
	return &RestoreResult{Revision: rev, RestoredVersion: target.Version}, nil
}

// Delete removes the document and, through the repository, all its revisions.
func (s *documentService) Delete(ctx context.Context, owner string, id int64) error {
	if _, err := s.owned(ctx, owner, id); err != nil {
		return err
	}
	return s.repo.DeleteDocument(ctx, id)
}

func (s *documentService) Revisions(ctx context.Context, id int64) ([]*document.Revision, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.ledger.ListRevisions(ctx, id)
}

func (s *documentService) ArchiveURL(ctx context.Context, id int64, version int) (string, error) {
	if s.archiver == nil {
		return "", ErrArchiveDisabled
	}
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}
	return s.archiver.PresignedURL(ctx, id, version, 15*time.Minute)
}

func (s *documentService) Reports(ctx context.Context, limit int) ([]*audit.Report, error) {
	return s.recorder.Recent(ctx, limit)
}

func (s *documentService) owned(ctx context.Context, owner string, id int64) (*document.Document, error) {
	if id <= 0 {
		return nil, fmt.Errorf("id %d: %w", id, document.ErrInvalidInput)
	}
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner == "" || doc.OwnerID != owner {
		return nil, document.ErrForbidden
	}
	return doc, nil
}

// observe records a screening decision in metrics and the audit log. Audit
// failures are logged, they do not change the decision.
func (s *documentService) observe(ctx context.Context, kind audit.Kind, owner string, docID int64, d ingestion.Decision, corpus []document.CorpusEntry) {
	metrics.Screenings.WithLabelValues(string(kind), string(d.Outcome)).Inc()
	metrics.SimilarityScore.Observe(d.Similarity)
	if d.Outcome == ingestion.OutcomeAccepted {
		metrics.MachineLikelihood.Observe(float64(d.MachineLikelihood))
	}
	rep := &audit.Report{
		Kind:              kind,
		Outcome:           string(d.Outcome),
		DocumentID:        docID,
		OwnerID:           owner,
		Similarity:        d.Similarity,
		MachineLikelihood: d.MachineLikelihood,
	}
	if d.NearestIndex >= 0 && d.NearestIndex < len(corpus) {
		rep.NearestDocumentID = corpus[d.NearestIndex].DocumentID
	}
	if err := s.recorder.Record(ctx, rep); err != nil {
		logger.Warnf("record screening report: %v", err)
	}
}

func (s *documentService) appended(ctx context.Context, kind string, rev *document.Revision) {
	metrics.Revisions.WithLabelValues(kind).Inc()
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Archive(ctx, rev); err != nil {
		metrics.ArchiveFailures.Inc()
		logger.Warn("revision archive failed", "document_id", rev.DocumentID, "version", rev.Version, "err", err)
	}
}

func (s *documentService) screeningError(err error) error {
	if errors.Is(err, ingestion.ErrInvalidInput) {
		return fmt.Errorf("%v: %w", err, document.ErrInvalidInput)
	}
	return fmt.Errorf("screening: %w", err)
}

func contents(corpus []document.CorpusEntry) []string {
	out := make([]string, len(corpus))
	for i, c := range corpus {
		out[i] = c.Content
	}
	return out
}
