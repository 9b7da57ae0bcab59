// Package audit keeps a log of screening decisions so that every rejection
// can be explained after the fact.
package audit

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

type Kind string

const (
	KindCreate Kind = "create"
	KindEdit   Kind = "edit"
)

// Report is one screening decision.
type Report struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	Kind              Kind      `bson:"kind" json:"kind"`
	Outcome           string    `bson:"outcome" json:"outcome"`
	DocumentID        int64     `bson:"documentId,omitempty" json:"documentId,omitempty"`
	OwnerID           string    `bson:"ownerId" json:"ownerId"`
	Similarity        float64   `bson:"similarity" json:"similarity"`
	MachineLikelihood int       `bson:"machineLikelihood" json:"machineLikelihood"`
	NearestDocumentID int64     `bson:"nearestDocumentId,omitempty" json:"nearestDocumentId,omitempty"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
}

// Recorder persists reports and lists the most recent ones.
type Recorder interface {
	Record(ctx context.Context, r *Report) error
	Recent(ctx context.Context, limit int) ([]*Report, error)
}

// MemoryRecorder is a bounded in-process Recorder.
type MemoryRecorder struct {
	mu      sync.RWMutex
	reports []*Report
	limit   int
	seq     int
}

// NewMemoryRecorder keeps at most limit reports (0 means 1000).
func NewMemoryRecorder(limit int) *MemoryRecorder {
	if limit <= 0 {
		limit = 1000
	}
	return &MemoryRecorder{limit: limit}
}

func (m *MemoryRecorder) Record(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if r.ID == "" {
		r.ID = "rpt_" + time.Now().UTC().Format("20060102T150405") + "_" + strconv.Itoa(m.seq)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cp := *r
	m.reports = append(m.reports, &cp)
	if len(m.reports) > m.limit {
		m.reports = m.reports[len(m.reports)-m.limit:]
	}
	return nil
}

// Recent returns up to limit reports, newest first.
func (m *MemoryRecorder) Recent(_ context.Context, limit int) ([]*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Report, 0, len(m.reports))
	for i := len(m.reports) - 1; i >= 0; i-- {
		cp := *m.reports[i]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
