package document

import "time"

// Document is a published piece of content. Content is a denormalised copy of
// the newest revision; the scores are computed once, at creation.
type Document struct {
	ID                int64     `json:"id" bson:"_id"`
	Title             string    `json:"title" bson:"title"`
	Content           string    `json:"content" bson:"content"`
	OwnerID           string    `json:"ownerId" bson:"ownerId"`
	SimilarityScore   float64   `json:"similarityScore" bson:"similarityScore"`
	MachineLikelihood int       `json:"machineLikelihood" bson:"machineLikelihood"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Revision is an immutable full-text snapshot of a document. Versions start at
// 1 and are contiguous per document.
type Revision struct {
	ID                int64     `json:"id" bson:"_id"`
	DocumentID        int64     `json:"documentId" bson:"documentId"`
	Content           string    `json:"content" bson:"content"`
	ChangeDescription string    `json:"changeDescription" bson:"changeDescription"`
	Version           int       `json:"version" bson:"version"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
}

// CorpusEntry is one accepted document's text, as compared against new submissions.
type CorpusEntry struct {
	DocumentID int64
	Content    string
}
