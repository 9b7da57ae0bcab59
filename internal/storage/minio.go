package storage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/secureblog/secureblog/backend/go-services/internal/document"
)

// Options configures the MinIO connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// RevisionArchive copies every revision to object storage as plain text,
// keyed by document and version.
type RevisionArchive struct {
	client *minio.Client
	bucket string
}

// NewRevisionArchive connects to MinIO and ensures the bucket exists.
func NewRevisionArchive(ctx context.Context, opts Options) (*RevisionArchive, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint missing")
	}
	if opts.Bucket == "" {
		opts.Bucket = "revisions"
	}
	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, opts.Bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return &RevisionArchive{client: mc, bucket: opts.Bucket}, nil
}

// ObjectKey is the object name a revision is archived under.
func ObjectKey(docID int64, version int) string {
	return "documents/" + strconv.FormatInt(docID, 10) + "/revisions/" + strconv.Itoa(version) + ".txt"
}

// Archive uploads the revision content with its metadata as object user metadata.
func (a *RevisionArchive) Archive(ctx context.Context, rev *document.Revision) error {
	meta := map[string]string{
		"revision-id": strconv.FormatInt(rev.ID, 10),
		"description": rev.ChangeDescription,
		"created-at":  rev.CreatedAt.UTC().Format(time.RFC3339),
	}
	_, err := a.client.PutObject(ctx, a.bucket, ObjectKey(rev.DocumentID, rev.Version),
		strings.NewReader(rev.Content), int64(len(rev.Content)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8", UserMetadata: meta})
	if err != nil {
		return fmt.Errorf("archive revision %d/%d: %w", rev.DocumentID, rev.Version, err)
	}
	return nil
}

// PresignedURL returns a time-limited download link for an archived revision.
func (a *RevisionArchive) PresignedURL(ctx context.Context, docID int64, version int, expires time.Duration) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, ObjectKey(docID, version), expires, make(url.Values))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
