package domain

import (
	"context"
	"time"
)

// BlobWriter uploads a serialized object to cold storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

// BlobInfo describes one stored archive object.
type BlobInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// BlobLister enumerates stored archive objects under a key prefix.
type BlobLister interface {
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// ArchiveResult summarizes one archival run.
type ArchiveResult struct {
	Cutoff               time.Time `json:"cutoff"`
	OpportunitiesWritten int       `json:"opportunities_written"`
	PricePointsWritten   int       `json:"price_points_written"`
	RowsDeleted          int64     `json:"rows_deleted"`
	Keys                 []string  `json:"keys"`
}

// Archiver moves rows older than the cutoff out of the primary store and into
// blob storage as JSONL objects.
type Archiver interface {
	Archive(ctx context.Context, before time.Time) (ArchiveResult, error)
}
