// Package store persists resolved document metadata.
//
// Two backends are provided:
//   - memory: in-process storage for tests and standalone servers
//   - mongo: MongoDB-backed storage shared by several server instances
//
// Records are identified by a random UUID assigned on first save, so the same
// document submitted twice yields two records.
//
// # Usage
//
//	st, err := store.NewMongoStore(ctx, "mongodb://localhost:27017", "procmeta")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	rec := store.NewRecord(meta)
//	if err := st.Save(ctx, rec); err != nil {
//	    return err
//	}
//	rec, err = st.Get(ctx, rec.ID)
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	"github.com/matzehuels/procmeta/pkg/errors"
)

// Record is a stored metadata document.
type Record struct {
	ID        string                 `json:"id" bson:"_id"`
	Filename  string                 `json:"filename" bson:"filename"`
	Hash      string                 `json:"hash" bson:"hash"`
	NodeCount int                    `json:"node_count" bson:"node_count"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
	Metadata  *bpmn.DocumentMetadata `json:"metadata" bson:"metadata"`
}

// NewRecord wraps meta in a record with a fresh id.
func NewRecord(meta *bpmn.DocumentMetadata) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Filename:  meta.Filename,
		Hash:      meta.Hash,
		NodeCount: meta.NodeCount(),
		CreatedAt: time.Now().UTC(),
		Metadata:  meta,
	}
}

// Store is the interface for metadata storage backends.
type Store interface {
	// Save inserts or replaces rec. An empty ID is filled with a new UUID.
	Save(ctx context.Context, rec *Record) error

	// Get retrieves a record by ID.
	// Returns an error with code NOT_FOUND if the record doesn't exist.
	Get(ctx context.Context, id string) (*Record, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// prepare fills defaults before a save.
func prepare(rec *Record) error {
	if rec == nil || rec.Metadata == nil {
		return errors.New(errors.ErrCodeInvalidInput, "record has no metadata")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}

// ValidateID checks that id is a UUID as assigned by [NewRecord].
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "invalid record id: %q", id)
	}
	return nil
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "record %s not found", id)
}
