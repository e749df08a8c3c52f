package harvest

import (
	"context"

	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/transport/fedora"
)

// Source is the object store the harvester walks.
type Source interface {
	Children(ctx context.Context, pid string) ([]string, error)
	Constituents(ctx context.Context, pid string) ([]string, error)
	NewestObjects(ctx context.Context, limit int) ([]string, error)
	RelsExt(ctx context.Context, pid string) (fedora.RelsExt, error)
	Metadata(ctx context.Context, pid string) ([]byte, error)
	Datastreams(ctx context.Context, pid string) ([]domdoc.Datastream, error)
}

// DocumentStore is the index adapter the harvester writes to.
type DocumentStore interface {
	Upsert(ctx context.Context, doc *domdoc.Document) (string, bool, error)
	GetByPID(ctx context.Context, pid string) (domdoc.Document, string, error)
	Exists(ctx context.Context, pid string) (bool, error)
	Delete(ctx context.Context, pid string) error
}

// Invalidator drops cached query responses after the index changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}
