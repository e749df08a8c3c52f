package bleve

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/coloradocollege/digitalcc/internal/db"
)

type bleveMapping = mapping.IndexMapping

// CreateIndex creates the index, or opens an existing on-disk one and reports ErrIndexExists.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if def.Name == kvIndexName {
		return fmt.Errorf("index name %q is reserved", def.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	if s.path != "" && dirExists(s.indexPath(def.Name)) {
		idx, err := bleve.Open(s.indexPath(def.Name))
		if err != nil {
			return &db.Error{Op: db.OpCreateIndex, Err: err}
		}
		s.indexes[def.Name] = idx
		return db.ErrIndexExists
	}

	idx, err := s.openOrCreate(def.Name, buildMapping(def))
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	s.indexes[def.Name] = idx
	return nil
}

// DropIndex closes the index and removes its files.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	idx, open := s.indexes[name]
	onDisk := s.path != "" && dirExists(s.indexPath(name))
	if !open && !onDisk {
		return db.ErrIndexNotFound
	}
	if open {
		if err := idx.Close(); err != nil {
			return &db.Error{Op: db.OpDropIndex, Err: err}
		}
		delete(s.indexes, name)
	}
	if onDisk {
		if err := os.RemoveAll(s.indexPath(name)); err != nil {
			return &db.Error{Op: db.OpDropIndex, Err: err}
		}
	}
	return nil
}

// IndexExists reports whether the index is open or present on disk.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	if _, ok := s.indexes[name]; ok {
		return true, nil
	}
	return s.path != "" && dirExists(s.indexPath(name)), nil
}

// buildMapping translates an index definition into a bleve mapping.
// TEXT fields use the English analyzer and feed _all; TAG fields keep exact values.
func buildMapping(def *db.IndexDefinition) mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = en.AnalyzerName

	dm := bleve.NewDocumentMapping()
	dm.Dynamic = false

	for i := range def.Fields {
		f := &def.Fields[i]
		fm := bleve.NewTextFieldMapping()
		switch f.Type {
		case db.IndexFieldText:
			fm.Analyzer = en.AnalyzerName
			fm.IncludeTermVectors = true
			fm.IncludeInAll = true
			fm.Store = false
		case db.IndexFieldTag:
			fm.Analyzer = keyword.Name
			fm.IncludeInAll = false
			fm.Store = false
		case db.IndexFieldStored:
			fm.Index = false
			fm.Store = true
			fm.IncludeInAll = false
			fm.DocValues = false
		}
		dm.AddFieldMappingsAt(f.Key(), fm)
	}

	im.DefaultMapping = dm
	return im
}
