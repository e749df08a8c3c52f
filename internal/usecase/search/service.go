package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/coloradocollege/digitalcc/internal/domain"
	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/domain/search/facet"
	"github.com/coloradocollege/digitalcc/internal/domain/search/mode"
	"github.com/coloradocollege/digitalcc/internal/domain/search/query"
	"github.com/coloradocollege/digitalcc/internal/domain/search/result"
	"github.com/coloradocollege/digitalcc/internal/logger"
	"github.com/coloradocollege/digitalcc/internal/repository/respcache"
)

// HomeTitle is returned by Title when no document matches.
const HomeTitle = "Home"

// Config holds paging and facet defaults.
type Config struct {
	RootPID        string
	BrowsePageSize int
	SearchPageSize int
	MaxPageSize    int
	FacetSize      int
}

func (c *Config) applyDefaults() {
	if c.BrowsePageSize <= 0 {
		c.BrowsePageSize = 50
	}
	if c.SearchPageSize <= 0 {
		c.SearchPageSize = 25
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 500
	}
	if c.FacetSize <= 0 {
		c.FacetSize = 25
	}
}

// Service is the query engine: browse, search, facet filtering and lookups.
// It holds no mutable state besides the optional response cache.
type Service struct {
	repo  Repository
	docs  DocumentReader
	cache *respcache.Cache
	cfg   Config
}

// New creates a search service. cache may be nil.
func New(repo Repository, docs DocumentReader, cache *respcache.Cache, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{repo: repo, docs: docs, cache: cache, cfg: cfg}
}

// Browse lists the direct children of pid by title, with aggregations over pid's whole subtree.
func (s *Service) Browse(ctx context.Context, pid string, offset, size int) (result.Page, error) {
	if pid == "" {
		pid = s.cfg.RootPID
	}
	offset, size = s.page(offset, size, s.cfg.BrowsePageSize)

	key := []string{pid, strconv.Itoa(offset), strconv.Itoa(size)}
	return respcache.Get(ctx, s.cache, "browse", key, func(ctx context.Context) (result.Page, error) {
		parent, err := query.NewTerm(domdoc.FieldParent, pid)
		if err != nil {
			return result.Page{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
		}
		where, err := query.NewExpression(parent)
		if err != nil {
			return result.Page{}, err
		}
		hits, err := s.repo.Search(ctx, where, domdoc.FieldTitleSort, offset, size)
		if err != nil {
			return result.Page{}, fmt.Errorf("browse %s: %w", pid, err)
		}
		aggs, err := s.aggregate(ctx, s.scope(pid))
		if err != nil {
			return result.Page{}, err
		}
		return result.Page{Hits: hits, Aggregations: aggs, Offset: offset, Size: size}, nil
	})
}

// SpecificSearch runs a mode-specific query. Aggregations cover the same match set.
func (s *Service) SpecificSearch(ctx context.Context, p SearchParams) (result.Page, error) {
	m := mode.Parse(p.Mode)
	if !m.IsValid() {
		return result.Page{}, fmt.Errorf("%w: %q", domain.ErrInvalidSearchMode, p.Mode)
	}

	var clauses []query.Clause
	sortBy := ""
	c, err := modeClause(m, p.Query)
	switch {
	case errors.Is(err, errEmptyQuery) && m == mode.Keyword:
		sortBy = domdoc.FieldTitleSort
	case err != nil:
		return result.Page{}, err
	default:
		clauses = append(clauses, c)
	}

	return s.run(ctx, clauses, p.Collection, sortBy, p.Offset, p.Size)
}

// FilterQuery restricts to one facet value, optionally ANDed with a keyword query.
func (s *Service) FilterQuery(ctx context.Context, p FilterParams) (result.Page, error) {
	f, err := facet.Lookup(p.Facet)
	if err != nil {
		return result.Page{}, err
	}
	filter, err := facetClause(f, p.Value)
	if err != nil {
		return result.Page{}, err
	}

	clauses := []query.Clause{filter}
	sortBy := domdoc.FieldTitleSort
	if p.Query != "" {
		text, err := modeClause(mode.Keyword, p.Query)
		switch {
		case errors.Is(err, errEmptyQuery):
		case err != nil:
			return result.Page{}, err
		default:
			clauses = append(clauses, text)
			sortBy = ""
		}
	}

	return s.run(ctx, clauses, p.Collection, sortBy, p.Offset, p.Size)
}

// Detail returns the single document with pid, or domain.ErrDocumentNotFound.
func (s *Service) Detail(ctx context.Context, pid string) (result.Hit, error) {
	if pid == "" {
		return result.Hit{}, fmt.Errorf("%w: pid is required", domain.ErrInvalidQuery)
	}
	doc, id, err := s.docs.GetByPID(ctx, pid)
	if err != nil {
		return result.Hit{}, err
	}
	src, err := doc.Source()
	if err != nil {
		return result.Hit{}, err
	}
	return result.Hit{ID: id, PID: doc.PID, Source: src}, nil
}

// Aggregations computes the facet set, scoped to pid's subtree when pid is set.
// Facets without buckets are omitted.
func (s *Service) Aggregations(ctx context.Context, pid string) (result.Aggregations, error) {
	return respcache.Get(ctx, s.cache, "aggregations", []string{pid}, func(ctx context.Context) (result.Aggregations, error) {
		return s.aggregate(ctx, s.scope(pid))
	})
}

// PID resolves an engine-internal id to the document pid.
func (s *Service) PID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", domain.ErrDocumentNotFound
	}
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.PID, nil
}

// Title returns the principal title of pid, or HomeTitle when there is none.
func (s *Service) Title(ctx context.Context, pid string) string {
	if pid == "" {
		return HomeTitle
	}
	title, err := respcache.Get(ctx, s.cache, "title", []string{pid}, func(ctx context.Context) (string, error) {
		doc, _, err := s.docs.GetByPID(ctx, pid)
		if err != nil {
			return "", err
		}
		return doc.TitlePrincipal, nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			logger.FromContext(ctx).Warn("title lookup failed", zap.String("pid", pid), zap.Error(err))
		}
		return HomeTitle
	}
	if title == "" {
		return HomeTitle
	}
	return title
}

func (s *Service) run(
	ctx context.Context, clauses []query.Clause, collection, sortBy string, offset, size int,
) (result.Page, error) {
	if collection != "" {
		scope, err := query.NewTerm(domdoc.FieldInCollections, collection)
		if err != nil {
			return result.Page{}, err
		}
		clauses = append(clauses, scope)
	}
	where, err := query.NewExpression(clauses...)
	if err != nil {
		return result.Page{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	offset, size = s.page(offset, size, s.cfg.SearchPageSize)
	hits, err := s.repo.Search(ctx, where, sortBy, offset, size)
	if err != nil {
		return result.Page{}, fmt.Errorf("search: %w", err)
	}
	aggs, err := s.aggregate(ctx, where)
	if err != nil {
		return result.Page{}, err
	}
	return result.Page{Hits: hits, Aggregations: aggs, Offset: offset, Size: size}, nil
}

func (s *Service) aggregate(ctx context.Context, where query.Expression) (result.Aggregations, error) {
	aggs, err := s.repo.Aggregate(ctx, where, facet.All(), s.cfg.FacetSize)
	if err != nil {
		return nil, fmt.Errorf("aggregations: %w", err)
	}
	return aggs.Prune(), nil
}

// scope restricts to documents under pid via inCollections; empty pid matches everything.
func (s *Service) scope(pid string) query.Expression {
	if pid == "" {
		return query.MatchAll()
	}
	term, err := query.NewTerm(domdoc.FieldInCollections, pid)
	if err != nil {
		return query.MatchAll()
	}
	where, _ := query.NewExpression(term)
	return where
}

func (s *Service) page(offset, size, def int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if size <= 0 {
		size = def
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return offset, size
}
