package harvest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/coloradocollege/digitalcc/internal/domain"
	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/domain/mods"
	"github.com/coloradocollege/digitalcc/internal/logger"
	"github.com/coloradocollege/digitalcc/internal/metrics"
)

// Config holds harvest settings.
type Config struct {
	RootPID   string
	Roles     mods.RoleMapping
	PollLimit int
}

// Service walks the repository containment graph and indexes every object it finds.
// A Service is not safe for concurrent runs.
type Service struct {
	src   Source
	docs  DocumentStore
	cache Invalidator
	cfg   Config
	now   func() time.Time
}

// New creates a harvest service. cache may be nil.
func New(src Source, docs DocumentStore, cache Invalidator, cfg Config) *Service {
	if cfg.Roles == nil {
		cfg.Roles = mods.DefaultRoles()
	}
	if cfg.PollLimit <= 0 {
		cfg.PollLimit = 100
	}
	return &Service{src: src, docs: docs, cache: cache, cfg: cfg, now: time.Now}
}

// IndexCollection indexes every object below root, depth first.
// Relationship or object-store failures abort the run; per-object metadata
// problems are logged and counted.
func (s *Service) IndexCollection(ctx context.Context, root string) (Report, error) {
	if root == "" {
		root = s.cfg.RootPID
	}
	log := logger.FromContext(ctx).With(zap.String("root", root))
	start := s.now()
	rep := Report{Root: root}

	err := s.walk(ctx, root, &rep)
	s.finish(ctx, "collection", start, &rep, err)
	if err != nil {
		log.Error("collection harvest failed", zap.Error(err), zap.Any("report", rep))
		return rep, err
	}
	log.Info("collection harvest finished",
		zap.Int("collections", rep.Collections),
		zap.Int("indexed", rep.Indexed),
		zap.Int("updated", rep.Updated),
		zap.Int("unchanged", rep.Unchanged),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}

func (s *Service) walk(ctx context.Context, root string, rep *Report) error {
	st := newWalkState(root)
	for {
		f, ok := st.pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		children, err := s.src.Children(ctx, f.pid)
		if err != nil {
			return fmt.Errorf("children of %s: %w", f.pid, err)
		}
		rep.Collections++

		path := f.childPath()
		var collections []string
		for _, child := range children {
			if !st.visit(child) {
				continue
			}
			outcome, isCollection, err := s.indexPID(ctx, child, path, st)
			if err != nil {
				return err
			}
			rep.add(outcome)
			// collections are walked even when their own record could not be indexed
			if isCollection {
				collections = append(collections, child)
			}
		}
		st.push(path, collections...)
	}
}

// IndexObject indexes one object. Without collection context its path is kept
// from the existing record or derived from its first parent collection.
func (s *Service) IndexObject(ctx context.Context, pid string) (Outcome, error) {
	start := s.now()
	var rep Report
	outcome, _, err := s.indexPID(ctx, pid, nil, nil)
	if err == nil {
		rep.add(outcome)
	}
	s.finish(ctx, "object", start, &rep, err)
	return outcome, err
}

// Remove deletes the record for pid, e.g. after the object was purged from the
// repository. Cached responses are dropped so the record stops appearing.
func (s *Service) Remove(ctx context.Context, pid string) error {
	if err := s.docs.Delete(ctx, pid); err != nil {
		return fmt.Errorf("remove %s: %w", pid, err)
	}
	logger.FromContext(ctx).Info("document removed", zap.String("pid", pid))
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.FromContext(ctx).Warn("cache invalidation failed", zap.Error(err))
	}
	return nil
}

// Poll indexes the newest objects of the repository that are not yet in the index.
func (s *Service) Poll(ctx context.Context, limit int) (Report, error) {
	if limit <= 0 {
		limit = s.cfg.PollLimit
	}
	start := s.now()
	var rep Report

	err := func() error {
		pids, err := s.src.NewestObjects(ctx, limit)
		if err != nil {
			return fmt.Errorf("newest objects: %w", err)
		}
		for _, pid := range pids {
			exists, err := s.docs.Exists(ctx, pid)
			if err != nil {
				return fmt.Errorf("lookup %s: %w", pid, err)
			}
			if exists {
				rep.add(OutcomeSkipped)
				continue
			}
			outcome, _, err := s.indexPID(ctx, pid, nil, nil)
			if err != nil {
				return err
			}
			rep.add(outcome)
		}
		return nil
	}()

	s.finish(ctx, "poll", start, &rep, err)
	if err == nil {
		logger.FromContext(ctx).Info("poll finished",
			zap.Int("indexed", rep.Indexed), zap.Int("skipped", rep.Skipped))
	}
	return rep, err
}

// indexPID runs the per-object pipeline. path nil means no collection context.
// The returned flag comes from RELS-EXT and reports whether pid is a collection.
func (s *Service) indexPID(ctx context.Context, pid string, path []string, st *walkState) (Outcome, bool, error) {
	log := logger.FromContext(ctx).With(zap.String("pid", pid))

	rels, err := s.src.RelsExt(ctx, pid)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.Warn("object has no RELS-EXT, skipping")
		return s.count(OutcomeUnindexable), false, nil
	case errors.Is(err, domain.ErrMalformedMetadata):
		log.Warn("unreadable RELS-EXT, skipping", zap.Error(err))
		return s.count(OutcomeMalformed), false, nil
	case err != nil:
		return "", false, fmt.Errorf("index %s: %w", pid, err)
	}
	isCollection := rels.IsCollection()
	if rels.IsConstituent() {
		log.Debug("constituent folded into compound parent", zap.String("parent", rels.ConstituentOf))
		return s.count(OutcomeConstituent), isCollection, nil
	}

	raw, err := s.src.Metadata(ctx, pid)
	switch {
	case errors.Is(err, domain.ErrMetadataNotFound):
		log.Warn("object has no MODS, skipping")
		return s.count(OutcomeUnindexable), isCollection, nil
	case err != nil:
		return "", false, fmt.Errorf("index %s: %w", pid, err)
	}
	rec, err := mods.Parse(raw)
	if err != nil {
		log.Error("could not parse MODS", zap.Error(err))
		return s.count(OutcomeMalformed), isCollection, nil
	}

	doc := mods.Map(rec, s.cfg.Roles)
	doc.PID = pid
	doc.ContentModels = rels.Models

	existing, _, err := s.docs.GetByPID(ctx, pid)
	found := err == nil
	if err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return "", false, fmt.Errorf("lookup %s: %w", pid, err)
	}

	if path == nil {
		path, err = s.resolvePath(ctx, rels.Collections, existing, found)
		if err != nil {
			return "", false, err
		}
	}
	doc.SetPath(path)

	if doc.IsCompound() {
		doc.Datastreams, err = s.foldConstituents(ctx, pid, st)
	} else {
		var all []domdoc.Datastream
		all, err = s.src.Datastreams(ctx, pid)
		doc.Datastreams = selectMedia(all)
	}
	if err != nil {
		return "", false, fmt.Errorf("datastreams of %s: %w", pid, err)
	}

	if found && domdoc.SameContent(&doc, &existing) {
		log.Debug("unchanged")
		return s.count(OutcomeUnchanged), isCollection, nil
	}
	id, created, err := s.docs.Upsert(ctx, &doc)
	if err != nil {
		return "", false, fmt.Errorf("upsert %s: %w", pid, err)
	}
	if created {
		log.Info("indexed", zap.String("id", id))
		return s.count(OutcomeIndexed), isCollection, nil
	}
	log.Info("re-indexed", zap.String("id", id))
	return s.count(OutcomeUpdated), isCollection, nil
}

// resolvePath finds a containment path for an object indexed outside a walk.
// The first parent collection wins.
func (s *Service) resolvePath(
	ctx context.Context, parents []string, existing domdoc.Document, found bool,
) ([]string, error) {
	if found && existing.Parent != "" {
		return existing.InCollections, nil
	}
	if len(parents) == 0 {
		return nil, nil
	}
	parent := parents[0]
	if parent == s.cfg.RootPID {
		return []string{parent}, nil
	}
	pdoc, _, err := s.docs.GetByPID(ctx, parent)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return []string{parent}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup parent %s: %w", parent, err)
	}
	return append(slices.Clone(pdoc.InCollections), parent), nil
}

// foldConstituents gathers the media of every constituent of a compound
// object, ordered by sequence number.
func (s *Service) foldConstituents(ctx context.Context, pid string, st *walkState) ([]domdoc.Datastream, error) {
	constituents, err := s.src.Constituents(ctx, pid)
	if err != nil {
		return nil, err
	}
	var out []domdoc.Datastream
	for _, c := range constituents {
		if st != nil {
			st.visit(c)
		}
		rels, err := s.src.RelsExt(ctx, c)
		if errors.Is(err, domain.ErrNotFound) {
			logger.FromContext(ctx).Warn("constituent has no RELS-EXT",
				zap.String("pid", pid), zap.String("constituent", c))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("constituent %s: %w", c, err)
		}
		all, err := s.src.Datastreams(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("constituent %s: %w", c, err)
		}
		for _, ds := range selectMedia(all) {
			ds.PID = c
			ds.Order = rels.Sequence
			out = append(out, ds)
		}
	}
	slices.SortStableFunc(out, func(a, b domdoc.Datastream) int { return a.Order - b.Order })
	return out, nil
}

func (s *Service) count(o Outcome) Outcome {
	metrics.HarvestObjectsTotal.WithLabelValues(string(o)).Inc()
	return o
}

func (s *Service) finish(ctx context.Context, kind string, start time.Time, rep *Report, err error) {
	rep.Duration = s.now().Sub(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.HarvestRunDuration.WithLabelValues(kind, status).Observe(rep.Duration.Seconds())

	if !rep.Changed() || s.cache == nil {
		return
	}
	if ierr := s.cache.Invalidate(ctx); ierr != nil {
		logger.FromContext(ctx).Warn("cache invalidation failed", zap.Error(ierr))
	}
}
