package chi

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/domain/search/mode"
	"github.com/coloradocollege/digitalcc/internal/domain/search/result"
	"github.com/coloradocollege/digitalcc/internal/repository/respcache"
	"github.com/coloradocollege/digitalcc/internal/transport/fedora"
	"github.com/coloradocollege/digitalcc/internal/transport/sitechrome"
	harvestuc "github.com/coloradocollege/digitalcc/internal/usecase/harvest"
	healthuc "github.com/coloradocollege/digitalcc/internal/usecase/health"
	searchuc "github.com/coloradocollege/digitalcc/internal/usecase/search"
	"github.com/coloradocollege/digitalcc/internal/version"
)

// QueryEngine answers every read-only listing and lookup.
type QueryEngine interface {
	Browse(ctx context.Context, pid string, offset, size int) (result.Page, error)
	SpecificSearch(ctx context.Context, p searchuc.SearchParams) (result.Page, error)
	FilterQuery(ctx context.Context, p searchuc.FilterParams) (result.Page, error)
	Detail(ctx context.Context, pid string) (result.Hit, error)
	Aggregations(ctx context.Context, pid string) (result.Aggregations, error)
	PID(ctx context.Context, id string) (string, error)
	Title(ctx context.Context, pid string) string
}

// Harvester reindexes objects on demand.
type Harvester interface {
	IndexCollection(ctx context.Context, root string) (harvestuc.Report, error)
	IndexObject(ctx context.Context, pid string) (harvestuc.Outcome, error)
}

// MediaSource streams datastream content.
type MediaSource interface {
	OpenDatastream(ctx context.Context, pid, dsid string) (*fedora.Content, error)
}

// ChromeSource fetches the library website chrome.
type ChromeSource interface {
	Fetch(ctx context.Context) (sitechrome.Chrome, error)
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Deps are the collaborators of the HTTP server. Chrome and ChromeCache may be nil.
type Deps struct {
	Engine      QueryEngine
	Harvester   Harvester
	Media       MediaSource
	Chrome      ChromeSource
	ChromeCache *respcache.Cache
	Health      HealthChecker
}

// Server holds the HTTP handlers.
type Server struct {
	deps   Deps
	logger *zap.Logger

	// harvestMu allows one background collection run at a time.
	harvestMu sync.Mutex
	// detach is the base context of background runs; replaced in tests.
	detach func(context.Context) context.Context
	wg     sync.WaitGroup
}

// NewServer creates the HTTP server handlers.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, logger: logger, detach: context.WithoutCancel}
}

// Wait blocks until background harvest runs finish.
func (s *Server) Wait() { s.wg.Wait() }

// Browse handles GET|POST /browse.
func (s *Server) Browse(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	p, err := bindPage(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	page, err := s.deps.Engine.Browse(r.Context(), p.PID, p.From, p.Size)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Search handles GET|POST /search. A mode starting with "facet" filters on facet=val.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	p, err := bindPage(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	var rawMode, q, facetName, facetValue string
	for name, dest := range map[string]*string{"mode": &rawMode, "q": &q, "facet": &facetName, "val": &facetValue} {
		if err := bindOptional(values, name, dest); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
	}

	var page result.Page
	if mode.IsFacet(rawMode) {
		page, err = s.deps.Engine.FilterQuery(r.Context(), searchuc.FilterParams{
			Facet: facetName, Value: facetValue, Query: q,
			Size: p.Size, Offset: p.From, Collection: p.PID,
		})
	} else {
		page, err = s.deps.Engine.SpecificSearch(r.Context(), searchuc.SearchParams{
			Query: q, Mode: rawMode,
			Size: p.Size, Offset: p.From, Collection: p.PID,
		})
	}
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Detail handles GET|POST /detail.
func (s *Server) Detail(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	var pid string
	if err := bindRequired(values, "pid", &pid); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	hit, err := s.deps.Engine.Detail(r.Context(), pid)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hit)
}

// Aggregations handles GET /aggregations.
func (s *Server) Aggregations(w http.ResponseWriter, r *http.Request) {
	var pid string
	if err := bindOptional(r.URL.Query(), "pid", &pid); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	aggs, err := s.deps.Engine.Aggregations(r.Context(), pid)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aggs)
}

// TitleResponse is the body of GET /title.
type TitleResponse struct {
	PID   string `json:"pid,omitempty"`
	Title string `json:"title"`
}

// Title handles GET /title.
func (s *Server) Title(w http.ResponseWriter, r *http.Request) {
	var pid string
	if err := bindOptional(r.URL.Query(), "pid", &pid); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TitleResponse{PID: pid, Title: s.deps.Engine.Title(r.Context(), pid)})
}

// ObjectView is the body of GET /pid/{pid}.
type ObjectView struct {
	Title string     `json:"title"`
	Info  result.Hit `json:"info"`
	// Browse lists the children of collections; nil for leaf objects.
	Browse *result.Page `json:"browse,omitempty"`
}

// Object handles GET /pid/{pid}.
func (s *Server) Object(w http.ResponseWriter, r *http.Request) {
	var pid string
	if err := bindPath(r, "pid", &pid); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	p, err := bindPage(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	hit, err := s.deps.Engine.Detail(r.Context(), pid)
	if err != nil {
		handleError(w, r, err)
		return
	}
	view := ObjectView{Info: hit, Title: s.deps.Engine.Title(r.Context(), pid)}

	doc, err := domdoc.FromSource(hit.Source)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if doc.IsCollection() {
		page, err := s.deps.Engine.Browse(r.Context(), pid, p.From, p.Size)
		if err != nil {
			handleError(w, r, err)
			return
		}
		view.Browse = &page
	}
	writeJSON(w, http.StatusOK, view)
}

// ChromePart handles GET /chrome/{part}.
func (s *Server) ChromePart(w http.ResponseWriter, r *http.Request) {
	var part string
	if err := bindPath(r, "part", &part); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if s.deps.Chrome == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "site chrome is not configured")
		return
	}

	chrome, err := respcache.Get(r.Context(), s.deps.ChromeCache, "chrome", nil, s.deps.Chrome.Fetch)
	if err != nil {
		handleError(w, r, err)
		return
	}
	html, ok := chrome.Part(part)
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "unknown chrome part")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// AboutResponse is the body of GET /about.
type AboutResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// About handles GET /about.
func (s *Server) About(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, AboutResponse{
		Name:    "digitalcc",
		Version: version.Version,
		Commit:  version.Commit,
		Date:    version.Date,
	})
}

// IndexResponse is the body of POST /admin/index.
type IndexResponse struct {
	PID     string            `json:"pid"`
	Status  string            `json:"status"`
	Outcome harvestuc.Outcome `json:"outcome,omitempty"`
}

// Index handles POST /admin/index. Objects are indexed inline; collections run
// in the background and answer 202.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	var pid string
	var collection bool
	if err := bindRequired(values, "pid", &pid); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if err := bindOptional(values, "collection", &collection); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	if !collection {
		outcome, err := s.deps.Harvester.IndexObject(r.Context(), pid)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, IndexResponse{PID: pid, Status: "done", Outcome: outcome})
		return
	}

	if !s.harvestMu.TryLock() {
		writeError(w, http.StatusConflict, CodeConflict, "a collection harvest is already running")
		return
	}
	ctx := s.detach(r.Context())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.harvestMu.Unlock()
		if _, err := s.deps.Harvester.IndexCollection(ctx, pid); err != nil {
			s.logger.Error("background harvest failed", zap.String("pid", pid), zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, IndexResponse{PID: pid, Status: "started"})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Check(r.Context())
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
