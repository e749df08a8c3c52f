package chi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/coloradocollege/digitalcc/internal/domain"
	"github.com/coloradocollege/digitalcc/internal/domain/search/result"
	"github.com/coloradocollege/digitalcc/internal/transport/fedora"
	"github.com/coloradocollege/digitalcc/internal/transport/sitechrome"
	harvestuc "github.com/coloradocollege/digitalcc/internal/usecase/harvest"
	healthuc "github.com/coloradocollege/digitalcc/internal/usecase/health"
	searchuc "github.com/coloradocollege/digitalcc/internal/usecase/search"
)

type mockEngine struct {
	browseFn       func(ctx context.Context, pid string, offset, size int) (result.Page, error)
	searchFn       func(ctx context.Context, p searchuc.SearchParams) (result.Page, error)
	filterFn       func(ctx context.Context, p searchuc.FilterParams) (result.Page, error)
	detailFn       func(ctx context.Context, pid string) (result.Hit, error)
	aggregationsFn func(ctx context.Context, pid string) (result.Aggregations, error)
	pidFn          func(ctx context.Context, id string) (string, error)
	titleFn        func(ctx context.Context, pid string) string
}

func (m *mockEngine) Browse(ctx context.Context, pid string, offset, size int) (result.Page, error) {
	if m.browseFn != nil {
		return m.browseFn(ctx, pid, offset, size)
	}
	return result.Page{}, nil
}

func (m *mockEngine) SpecificSearch(ctx context.Context, p searchuc.SearchParams) (result.Page, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, p)
	}
	return result.Page{}, nil
}

func (m *mockEngine) FilterQuery(ctx context.Context, p searchuc.FilterParams) (result.Page, error) {
	if m.filterFn != nil {
		return m.filterFn(ctx, p)
	}
	return result.Page{}, nil
}

func (m *mockEngine) Detail(ctx context.Context, pid string) (result.Hit, error) {
	if m.detailFn != nil {
		return m.detailFn(ctx, pid)
	}
	return result.Hit{}, domain.ErrDocumentNotFound
}

func (m *mockEngine) Aggregations(ctx context.Context, pid string) (result.Aggregations, error) {
	if m.aggregationsFn != nil {
		return m.aggregationsFn(ctx, pid)
	}
	return nil, nil
}

func (m *mockEngine) PID(ctx context.Context, id string) (string, error) {
	if m.pidFn != nil {
		return m.pidFn(ctx, id)
	}
	return "", domain.ErrDocumentNotFound
}

func (m *mockEngine) Title(ctx context.Context, pid string) string {
	if m.titleFn != nil {
		return m.titleFn(ctx, pid)
	}
	return searchuc.HomeTitle
}

type mockHarvester struct {
	collectionFn func(ctx context.Context, root string) (harvestuc.Report, error)
	objectFn     func(ctx context.Context, pid string) (harvestuc.Outcome, error)
}

func (m *mockHarvester) IndexCollection(ctx context.Context, root string) (harvestuc.Report, error) {
	if m.collectionFn != nil {
		return m.collectionFn(ctx, root)
	}
	return harvestuc.Report{Root: root}, nil
}

func (m *mockHarvester) IndexObject(ctx context.Context, pid string) (harvestuc.Outcome, error) {
	if m.objectFn != nil {
		return m.objectFn(ctx, pid)
	}
	return harvestuc.OutcomeIndexed, nil
}

// mockMedia serves datastreams from a map keyed "pid/dsid".
type mockMedia struct {
	files map[string]string
	err   error
}

func (m *mockMedia) OpenDatastream(_ context.Context, pid, dsid string) (*fedora.Content, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, ok := m.files[pid+"/"+dsid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &fedora.Content{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentType:   "image/jpeg",
		ContentLength: int64(len(body)),
		LastModified:  "Mon, 02 Jan 2006 15:04:05 GMT",
	}, nil
}

type mockChrome struct {
	calls int
	err   error
}

func (m *mockChrome) Fetch(context.Context) (sitechrome.Chrome, error) {
	m.calls++
	if m.err != nil {
		return sitechrome.Chrome{}, m.err
	}
	return sitechrome.Chrome{Header: "<header>CC</header>", Footer: "<footer/>"}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type testEnv struct {
	engine    *mockEngine
	harvester *mockHarvester
	media     *mockMedia
	chrome    *mockChrome
	health    *mockHealth
	server    *Server
	handler   http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		engine:    &mockEngine{},
		harvester: &mockHarvester{},
		media:     &mockMedia{files: map[string]string{}},
		chrome:    &mockChrome{},
		health:    &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
	env.server = NewServer(Deps{
		Engine:    env.engine,
		Harvester: env.harvester,
		Media:     env.media,
		Chrome:    env.chrome,
		Health:    env.health,
	}, zap.NewNop())
	env.handler = NewRouter(env.server, RouterConfig{AdminKeys: []string{"secret"}, Metrics: true})
	return env
}

func (e *testEnv) do(method, target string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v (raw %q)", err, rr.Body.String())
	}
}
