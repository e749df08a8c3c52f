package harvest

import (
	"context"
	"fmt"
	"sync"

	"github.com/coloradocollege/digitalcc/internal/domain"
	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/transport/fedora"
)

// fakeSource is an in-memory repository graph.
type fakeSource struct {
	children     map[string][]string
	constituents map[string][]string
	rels         map[string]fedora.RelsExt
	mods         map[string]string
	datastreams  map[string][]domdoc.Datastream
	newest       []string
	errs         map[string]error // keyed by "op:pid"
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		children:     map[string][]string{},
		constituents: map[string][]string{},
		rels:         map[string]fedora.RelsExt{},
		mods:         map[string]string{},
		datastreams:  map[string][]domdoc.Datastream{},
		errs:         map[string]error{},
	}
}

func (f *fakeSource) fail(op, pid string) error { return f.errs[op+":"+pid] }

// object adds a pid under parent with a title and content models.
func (f *fakeSource) object(parent, pid, title string, models ...string) {
	f.children[parent] = append(f.children[parent], pid)
	f.rels[pid] = fedora.RelsExt{PID: pid, Models: models, Collections: []string{parent}}
	f.mods[pid] = modsTitle(title)
}

func (f *fakeSource) constituent(parent, pid string, seq int, ds ...domdoc.Datastream) {
	f.constituents[parent] = append(f.constituents[parent], pid)
	f.rels[pid] = fedora.RelsExt{PID: pid, ConstituentOf: parent, Sequence: seq}
	f.datastreams[pid] = ds
}

func (f *fakeSource) Children(_ context.Context, pid string) ([]string, error) {
	if err := f.fail("children", pid); err != nil {
		return nil, err
	}
	return f.children[pid], nil
}

func (f *fakeSource) Constituents(_ context.Context, pid string) ([]string, error) {
	if err := f.fail("constituents", pid); err != nil {
		return nil, err
	}
	return f.constituents[pid], nil
}

func (f *fakeSource) NewestObjects(_ context.Context, limit int) ([]string, error) {
	if len(f.newest) > limit {
		return f.newest[:limit], nil
	}
	return f.newest, nil
}

func (f *fakeSource) RelsExt(_ context.Context, pid string) (fedora.RelsExt, error) {
	if err := f.fail("rels", pid); err != nil {
		return fedora.RelsExt{}, err
	}
	r, ok := f.rels[pid]
	if !ok {
		return fedora.RelsExt{}, fmt.Errorf("%w: %s", domain.ErrNotFound, pid)
	}
	return r, nil
}

func (f *fakeSource) Metadata(_ context.Context, pid string) ([]byte, error) {
	if err := f.fail("mods", pid); err != nil {
		return nil, err
	}
	m, ok := f.mods[pid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMetadataNotFound, pid)
	}
	return []byte(m), nil
}

func (f *fakeSource) Datastreams(_ context.Context, pid string) ([]domdoc.Datastream, error) {
	if err := f.fail("datastreams", pid); err != nil {
		return nil, err
	}
	return f.datastreams[pid], nil
}

// memDocs is an in-memory DocumentStore.
type memDocs struct {
	mu      sync.Mutex
	docs    map[string]domdoc.Document
	ids     map[string]string
	upserts int
	seq     int
}

func newMemDocs() *memDocs {
	return &memDocs{docs: map[string]domdoc.Document{}, ids: map[string]string{}}
}

func (m *memDocs) Upsert(_ context.Context, doc *domdoc.Document) (string, bool, error) {
	if err := doc.Validate(); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	id, ok := m.ids[doc.PID]
	if !ok {
		m.seq++
		id = fmt.Sprintf("id-%d", m.seq)
		m.ids[doc.PID] = id
	}
	m.docs[doc.PID] = *doc
	return id, !ok, nil
}

func (m *memDocs) GetByPID(_ context.Context, pid string) (domdoc.Document, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[pid]
	if !ok {
		return domdoc.Document{}, "", domain.ErrDocumentNotFound
	}
	// round-trip like the real store
	src, _ := d.Source()
	out, err := domdoc.FromSource(src)
	return out, m.ids[pid], err
}

func (m *memDocs) Exists(_ context.Context, pid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[pid]
	return ok, nil
}

func (m *memDocs) Delete(_ context.Context, pid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[pid]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.docs, pid)
	delete(m.ids, pid)
	return nil
}

type countingCache struct{ calls int }

func (c *countingCache) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func modsTitle(title string) string {
	return `<mods xmlns="http://www.loc.gov/mods/v3"><titleInfo><title>` + title +
		`</title></titleInfo><typeOfResource>text</typeOfResource></mods>`
}

func newTestService(src *fakeSource, docs *memDocs, cache Invalidator) *Service {
	return New(src, docs, cache, Config{RootPID: "coccc:root"})
}
