package fedora

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coloradocollege/digitalcc/internal/domain"
	"github.com/coloradocollege/digitalcc/internal/metrics"
)

const relsExtCompoundChild = `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
  xmlns:fedora="info:fedora/fedora-system:def/relations-external#"
  xmlns:fedora-model="info:fedora/fedora-system:def/model#"
  xmlns:islandora="http://islandora.ca/ontology/relsext#">
  <rdf:Description rdf:about="info:fedora/coccc:11">
    <fedora-model:hasModel rdf:resource="info:fedora/islandora:sp_large_image_cmodel"/>
    <fedora:isConstituentOf rdf:resource="info:fedora/coccc:10"/>
    <islandora:isSequenceNumberOfcoccc_10>2</islandora:isSequenceNumberOfcoccc_10>
    <islandora:isSequenceNumberOfcoccc_99>7</islandora:isSequenceNumberOfcoccc_99>
  </rdf:Description>
</rdf:RDF>`

const relsExtCollection = `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
  xmlns:fedora="info:fedora/fedora-system:def/relations-external#"
  xmlns:fedora-model="info:fedora/fedora-system:def/model#">
  <rdf:Description rdf:about="info:fedora/coccc:1">
    <fedora-model:hasModel rdf:resource="info:fedora/islandora:collectionCModel"/>
    <fedora:isMemberOfCollection rdf:resource="info:fedora/coccc:root"/>
  </rdf:Description>
</rdf:RDF>`

const datastreamsXML = `<?xml version="1.0" encoding="UTF-8"?>
<objectDatastreams xmlns="http://www.fedora.info/definitions/1/0/access/" pid="coccc:10">
  <datastream dsid="DC" label="Dublin Core Record" mimeType="text/xml"/>
  <datastream dsid="OBJ" label="scan.pdf" mimeType="application/pdf"/>
</objectDatastreams>`

func newTestClient(t *testing.T, h http.Handler, maxRetries int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		RestURL:    srv.URL + "/fedora/objects",
		RIURL:      srv.URL + "/fedora/risearch",
		Username:   "fedoraAdmin",
		Password:   "secret",
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresURLs(t *testing.T) {
	_, err := NewClient(Config{RestURL: "http://x/objects/"})
	assert.Error(t, err)
}

func TestChildren(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/fedora/risearch", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "fedoraAdmin", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tuples", r.PostForm.Get("type"))
		assert.Equal(t, "sparql", r.PostForm.Get("lang"))
		assert.Equal(t, "json", r.PostForm.Get("format"))
		assert.Contains(t, r.PostForm.Get("query"), "isMemberOfCollection> <info:fedora/coccc:1>")

		_, _ = io.WriteString(w, `{"results":[{"s":"info:fedora/coccc:2"},{"s":"info:fedora/coccc:3"}]}`)
	}), 0)

	pids, err := c.Children(context.Background(), "coccc:1")
	require.NoError(t, err)
	assert.Equal(t, []string{"coccc:2", "coccc:3"}, pids)
}

func TestConstituentsAndNewest(t *testing.T) {
	var queries []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		queries = append(queries, r.PostForm.Get("query"))
		_, _ = io.WriteString(w, `{"results":[{"s":"info:fedora/coccc:11","date":"2016-01-01"}]}`)
	}), 0)

	pids, err := c.Constituents(context.Background(), "coccc:10")
	require.NoError(t, err)
	assert.Equal(t, []string{"coccc:11"}, pids)

	pids, err = c.NewestObjects(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"coccc:11"}, pids)

	require.Len(t, queries, 2)
	assert.Contains(t, queries[0], "isConstituentOf> <info:fedora/coccc:10>")
	assert.Contains(t, queries[1], "LIMIT 5")
	assert.Contains(t, queries[1], "ORDER BY DESC(?date)")
}

func TestSparql_ErrorStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "no access")
	}), 2)

	_, err := c.Children(context.Background(), "coccc:1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	var se *domain.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Status)
	assert.Equal(t, "coccc:1", se.PID)
	assert.Equal(t, "no access", se.Body)
}

func TestRetry_ServerErrorThenSuccess(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"results":[]}`)
	}), 2)

	pids, err := c.Children(context.Background(), "coccc:1")
	require.NoError(t, err)
	assert.Empty(t, pids)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), 1)

	_, err := c.Children(context.Background(), "coccc:1")
	var se *domain.StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetry_NotOnClientError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}), 3)

	_, err := c.Metadata(context.Background(), "coccc:5")
	assert.ErrorIs(t, err, domain.ErrMetadataNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_TooManyRequestsCounted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"results":[{"s":"info:fedora/coccc:2"}]}`)
	}), 1)
	throttled := metrics.FedoraRequestsTotal.WithLabelValues("constituents", "429")
	before := testutil.ToFloat64(throttled)

	pids, err := c.Constituents(context.Background(), "coccc:1")
	require.NoError(t, err)
	assert.Equal(t, []string{"coccc:2"}, pids)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, before+1, testutil.ToFloat64(throttled))
}

func TestRateLimitAppliesToRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"results":[]}`)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		RestURL:           srv.URL + "/fedora/objects/",
		RIURL:             srv.URL + "/fedora/risearch",
		MaxRetries:        2,
		RetryDelay:        time.Millisecond,
		RequestsPerSecond: 20,
		Burst:             1,
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Children(context.Background(), "coccc:1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond, "three attempts at 20/s need two token refills")
}

func TestContextCanceled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), 5)
	c.retry.RetryWaitMin = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Children(ctx, "coccc:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRelsExt(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fedora/objects/coccc:11/datastreams/RELS-EXT/content", r.URL.Path)
		_, _ = io.WriteString(w, relsExtCompoundChild)
	}), 0)

	rels, err := c.RelsExt(context.Background(), "coccc:11")
	require.NoError(t, err)
	assert.Equal(t, []string{"islandora:sp_large_image_cmodel"}, rels.Models)
	assert.True(t, rels.IsConstituent())
	assert.Equal(t, "coccc:10", rels.ConstituentOf)
	assert.Equal(t, 2, rels.Sequence)
}

func TestParseRelsExt_Collection(t *testing.T) {
	rels, err := ParseRelsExt("coccc:1", []byte(relsExtCollection))
	require.NoError(t, err)
	assert.Equal(t, []string{"islandora:collectionCModel"}, rels.Models)
	assert.Equal(t, []string{"coccc:root"}, rels.Collections)
	assert.False(t, rels.IsConstituent())
	assert.True(t, rels.IsCollection())
	assert.Zero(t, rels.Sequence)
}

func TestParseRelsExt_Malformed(t *testing.T) {
	_, err := ParseRelsExt("coccc:1", []byte("<rdf:RDF"))
	assert.ErrorIs(t, err, domain.ErrMalformedMetadata)
}

func TestRelsExt_NotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), 0)

	_, err := c.RelsExt(context.Background(), "coccc:404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMetadata(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fedora/objects/coccc:5/datastreams/MODS/content":
			_, _ = io.WriteString(w, "<mods/>")
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, "login required")
		}
	}), 0)

	body, err := c.Metadata(context.Background(), "coccc:5")
	require.NoError(t, err)
	assert.Equal(t, "<mods/>", string(body))

	_, err = c.Metadata(context.Background(), "coccc:6")
	var se *domain.StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.NotErrorIs(t, err, domain.ErrMetadataNotFound)
}

func TestDatastreams(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fedora/objects/coccc:10/datastreams", r.URL.Path)
		assert.Equal(t, "xml", r.URL.Query().Get("format"))
		_, _ = io.WriteString(w, datastreamsXML)
	}), 0)

	ds, err := c.Datastreams(context.Background(), "coccc:10")
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "OBJ", ds[1].DSID)
	assert.Equal(t, "application/pdf", ds[1].MimeType)
	assert.Equal(t, "scan.pdf", ds[1].Label)
	assert.Equal(t, "coccc:10", ds[1].PID)
}

func TestOpenDatastream(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/datastreams/TN/content") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", "4")
		_, _ = io.WriteString(w, "JPEG")
	}), 0)

	content, err := c.OpenDatastream(context.Background(), "coccc:10", "TN")
	require.NoError(t, err)
	defer content.Body.Close()
	data, _ := io.ReadAll(content.Body)
	assert.Equal(t, "JPEG", string(data))
	assert.Equal(t, "image/jpeg", content.ContentType)
	assert.Equal(t, int64(4), content.ContentLength)

	_, err = c.OpenDatastream(context.Background(), "coccc:10", "OBJ")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPIDFromURI(t *testing.T) {
	tests := map[string]string{
		"info:fedora/coccc:1":                      "coccc:1",
		" info:fedora/islandora:collectionCModel ": "islandora:collectionCModel",
		"coccc:2": "coccc:2",
	}
	for in, want := range tests {
		assert.Equal(t, want, PIDFromURI(in), fmt.Sprintf("input %q", in))
	}
}
