package fedora

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	childrenQuery = `SELECT DISTINCT ?s
WHERE {
  ?s <fedora-rels-ext:isMemberOfCollection> <info:fedora/%s> .
}`
	constituentsQuery = `SELECT DISTINCT ?s
WHERE {
  ?s <fedora-rels-ext:isConstituentOf> <info:fedora/%s> .
}`
	newestQuery = `SELECT DISTINCT ?s ?date
WHERE { ?s <fedora-model:createdDate> ?date . }
ORDER BY DESC(?date)
LIMIT %d`
)

type tuples struct {
	Results []map[string]string `json:"results"`
}

// Children returns the pids whose isMemberOfCollection points at pid.
func (c *Client) Children(ctx context.Context, pid string) ([]string, error) {
	return c.sparql(ctx, "children", pid, fmt.Sprintf(childrenQuery, pid))
}

// Constituents returns the pids whose isConstituentOf points at pid.
func (c *Client) Constituents(ctx context.Context, pid string) ([]string, error) {
	return c.sparql(ctx, "constituents", pid, fmt.Sprintf(constituentsQuery, pid))
}

// NewestObjects returns up to limit pids ordered by creation date, newest first.
func (c *Client) NewestObjects(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	return c.sparql(ctx, "newest", "", fmt.Sprintf(newestQuery, limit))
}

// sparql posts a tuple query and returns the pid of every ?s binding, in order.
func (c *Client) sparql(ctx context.Context, op, pid, q string) ([]string, error) {
	form := url.Values{
		"type":   {"tuples"},
		"lang":   {"sparql"},
		"format": {"json"},
		"query":  {q},
	}.Encode()

	resp, err := c.do(ctx, op, http.MethodPost, c.ri, "application/x-www-form-urlencoded", []byte(form))
	if err != nil {
		return nil, err
	}
	body, err := readOK(resp, op, pid)
	if err != nil {
		return nil, err
	}

	var t tuples
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("%s %s: decode results: %w", op, pid, err)
	}
	pids := make([]string, 0, len(t.Results))
	for _, row := range t.Results {
		if s := PIDFromURI(row["s"]); s != "" {
			pids = append(pids, s)
		}
	}
	return pids, nil
}

// PIDFromURI returns the last path segment of an info:fedora/ URI.
func PIDFromURI(uri string) string {
	uri = strings.TrimSpace(uri)
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
