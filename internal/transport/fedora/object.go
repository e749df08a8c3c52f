package fedora

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/coloradocollege/digitalcc/internal/domain"
	"github.com/coloradocollege/digitalcc/internal/domain/document"
)

// RDF relationship namespaces used in RELS-EXT.
const (
	nsRelsExt   = "info:fedora/fedora-system:def/relations-external#"
	nsModel     = "info:fedora/fedora-system:def/model#"
	nsIslandora = "http://islandora.ca/ontology/relsext#"
)

// RelsExt is the relationship summary of one object.
type RelsExt struct {
	PID           string
	Models        []string
	Collections   []string
	ConstituentOf string
	// Sequence is the position within ConstituentOf; 0 when unknown.
	Sequence int
}

// IsConstituent reports whether the object belongs to a compound parent.
func (r RelsExt) IsConstituent() bool { return r.ConstituentOf != "" }

// IsCollection reports whether the object carries the collection content model.
func (r RelsExt) IsCollection() bool { return slices.Contains(r.Models, document.ModelCollection) }

type rdfDoc struct {
	Descriptions []struct {
		About string `xml:"about,attr"`
		Rels  []struct {
			XMLName  xml.Name
			Resource string `xml:"resource,attr"`
			Text     string `xml:",chardata"`
		} `xml:",any"`
	} `xml:"Description"`
}

// RelsExt fetches and parses the RELS-EXT datastream of pid.
func (c *Client) RelsExt(ctx context.Context, pid string) (RelsExt, error) {
	body, err := c.getContent(ctx, "rels_ext", pid, "RELS-EXT")
	if err != nil {
		return RelsExt{}, err
	}
	return ParseRelsExt(pid, body)
}

// ParseRelsExt reads hasModel, isMemberOfCollection, isConstituentOf and the
// matching isSequenceNumberOf<parent> relationships.
func ParseRelsExt(pid string, data []byte) (RelsExt, error) {
	var doc rdfDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return RelsExt{}, fmt.Errorf("%w: rels-ext %s: %v", domain.ErrMalformedMetadata, pid, err)
	}

	out := RelsExt{PID: pid}
	sequences := map[string]string{}
	for _, d := range doc.Descriptions {
		for _, rel := range d.Rels {
			switch {
			case rel.XMLName.Space == nsModel && rel.XMLName.Local == "hasModel":
				out.Models = append(out.Models, PIDFromURI(rel.Resource))
			case rel.XMLName.Space == nsRelsExt && rel.XMLName.Local == "isMemberOfCollection":
				out.Collections = append(out.Collections, PIDFromURI(rel.Resource))
			case rel.XMLName.Space == nsRelsExt && rel.XMLName.Local == "isConstituentOf":
				out.ConstituentOf = PIDFromURI(rel.Resource)
			case rel.XMLName.Space == nsIslandora && strings.HasPrefix(rel.XMLName.Local, "isSequenceNumberOf"):
				sequences[strings.TrimPrefix(rel.XMLName.Local, "isSequenceNumberOf")] = strings.TrimSpace(rel.Text)
			}
		}
	}
	if out.ConstituentOf != "" {
		key := strings.ReplaceAll(out.ConstituentOf, ":", "_")
		if n, err := strconv.Atoi(sequences[key]); err == nil {
			out.Sequence = n
		}
	}
	return out, nil
}

// Metadata returns the raw MODS datastream. A missing datastream is domain.ErrMetadataNotFound.
func (c *Client) Metadata(ctx context.Context, pid string) ([]byte, error) {
	body, err := c.getContent(ctx, "mods", pid, "MODS")
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrMetadataNotFound, pid)
	}
	return body, err
}

type datastreamList struct {
	Datastreams []struct {
		DSID     string `xml:"dsid,attr"`
		Label    string `xml:"label,attr"`
		MimeType string `xml:"mimeType,attr"`
	} `xml:"datastream"`
}

// Datastreams lists every datastream of pid in repository order.
func (c *Client) Datastreams(ctx context.Context, pid string) ([]document.Datastream, error) {
	resp, err := c.get(ctx, "datastreams", c.objectURL(pid, "datastreams")+"?format=xml")
	if err != nil {
		return nil, err
	}
	body, err := readOK(resp, "datastreams", pid)
	if err != nil {
		return nil, err
	}

	var list datastreamList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("datastreams %s: decode: %w", pid, err)
	}
	out := make([]document.Datastream, 0, len(list.Datastreams))
	for _, ds := range list.Datastreams {
		out = append(out, document.Datastream{PID: pid, DSID: ds.DSID, Label: ds.Label, MimeType: ds.MimeType})
	}
	return out, nil
}

// Content is a streamed datastream body. The caller must close Body.
type Content struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	LastModified  string
}

// OpenDatastream streams a datastream's content. A missing one is domain.ErrNotFound.
func (c *Client) OpenDatastream(ctx context.Context, pid, dsid string) (*Content, error) {
	resp, err := c.get(ctx, "datastream", c.objectURL(pid, "datastreams", dsid, "content"))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "datastream", pid); err != nil {
		return nil, err
	}
	return &Content{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		LastModified:  resp.Header.Get("Last-Modified"),
	}, nil
}

func (c *Client) getContent(ctx context.Context, op, pid, dsid string) ([]byte, error) {
	resp, err := c.get(ctx, op, c.objectURL(pid, "datastreams", dsid, "content"))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, op, pid); err != nil {
		return nil, err
	}
	return readOK(resp, op, pid)
}

func (c *Client) get(ctx context.Context, op, u string) (*http.Response, error) {
	return c.do(ctx, op, http.MethodGet, u, "", nil)
}

// checkStatus closes the body and returns an error for 404 and other failures.
func checkStatus(resp *http.Response, op, pid string) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		drain(resp)
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, op, pid)
	case resp.StatusCode >= http.StatusBadRequest:
		_, err := readOK(resp, op, pid)
		return err
	}
	return nil
}
