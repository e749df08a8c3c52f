// Package sitechrome pulls the header, footer and assets of the library website
// so pages served here can share its look.
package sitechrome

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/coloradocollege/digitalcc/internal/domain"
)

// Part names accepted by Chrome.Part.
const (
	PartHeader  = "header"
	PartFooter  = "footer"
	PartTabs    = "tabs"
	PartScripts = "scripts"
	PartStyles  = "styles"
)

// Chrome holds HTML fragments taken from the library homepage.
type Chrome struct {
	Header  string `json:"header"`
	Footer  string `json:"footer"`
	Tabs    string `json:"tabs"`
	Scripts string `json:"scripts"`
	Styles  string `json:"styles"`
}

// Part returns a fragment by name.
func (c Chrome) Part(name string) (string, bool) {
	switch strings.ToLower(name) {
	case PartHeader:
		return c.Header, true
	case PartFooter:
		return c.Footer, true
	case PartTabs:
		return c.Tabs, true
	case PartScripts:
		return c.Scripts, true
	case PartStyles:
		return c.Styles, true
	}
	return "", false
}

// Selectors are CSS selectors for the fragments; the first match is used.
type Selectors struct {
	Header string
	Footer string
	Tabs   string
}

// Config configures the scraper.
type Config struct {
	URL        string
	Selectors  Selectors
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Scraper fetches and parses the library homepage.
type Scraper struct {
	url  string
	sel  Selectors
	http *http.Client
}

// New creates a scraper. Empty selectors default to header, footer and nav.
func New(cfg Config) *Scraper {
	sel := cfg.Selectors
	if sel.Header == "" {
		sel.Header = "header"
	}
	if sel.Footer == "" {
		sel.Footer = "footer"
	}
	if sel.Tabs == "" {
		sel.Tabs = "nav"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Scraper{url: cfg.URL, sel: sel, http: hc}
}

// Fetch downloads the homepage and extracts its chrome.
func (s *Scraper) Fetch(ctx context.Context) (Chrome, error) {
	if s.url == "" {
		return Chrome{}, errors.New("site url is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return Chrome{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return Chrome{}, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Chrome{}, domain.NewStatusError("site", "", resp.StatusCode, body)
	}
	return Parse(resp.Body, s.url, s.sel)
}

// Parse extracts the chrome from an HTML page. Relative links are made absolute against base.
func Parse(r io.Reader, base string, sel Selectors) (Chrome, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Chrome{}, fmt.Errorf("parse html: %w", err)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return Chrome{}, fmt.Errorf("parse base url: %w", err)
	}

	absolutize(doc.Selection, baseURL)

	var c Chrome
	if c.Header, err = outer(doc.Find(sel.Header).First()); err != nil {
		return Chrome{}, err
	}
	if c.Footer, err = outer(doc.Find(sel.Footer).First()); err != nil {
		return Chrome{}, err
	}
	if c.Tabs, err = outer(doc.Find(sel.Tabs).First()); err != nil {
		return Chrome{}, err
	}
	if c.Scripts, err = joinOuter(doc.Find("script[src]")); err != nil {
		return Chrome{}, err
	}
	if c.Styles, err = joinOuter(doc.Find(`link[rel="stylesheet"]`)); err != nil {
		return Chrome{}, err
	}
	return c, nil
}

func absolutize(root *goquery.Selection, base *url.URL) {
	for _, attr := range []string{"href", "src"} {
		root.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			v, _ := s.Attr(attr)
			ref, err := url.Parse(strings.TrimSpace(v))
			if err != nil || ref.IsAbs() || strings.HasPrefix(v, "#") {
				return
			}
			s.SetAttr(attr, base.ResolveReference(ref).String())
		})
	}
}

func outer(s *goquery.Selection) (string, error) {
	if s.Length() == 0 {
		return "", nil
	}
	html, err := goquery.OuterHtml(s)
	if err != nil {
		return "", fmt.Errorf("render fragment: %w", err)
	}
	return html, nil
}

func joinOuter(s *goquery.Selection) (string, error) {
	parts := make([]string, 0, s.Length())
	var err error
	s.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		var html string
		html, err = goquery.OuterHtml(el)
		if err != nil {
			return false
		}
		parts = append(parts, html)
		return true
	})
	if err != nil {
		return "", fmt.Errorf("render fragment: %w", err)
	}
	return strings.Join(parts, "\n"), nil
}
