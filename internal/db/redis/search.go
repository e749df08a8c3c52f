package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/coloradocollege/digitalcc/internal/db"
	"github.com/coloradocollege/digitalcc/internal/domain/search/query"
)

// Search runs a paginated FT.SEARCH, optionally sorted ascending by one field.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Offset < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("offset and limit must not be negative")
	}

	args := []string{q.IndexName, buildQuery(q.Where)}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	if q.SortBy != "" {
		args = append(args, "SORTBY", q.SortBy, "ASC")
	}
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseListResult(raw)
}

// Aggregate runs one FT.AGGREGATE per facet in a single DoMulti round-trip.
// Multi-valued tags are split before grouping so each value is counted once per record.
func (s *Store) Aggregate(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Facets) == 0 {
		return &db.AggregateResult{}, nil
	}

	where := buildQuery(q.Where)
	cmds := make([]rueidis.Completed, len(q.Facets))
	for i, f := range q.Facets {
		cmds[i] = s.b().Arbitrary("FT.AGGREGATE").Args(buildAggregateArgs(q.IndexName, where, f)...).Build()
	}

	out := &db.AggregateResult{Facets: make([]db.FacetResult, len(q.Facets))}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		raw, err := res.ToArray()
		if err != nil {
			return nil, &db.Error{Op: db.OpAggregate, Err: fmt.Errorf("facet %s: %w", q.Facets[i].Name, err)}
		}
		out.Facets[i] = db.FacetResult{Name: q.Facets[i].Name, Buckets: parseAggregateRows(raw)}
	}
	return out, nil
}

func buildAggregateArgs(index, where string, f db.FacetRequest) []string {
	size := f.Size
	if size <= 0 {
		size = 10
	}
	field := "@" + f.Field
	return []string{
		index, where,
		"LOAD", "1", field,
		"FILTER", "exists(" + field + ")",
		"APPLY", fmt.Sprintf("split(%s, %q)", field, db.DefaultTagSeparator), "AS", "value",
		"GROUPBY", "1", "@value",
		"REDUCE", "COUNT", "0", "AS", "count",
		"SORTBY", "2", "@count", "DESC",
		"MAX", strconv.Itoa(size),
		"DIALECT", "2",
	}
}

// --- Result parsing ---

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, len(raw)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// parseAggregateRows reads [count, [value, v, count, n], ...] rows.
func parseAggregateRows(raw []rueidis.RedisMessage) []db.Bucket {
	if len(raw) < 2 {
		return nil
	}
	buckets := make([]db.Bucket, 0, len(raw)-1)
	for _, row := range raw[1:] {
		pairs, err := row.ToArray()
		if err != nil {
			continue
		}
		m := parseFieldPairs(pairs)
		value := m["value"]
		count, err := strconv.Atoi(m["count"])
		if value == "" || err != nil || count <= 0 {
			continue
		}
		buckets = append(buckets, db.Bucket{Value: value, Count: count})
	}
	return buckets
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildQuery translates a query.Expression into FT.SEARCH query syntax.
// Clauses are intersected; an empty expression matches everything.
func buildQuery(expr query.Expression) string {
	if expr.IsEmpty() {
		return "*"
	}
	parts := make([]string, 0, len(expr.Must()))
	for _, c := range expr.Must() {
		if p := buildClause(c); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func buildClause(c query.Clause) string {
	switch c.Kind() {
	case query.KindTerm:
		return buildTagFilter(c.Field(), c.Value())
	case query.KindPhrase:
		return fmt.Sprintf(`@%s:"%s"`, c.Field(), strings.Join(escapeTerms(c.Terms()), " "))
	case query.KindText:
		terms := "(" + strings.Join(escapeTerms(c.Terms()), " ") + ")"
		if len(c.Fields()) == 0 {
			return terms
		}
		return "@" + strings.Join(c.Fields(), "|") + ":" + terms
	case query.KindAny:
		parts := make([]string, 0, len(c.Any()))
		for _, sub := range c.Any() {
			if p := buildClause(sub); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		return "(" + strings.Join(parts, " | ") + ")"
	}
	return ""
}

func buildTagFilter(key, value string) string {
	escaped := tagEscaper.Replace(value)
	return fmt.Sprintf("@%s:{%s}", key, escaped)
}

func escapeTerms(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = escapeQuery(t)
	}
	return out
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	"\\", "\\\\",
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`:`, `\:`,
	`+`, `\+`,
)
