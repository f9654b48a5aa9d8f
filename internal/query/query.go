// Package query is the core of the listing path: it normalizes the raw list
// parameters of a request and resolves them, together with the caller's
// identity, into a ListQuery that the store compiles and executes.
//
// Parsing is deliberately permissive: an unknown view, sort field or order
// falls back to its default instead of erroring. This asymmetry with the
// strict write-path validation is part of the API contract.
//
// The visibility rule is resolved before anything else and is carried as a
// distinct field so that the store has no way to accidentally OR it with the
// search clause. Search, language and tag filters can only ever narrow the
// visible set.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// View selects which visibility predicate applies to a list or stats query.
type View string

const (
	ViewMy     View = "my"
	ViewPublic View = "public"
	ViewAll    View = "all"
)

// SortField is a whitelisted sortable column.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortTitle     SortField = "title"
	SortLanguage  SortField = "language"
)

// Order is the sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Params holds the normalized list parameters of a request, before the
// caller's identity is taken into account.
type Params struct {
	View      View
	Search    string
	Language  string
	Tags      []string
	Page      int
	Limit     int
	SortBy    SortField
	SortOrder Order
}

// Parse normalizes raw URL query values into Params.
//
//   - view: my|public|all, default my
//   - page: 1-based, floored at 1 for non-numeric or non-positive input
//   - limit: clamped into [1, 50], default 20
//   - sortBy: createdAt|updatedAt|title|language, default createdAt
//   - sortOrder: asc|desc, default desc
//   - language: lower-cased for exact matching
//   - tags: comma-separated, each token trimmed and lower-cased
func Parse(values url.Values) Params {
	p := Params{
		View:      ViewMy,
		Search:    strings.TrimSpace(values.Get("search")),
		Language:  strings.ToLower(strings.TrimSpace(values.Get("language"))),
		Page:      1,
		Limit:     DefaultLimit,
		SortBy:    SortCreatedAt,
		SortOrder: OrderDesc,
	}

	switch View(values.Get("view")) {
	case ViewPublic:
		p.View = ViewPublic
	case ViewAll:
		p.View = ViewAll
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 1 {
		p.Page = page
	}

	if limit, err := strconv.Atoi(values.Get("limit")); err == nil {
		switch {
		case limit < 1:
			p.Limit = 1
		case limit > MaxLimit:
			p.Limit = MaxLimit
		default:
			p.Limit = limit
		}
	}

	switch SortField(values.Get("sortBy")) {
	case SortUpdatedAt:
		p.SortBy = SortUpdatedAt
	case SortTitle:
		p.SortBy = SortTitle
	case SortLanguage:
		p.SortBy = SortLanguage
	}

	if Order(values.Get("sortOrder")) == OrderAsc {
		p.SortOrder = OrderAsc
	}

	if raw := values.Get("tags"); raw != "" {
		p.Tags = SplitTags(raw)
	}

	return p
}

// SplitTags turns comma-separated input into lower-cased trimmed tokens.
// Empty tokens are dropped; duplicates are kept.
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.ToLower(strings.TrimSpace(part)); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Visibility is the resolved access-control predicate of a query.
type Visibility int

const (
	// VisibilityPublicOnly matches isPublic snippets only.
	VisibilityPublicOnly Visibility = iota
	// VisibilityOwnerOnly matches snippets owned by the requester.
	VisibilityOwnerOnly
	// VisibilityOwnerOrPublic matches snippets owned by the requester plus
	// all public ones.
	VisibilityOwnerOrPublic
)

// ListQuery is a fully resolved filter+sort+page specification, ready to be
// compiled by a store. Visibility has already been decided and must be
// combined with every other filter using AND.
type ListQuery struct {
	Visibility Visibility
	OwnerID    string // requester id; empty only with VisibilityPublicOnly
	Search     string
	Language   string
	Tags       []string
	Page       int
	Limit      int
	SortBy     SortField
	SortOrder  Order
}

// Resolve applies the visibility rules to the parsed parameters.
//
// An unauthenticated caller is restricted to public snippets regardless of
// the requested view; no view value can widen visibility. For authenticated
// callers the view selects between own-only (my, the default), public-only,
// and own-or-public (all).
func (p Params) Resolve(requesterID string) ListQuery {
	q := ListQuery{
		OwnerID:   requesterID,
		Search:    p.Search,
		Language:  p.Language,
		Tags:      p.Tags,
		Page:      p.Page,
		Limit:     p.Limit,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
	}

	switch {
	case requesterID == "":
		q.Visibility = VisibilityPublicOnly
		q.OwnerID = ""
	case p.View == ViewPublic:
		q.Visibility = VisibilityPublicOnly
	case p.View == ViewAll:
		q.Visibility = VisibilityOwnerOrPublic
	default:
		q.Visibility = VisibilityOwnerOnly
	}

	return q
}

// Offset is the number of rows to skip for the requested page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Pagination is the page envelope returned alongside list results.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes the envelope for a total count of matching rows,
// ignoring the page window. Pages is ceil(total/limit).
func NewPagination(page, limit, total int) Pagination {
	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + limit - 1) / limit,
	}
}
