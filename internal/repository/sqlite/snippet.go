package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/rs/xid"

	"github.com/rashik/snipvault/internal/apperror"
	"github.com/rashik/snipvault/internal/model"
	"github.com/rashik/snipvault/internal/query"
	"github.com/rashik/snipvault/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

const snippetTable = "snippets"

var snippetCols = []any{
	"id", "owner_id", "owner_email", "title", "description",
	"language", "code", "tags", "is_public", "created_at", "updated_at",
}

var sortColumns = map[query.SortField]string{
	query.SortCreatedAt: "created_at",
	query.SortUpdatedAt: "updated_at",
	query.SortTitle:     "title",
	query.SortLanguage:  "language",
}

// Create inserts a new snippet, generating its id and stamping both
// timestamps with the same instant.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()

	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	sqlStr, args, err := db.gq.Insert(snippetTable).Rows(goqu.Record{
		"id":          snippet.ID,
		"owner_id":    snippet.OwnerID,
		"owner_email": snippet.OwnerEmail,
		"title":       snippet.Title,
		"description": snippet.Description,
		"language":    snippet.Language,
		"code":        snippet.Code,
		"tags":        snippet.Tags,
		"is_public":   snippet.IsPublic,
		"created_at":  snippet.CreatedAt,
		"updated_at":  snippet.UpdatedAt,
	}).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("sqlite: building insert: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID retrieves a single snippet, applying the read visibility rule:
// a private snippet is returned only to its owner. An anonymous caller
// (empty requesterID) sees public snippets only.
func (db *DB) GetByID(ctx context.Context, id, requesterID string) (*model.Snippet, error) {
	sqlStr, args, err := db.gq.From(snippetTable).
		Select(snippetCols...).
		Where(goqu.C("id").Eq(id), readableBy(requesterID)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building select: %w", err)
	}

	var snippet model.Snippet
	if err := db.conn.GetContext(ctx, &snippet, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	return &snippet, nil
}

// List runs the resolved list query and returns the page of snippets plus
// the total number of matching rows (ignoring the page window).
func (db *DB) List(ctx context.Context, q query.ListQuery) ([]model.Snippet, int, error) {
	where := db.listExprs(q)

	sqlStr, args, err := db.gq.From(snippetTable).
		Select(snippetCols...).
		Where(where...).
		Order(orderExprs(q)...).
		Limit(uint(q.Limit)).
		Offset(uint(q.Offset())).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: building list query: %w", err)
	}

	snippets := make([]model.Snippet, 0, q.Limit)
	if err := db.conn.SelectContext(ctx, &snippets, sqlStr, args...); err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing snippets: %w", err)
	}

	countStr, countArgs, err := db.gq.From(snippetTable).
		Select(goqu.COUNT(goqu.Star())).
		Where(where...).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: building count query: %w", err)
	}

	var total int
	if err := db.conn.GetContext(ctx, &total, countStr, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting snippets: %w", err)
	}

	return snippets, total, nil
}

// Update applies a partial update as a single conditional statement scoped
// to the owner. Zero rows affected means "missing or not yours" and both
// cases surface as the same not-found error.
func (db *DB) Update(ctx context.Context, id, ownerID string, upd repository.SnippetUpdate) (*model.Snippet, error) {
	rec := goqu.Record{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		rec["title"] = *upd.Title
	}
	if upd.Description != nil {
		rec["description"] = *upd.Description
	}
	if upd.Language != nil {
		rec["language"] = *upd.Language
	}
	if upd.Code != nil {
		rec["code"] = *upd.Code
	}
	if upd.Tags != nil {
		rec["tags"] = *upd.Tags
	}
	if upd.IsPublic != nil {
		rec["is_public"] = *upd.IsPublic
	}

	sqlStr, args, err := db.gq.Update(snippetTable).
		Set(rec).
		Where(goqu.C("id").Eq(id), goqu.C("owner_id").Eq(ownerID)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building update: %w", err)
	}

	result, err := db.conn.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating snippet %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("snippet", id)
	}

	return db.GetByID(ctx, id, ownerID)
}

// Delete removes a snippet owned by ownerID. Same guard as Update: the
// statement matches id and owner together, and a miss is a plain not-found.
func (db *DB) Delete(ctx context.Context, id, ownerID string) error {
	sqlStr, args, err := db.gq.Delete(snippetTable).
		Where(goqu.C("id").Eq(id), goqu.C("owner_id").Eq(ownerID)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("sqlite: building delete: %w", err)
	}

	result, err := db.conn.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("snippet", id)
	}

	return nil
}

// listExprs compiles the resolved query into goqu expressions. The
// visibility predicate is always the first element and every user-supplied
// filter is a sibling AND term: the search OR-group nests one level below,
// so it can never widen the visible set.
func (db *DB) listExprs(q query.ListQuery) []goqu.Expression {
	exprs := []goqu.Expression{visibilityExpr(q)}

	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		exprs = append(exprs, goqu.Or(
			goqu.L(`title LIKE ? ESCAPE '\'`, pattern),
			goqu.L(`description LIKE ? ESCAPE '\'`, pattern),
		))
	}

	if q.Language != "" {
		exprs = append(exprs, goqu.C("language").Eq(q.Language))
	}

	if len(q.Tags) > 0 {
		exprs = append(exprs, db.tagIntersection(q.Tags))
	}

	return exprs
}

func visibilityExpr(q query.ListQuery) goqu.Expression {
	switch q.Visibility {
	case query.VisibilityOwnerOnly:
		return goqu.C("owner_id").Eq(q.OwnerID)
	case query.VisibilityOwnerOrPublic:
		return goqu.Or(
			goqu.C("owner_id").Eq(q.OwnerID),
			goqu.C("is_public").Eq(true),
		)
	default:
		return goqu.C("is_public").Eq(true)
	}
}

// readableBy is the detail-read variant of the visibility rule.
func readableBy(requesterID string) goqu.Expression {
	if requesterID == "" {
		return goqu.C("is_public").Eq(true)
	}
	return goqu.Or(
		goqu.C("is_public").Eq(true),
		goqu.C("owner_id").Eq(requesterID),
	)
}

// tagIntersection matches snippets whose tag array shares at least one
// entry with the requested set, via json_each over the tags column.
func (db *DB) tagIntersection(tags []string) goqu.Expression {
	vals := make([]any, len(tags))
	for i, tag := range tags {
		vals[i] = tag
	}
	sub := db.gq.From(goqu.L("json_each(snippets.tags)")).
		Select(goqu.V(1)).
		Where(goqu.C("value").In(vals...))
	return goqu.L("EXISTS ?", sub)
}

// orderExprs maps the whitelisted sort field and direction to columns,
// with id ascending as the deterministic tie-breaker.
func orderExprs(q query.ListQuery) []exp.OrderedExpression {
	col := goqu.C(sortColumns[q.SortBy])
	primary := col.Desc()
	if q.SortOrder == query.OrderAsc {
		primary = col.Asc()
	}
	return []exp.OrderedExpression{primary, goqu.C("id").Asc()}
}

// escapeLike neutralizes LIKE wildcards in user-supplied search text so the
// match stays a literal substring test.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
