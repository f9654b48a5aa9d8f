package sqlite

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/sourcegraph/conc/pool"

	"github.com/rashik/snipvault/internal/model"
	"github.com/rashik/snipvault/internal/query"
)

// statsLimit caps the top-languages and top-tags buckets.
const statsLimit = 10

// Stats aggregates the snippets visible to the caller: total count, top
// languages and top tags. The same visibility predicate as List applies to
// all three aggregations, which run concurrently.
func (db *DB) Stats(ctx context.Context, q query.ListQuery) (*model.Stats, error) {
	vis := visibilityExpr(q)

	var (
		total     int
		languages []model.FacetCount
		tags      []model.FacetCount
	)

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	p.Go(func(ctx context.Context) error {
		sqlStr, args, err := db.gq.From(snippetTable).
			Select(goqu.COUNT(goqu.Star())).
			Where(vis).
			Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("building total query: %w", err)
		}
		return db.conn.GetContext(ctx, &total, sqlStr, args...)
	})

	p.Go(func(ctx context.Context) error {
		sqlStr, args, err := db.gq.From(snippetTable).
			Select(goqu.C("language").As("id"), goqu.COUNT(goqu.Star()).As("count")).
			Where(vis).
			GroupBy(goqu.C("language")).
			Order(goqu.C("count").Desc(), goqu.C("id").Asc()).
			Limit(statsLimit).
			Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("building language stats query: %w", err)
		}
		return db.conn.SelectContext(ctx, &languages, sqlStr, args...)
	})

	p.Go(func(ctx context.Context) error {
		sqlStr, args, err := db.gq.From(goqu.T(snippetTable), goqu.L("json_each(snippets.tags)")).
			Select(goqu.C("value").As("id"), goqu.COUNT(goqu.Star()).As("count")).
			Where(vis).
			GroupBy(goqu.C("value")).
			Order(goqu.C("count").Desc(), goqu.C("id").Asc()).
			Limit(statsLimit).
			Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("building tag stats query: %w", err)
		}
		return db.conn.SelectContext(ctx, &tags, sqlStr, args...)
	})

	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("sqlite: aggregating stats: %w", err)
	}

	if languages == nil {
		languages = []model.FacetCount{}
	}
	if tags == nil {
		tags = []model.FacetCount{}
	}

	return &model.Stats{
		TotalSnippets: total,
		TopLanguages:  languages,
		TopTags:       tags,
	}, nil
}
