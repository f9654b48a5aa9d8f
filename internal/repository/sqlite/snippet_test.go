package sqlite

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashik/snipvault/internal/apperror"
	"github.com/rashik/snipvault/internal/model"
	"github.com/rashik/snipvault/internal/query"
	"github.com/rashik/snipvault/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestSnippet(t *testing.T, db *DB, s model.Snippet) *model.Snippet {
	t.Helper()
	if s.Language == "" {
		s.Language = "go"
	}
	if s.Code == "" {
		s.Code = "package main"
	}
	if err := db.Create(context.Background(), &s); err != nil {
		t.Fatalf("failed to create test snippet: %v", err)
	}
	return &s
}

// listQuery builds a resolved query the way the handlers do: parse raw
// values permissively, then resolve against the requester.
func listQuery(t *testing.T, requesterID string, raw string) query.ListQuery {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return query.Parse(values).Resolve(requesterID)
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created := createTestSnippet(t, db, model.Snippet{
		OwnerID:    "u1",
		OwnerEmail: "u1@example.com",
		Title:      "quicksort",
		Language:   "go",
		Code:       "func qs() {}",
		Tags:       model.TagList{"sort", "algo"},
		IsPublic:   true,
	})
	require.NotEmpty(t, created.ID)
	assert.False(t, created.UpdatedAt.Before(created.CreatedAt))

	got, err := db.GetByID(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "quicksort", got.Title)
	assert.Equal(t, model.TagList{"sort", "algo"}, got.Tags)
	assert.True(t, got.IsPublic)
	assert.Equal(t, "u1@example.com", got.OwnerEmail)
}

func TestGetByIDVisibility(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	private := createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "secret"})

	// Owner can read it.
	got, err := db.GetByID(ctx, private.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Title)

	// Anyone else gets the same not-found as a missing id.
	_, err = db.GetByID(ctx, private.ID, "u2")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = db.GetByID(ctx, private.ID, "")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = db.GetByID(ctx, "no-such-id", "u2")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestListVisibilityScenario(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "private A"})
	b := createTestSnippet(t, db, model.Snippet{OwnerID: "u2", Title: "public B", IsPublic: true})

	// u1 with view=all sees both.
	snippets, total, err := db.List(ctx, listQuery(t, "u1", "view=all"))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	ids := []string{snippets[0].ID, snippets[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	// u2 with view=my sees only B, never A.
	snippets, total, err = db.List(ctx, listQuery(t, "u2", "view=my"))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, b.ID, snippets[0].ID)

	// Anonymous sees only B whatever view is requested.
	for _, raw := range []string{"", "view=my", "view=all", "view=public"} {
		snippets, total, err = db.List(ctx, listQuery(t, "", raw))
		require.NoError(t, err)
		assert.Equal(t, 1, total, "raw=%q", raw)
		assert.Equal(t, b.ID, snippets[0].ID, "raw=%q", raw)
	}
}

func TestListAllIsSupersetOfMy(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "mine 1"})
	createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "mine 2", IsPublic: true})
	createTestSnippet(t, db, model.Snippet{OwnerID: "u2", Title: "theirs public", IsPublic: true})
	createTestSnippet(t, db, model.Snippet{OwnerID: "u2", Title: "theirs private"})

	mine, _, err := db.List(ctx, listQuery(t, "u1", "view=my"))
	require.NoError(t, err)
	all, _, err := db.List(ctx, listQuery(t, "u1", "view=all"))
	require.NoError(t, err)

	allIDs := make(map[string]bool, len(all))
	for _, s := range all {
		assert.True(t, s.OwnerID == "u1" || s.IsPublic)
		allIDs[s.ID] = true
	}
	for _, s := range mine {
		assert.Equal(t, "u1", s.OwnerID)
		assert.True(t, allIDs[s.ID], "view=all must contain every view=my row")
	}
	assert.Len(t, mine, 2)
	assert.Len(t, all, 3)
}

func TestSearchCannotWidenVisibility(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// A private snippet that matches the search text must stay hidden:
	// the search OR-group nests under the visibility AND term.
	createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "needle in private"})
	pub := createTestSnippet(t, db, model.Snippet{OwnerID: "u2", Title: "needle in public", IsPublic: true})

	snippets, total, err := db.List(ctx, listQuery(t, "", "search=needle"))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, pub.ID, snippets[0].ID)
}

func TestSearchMatchesTitleOrDescription(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	byTitle := createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "Binary Heap", IsPublic: true})
	byDesc := createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "other", Description: "a heap helper", IsPublic: true})
	createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "unrelated", IsPublic: true})

	snippets, total, err := db.List(ctx, listQuery(t, "", "search=HEAP"))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.ElementsMatch(t, []string{byTitle.ID, byDesc.ID}, []string{snippets[0].ID, snippets[1].ID})
}

func TestSearchWildcardsAreLiteral(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "plain title", IsPublic: true})
	withPercent := createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "100% coverage", IsPublic: true})

	snippets, total, err := db.List(ctx, listQuery(t, "", "search=100%25"))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, withPercent.ID, snippets[0].ID)
}

func TestLanguageAndTagFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	goAsync := createTestSnippet(t, db, model.Snippet{
		OwnerID: "u1", Title: "worker pool", Language: "go",
		Tags: model.TagList{"async", "workers"}, IsPublic: true,
	})
	pyUtil := createTestSnippet(t, db, model.Snippet{
		OwnerID: "u1", Title: "slugify", Language: "python",
		Tags: model.TagList{"util"}, IsPublic: true,
	})
	createTestSnippet(t, db, model.Snippet{
		OwnerID: "u1", Title: "css reset", Language: "css", IsPublic: true,
	})

	snippets, total, err := db.List(ctx, listQuery(t, "", "language=go"))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, goAsync.ID, snippets[0].ID)

	// Tag filter is an inclusive OR over the requested set.
	snippets, total, err = db.List(ctx, listQuery(t, "", "tags=async,util"))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.ElementsMatch(t, []string{goAsync.ID, pyUtil.ID}, []string{snippets[0].ID, snippets[1].ID})

	_, total, err = db.List(ctx, listQuery(t, "", "tags=missing"))
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestPaginationDisjointAndExhaustive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	titles := []string{"a", "b", "c", "d", "e"}
	for _, title := range titles {
		createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: title, IsPublic: true})
	}

	seen := make(map[string]int)
	var pages [][]model.Snippet
	for page := 1; page <= 3; page++ {
		q := listQuery(t, "", "limit=2&sortBy=title&sortOrder=asc")
		q.Page = page
		snippets, total, err := db.List(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		pages = append(pages, snippets)
		for _, s := range snippets {
			seen[s.ID]++
		}
	}

	assert.Len(t, pages[0], 2)
	assert.Len(t, pages[1], 2)
	assert.Len(t, pages[2], 1)
	assert.Len(t, seen, 5, "pages must be disjoint and cover the full set")
	for id, count := range seen {
		assert.Equal(t, 1, count, "snippet %s appeared on more than one page", id)
	}
	assert.Equal(t, "a", pages[0][0].Title)
	assert.Equal(t, "e", pages[2][0].Title)
}

func TestListSortOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "zebra", Language: "go", IsPublic: true})
	createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "apple", Language: "python", IsPublic: true})

	snippets, _, err := db.List(ctx, listQuery(t, "", "sortBy=title&sortOrder=asc"))
	require.NoError(t, err)
	require.Len(t, snippets, 2)
	assert.Equal(t, "apple", snippets[0].Title)
	assert.Equal(t, "zebra", snippets[1].Title)

	snippets, _, err = db.List(ctx, listQuery(t, "", "sortBy=language&sortOrder=desc"))
	require.NoError(t, err)
	assert.Equal(t, "python", snippets[0].Language)
}

func TestUpdateOwnerScoped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "before"})

	title := "after"
	updated, err := db.Update(ctx, s.ID, "u1", repository.SnippetUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, s.Code, updated.Code, "unspecified fields stay untouched")
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	// A foreign owner and a missing id are indistinguishable.
	_, errForeign := db.Update(ctx, s.ID, "u2", repository.SnippetUpdate{Title: &title})
	_, errMissing := db.Update(ctx, "no-such-id", "u2", repository.SnippetUpdate{Title: &title})
	assert.True(t, errors.Is(errForeign, apperror.ErrNotFound))
	assert.True(t, errors.Is(errMissing, apperror.ErrNotFound))

	// And the failed attempt changed nothing.
	got, err := db.GetByID(ctx, s.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
}

func TestDeleteOwnerScoped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Title: "doomed"})

	errForeign := db.Delete(ctx, s.ID, "u2")
	assert.True(t, errors.Is(errForeign, apperror.ErrNotFound))

	require.NoError(t, db.Delete(ctx, s.ID, "u1"))

	_, err := db.GetByID(ctx, s.ID, "u1")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	errMissing := db.Delete(ctx, s.ID, "u1")
	assert.True(t, errors.Is(errMissing, apperror.ErrNotFound))
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Language: "go", Tags: model.TagList{"async"}, Title: "one", IsPublic: true})
	createTestSnippet(t, db, model.Snippet{OwnerID: "u1", Language: "go", Tags: model.TagList{"async", "util"}, Title: "two", IsPublic: true})
	createTestSnippet(t, db, model.Snippet{OwnerID: "u2", Language: "python", Tags: model.TagList{"util"}, Title: "three"})

	// Anonymous: only the two public go snippets count.
	stats, err := db.Stats(ctx, listQuery(t, "", ""))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSnippets)
	require.Len(t, stats.TopLanguages, 1)
	assert.Equal(t, model.FacetCount{ID: "go", Count: 2}, stats.TopLanguages[0])
	require.Len(t, stats.TopTags, 2)
	assert.Equal(t, model.FacetCount{ID: "async", Count: 2}, stats.TopTags[0])
	assert.Equal(t, model.FacetCount{ID: "util", Count: 1}, stats.TopTags[1])

	// u2 with view=all additionally sees their private python snippet.
	stats, err = db.Stats(ctx, listQuery(t, "u2", "view=all"))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalSnippets)
	assert.Len(t, stats.TopLanguages, 2)
}
