package repository

import (
	"context"

	"github.com/rashik/snipvault/internal/model"
	"github.com/rashik/snipvault/internal/query"
)

// SnippetUpdate carries the fields of a partial update. A nil pointer means
// "leave the stored value untouched". Values are expected pre-validated and
// pre-normalized by the service.
type SnippetUpdate struct {
	Title       *string
	Description *string
	Language    *string
	Code        *string
	Tags        *model.TagList
	IsPublic    *bool
}

// Empty reports whether the update would change nothing.
func (u SnippetUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Language == nil &&
		u.Code == nil && u.Tags == nil && u.IsPublic == nil
}

// SnippetRepository is the storage contract for snippets.
//
// GetByID applies the same visibility rule as listing: a private snippet is
// returned only when requesterID matches its owner. Update and Delete are
// owner-scoped single conditional statements; a row owned by someone else
// yields the same not-found error as a missing id.
type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id, requesterID string) (*model.Snippet, error)
	List(ctx context.Context, q query.ListQuery) ([]model.Snippet, int, error)
	Update(ctx context.Context, id, ownerID string, upd SnippetUpdate) (*model.Snippet, error)
	Delete(ctx context.Context, id, ownerID string) error
	Stats(ctx context.Context, q query.ListQuery) (*model.Stats, error)
}
