// Package service contains the business logic layer.
//
// Handlers parse HTTP and delegate here; this layer validates, normalizes,
// and enforces ownership, then talks to the repository interface. It is the
// single copy of the rules both transport adapters share.
//
// The read path is permissive (bad list parameters fall back to defaults in
// the query package); the write path is strict (invalid body fields are
// rejected). That asymmetry is intentional and part of the API contract.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/rashik/snipvault/internal/apperror"
	"github.com/rashik/snipvault/internal/model"
	"github.com/rashik/snipvault/internal/query"
	"github.com/rashik/snipvault/internal/repository"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// SnippetService orchestrates snippet operations.
type SnippetService struct {
	repo   repository.SnippetRepository
	logger *slog.Logger
}

// NewSnippetService wires the service to a repository implementation.
func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		logger: logger,
	}
}

// CreateInput carries the fields of a create request.
type CreateInput struct {
	Title       string
	Description string
	Language    string
	Code        string
	Tags        []string
	IsPublic    bool
}

// UpdateInput carries the fields of a partial update. Nil means "leave the
// stored value alone"; a non-nil pointer is validated strictly.
type UpdateInput struct {
	Title       *string
	Description *string
	Language    *string
	Code        *string
	Tags        *[]string
	IsPublic    *bool
}

// Create validates and stores a new snippet owned by the given identity.
// Language and tags are lower-cased before storage so later filtering is
// case-insensitive by construction.
func (s *SnippetService) Create(ctx context.Context, ident model.Identity, in CreateInput) (*model.Snippet, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title cannot exceed %d characters", MaxTitleLength))
	}

	description := strings.TrimSpace(in.Description)
	if len(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description cannot exceed %d characters", MaxDescriptionLength))
	}

	language := strings.ToLower(strings.TrimSpace(in.Language))
	if language == "" {
		return nil, apperror.ValidationFailed("language", "programming language is required")
	}

	if in.Code == "" {
		return nil, apperror.ValidationFailed("code", "code content is required")
	}

	snippet := &model.Snippet{
		OwnerID:     ident.ID,
		OwnerEmail:  ident.Email,
		Title:       title,
		Description: description,
		Language:    language,
		Code:        in.Code,
		Tags:        normalizeTags(in.Tags),
		IsPublic:    in.IsPublic,
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		return nil, s.storeErr("create", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("owner", snippet.OwnerID),
		slog.String("language", snippet.Language),
	)

	return snippet, nil
}

// Get retrieves one snippet under the read visibility rule. requesterID is
// empty for anonymous callers, who can only see public snippets.
func (s *SnippetService) Get(ctx context.Context, requesterID, id string) (*model.Snippet, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	snippet, err := s.repo.GetByID(ctx, id, requesterID)
	if err != nil {
		return nil, s.storeErr("get", err)
	}

	return snippet, nil
}

// List runs the resolved list query and returns the page plus its
// pagination envelope.
func (s *SnippetService) List(ctx context.Context, requesterID string, p query.Params) ([]model.Snippet, query.Pagination, error) {
	q := p.Resolve(requesterID)

	snippets, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, query.Pagination{}, s.storeErr("list", err)
	}

	return snippets, query.NewPagination(q.Page, q.Limit, total), nil
}

// Update applies a partial update to a snippet the caller owns. Supplied
// fields are validated and normalized like Create; everything else is left
// untouched. The repository enforces ownership atomically.
func (s *SnippetService) Update(ctx context.Context, ownerID, id string, in UpdateInput) (*model.Snippet, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var upd repository.SnippetUpdate

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "title cannot be empty")
		}
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("title cannot exceed %d characters", MaxTitleLength))
		}
		upd.Title = &title
	}

	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if len(description) > MaxDescriptionLength {
			return nil, apperror.ValidationFailed("description",
				fmt.Sprintf("description cannot exceed %d characters", MaxDescriptionLength))
		}
		upd.Description = &description
	}

	if in.Language != nil {
		language := strings.ToLower(strings.TrimSpace(*in.Language))
		if language == "" {
			return nil, apperror.ValidationFailed("language", "language cannot be empty")
		}
		upd.Language = &language
	}

	if in.Code != nil {
		if *in.Code == "" {
			return nil, apperror.ValidationFailed("code", "code cannot be empty")
		}
		upd.Code = in.Code
	}

	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		upd.Tags = &tags
	}

	upd.IsPublic = in.IsPublic

	if upd.Empty() {
		return nil, apperror.ValidationFailed("body", "at least one field must be provided")
	}

	snippet, err := s.repo.Update(ctx, id, ownerID, upd)
	if err != nil {
		return nil, s.storeErr("update", err)
	}

	s.logger.Info("snippet updated",
		slog.String("id", snippet.ID),
		slog.String("owner", ownerID),
	)

	return snippet, nil
}

// Delete permanently removes a snippet the caller owns.
func (s *SnippetService) Delete(ctx context.Context, ownerID, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return s.storeErr("delete", err)
	}

	s.logger.Info("snippet deleted",
		slog.String("id", id),
		slog.String("owner", ownerID),
	)

	return nil
}

// Stats aggregates the snippets visible under the same rules as List.
func (s *SnippetService) Stats(ctx context.Context, requesterID string, p query.Params) (*model.Stats, error) {
	stats, err := s.repo.Stats(ctx, p.Resolve(requesterID))
	if err != nil {
		return nil, s.storeErr("stats", err)
	}
	return stats, nil
}

// validateID rejects identifiers that cannot be store-generated ids, so a
// malformed id is a 400 rather than a 404.
func validateID(id string) error {
	if _, err := xid.FromString(id); err != nil {
		return apperror.ValidationFailed("id", "invalid snippet id")
	}
	return nil
}

// normalizeTags trims and lower-cases each tag and drops empty entries.
// Order is preserved; duplicates are kept as supplied.
func normalizeTags(tags []string) model.TagList {
	normalized := make(model.TagList, 0, len(tags))
	for _, tag := range tags {
		if t := strings.ToLower(strings.TrimSpace(tag)); t != "" {
			normalized = append(normalized, t)
		}
	}
	return normalized
}

// storeErr passes domain errors through untouched and converts unexpected
// store failures into a retryable error after logging the detail. Internal
// error text never reaches the client.
func (s *SnippetService) storeErr(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error("snippet store failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.Unavailable("snippet store unavailable")
}
