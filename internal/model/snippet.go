// Package model defines the data structures used throughout the application.
package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// TagList is an ordered list of lower-cased tags, stored as a JSON array in a
// single TEXT column. Duplicates are kept as supplied; order is preserved.
type TagList []string

// Value serializes the tag list for storage. A nil list is stored as "[]"
// so the column is never NULL and json_each always has something to scan.
func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		t = TagList{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("model: encoding tags: %w", err)
	}
	return string(b), nil
}

// Scan deserializes the JSON tag column back into the list.
func (t *TagList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = TagList{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), t)
	case []byte:
		return json.Unmarshal(v, t)
	default:
		return fmt.Errorf("model: cannot scan %T into TagList", src)
	}
}

// Snippet is a stored unit of code with its metadata.
//
// OwnerID is stamped from the resolved identity at creation and never
// changes. OwnerEmail is a denormalized copy kept for display on public
// snippets; it is not authoritative. A snippet with IsPublic=false is
// visible to its owner only.
type Snippet struct {
	ID          string    `json:"id"          db:"id"`
	OwnerID     string    `json:"ownerId"     db:"owner_id"`
	OwnerEmail  string    `json:"ownerEmail"  db:"owner_email"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Language    string    `json:"language"    db:"language"` // always lower-case in storage
	Code        string    `json:"code"        db:"code"`
	Tags        TagList   `json:"tags"        db:"tags"` // always lower-case in storage
	IsPublic    bool      `json:"isPublic"    db:"is_public"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
