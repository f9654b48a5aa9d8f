package model

// Identity is the verified user identity resolved from a bearer token by the
// external identity provider. The service never creates or stores users; it
// only consumes identities.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"` // may be empty if the provider hides it
}

// Stats summarises the snippets visible to a caller.
// The _id field name mirrors the aggregation output of the public API.
type Stats struct {
	TotalSnippets int          `json:"totalSnippets"`
	TopLanguages  []FacetCount `json:"topLanguages"`
	TopTags       []FacetCount `json:"topTags"`
}

// FacetCount is one bucket of a grouped count (a language or a tag).
type FacetCount struct {
	ID    string `json:"_id"   db:"id"`
	Count int    `json:"count" db:"count"`
}
