package models

// GroupType classifies a group's lifecycle rules.
type GroupType string

const (
	// GroupTypePersonal marks the single-member group every user gets from
	// the account migration. Personal groups can never be updated, deleted,
	// or left.
	GroupTypePersonal GroupType = "personal"

	// GroupTypeShared marks a group created through the API. Shared groups
	// have role-gated mutation and must always keep at least one admin.
	GroupTypeShared GroupType = "shared"
)

// Group represents a shared or personal expense group.
// The Type field is immutable once the group is created.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name (1-100 characters, trimmed).
	Name string

	// Description is optional free text (up to 500 characters, trimmed).
	Description string

	// Type is "personal" or "shared"; it never changes after creation.
	Type GroupType

	// CreatedBy is the ID of the user who created the group.
	CreatedBy string

	// IsActive is false once the group has been soft-deleted.
	IsActive bool

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last group change.
	UpdatedAt int64
}

// GroupSummary is a group enriched for list views with the caller's
// relationship to it.
type GroupSummary struct {
	Group

	// MemberCount is the number of active memberships.
	MemberCount int

	// YourRole is the caller's role in this group.
	YourRole Role
}

// GroupDetails is a group enriched with its full member roster.
type GroupDetails struct {
	Group

	// Members is the active roster, admins first then by join time.
	Members []Member

	// MemberCount is len(Members), kept explicit for the wire payload.
	MemberCount int

	// YourRole is the caller's role in this group.
	YourRole Role
}
