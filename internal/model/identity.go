package model

// UserID identifies a registered user account
type UserID string

// IdentityKind distinguishes the two identity channels
type IdentityKind string

const (
	IdentityKindUser  IdentityKind = "user"
	IdentityKindGuest IdentityKind = "guest"
)

// Identity is the tagged union binding a participant to exactly one
// identity channel: a registered user ID or a guest name. Construct via
// UserIdentity or GuestIdentity so "exactly one" holds by construction.
type Identity struct {
	Kind      IdentityKind
	UserID    UserID `json:",omitempty"`
	GuestName string `json:",omitempty"`
}

// UserIdentity creates an identity for a registered user
func UserIdentity(id UserID) Identity {
	return Identity{Kind: IdentityKindUser, UserID: id}
}

// GuestIdentity creates an identity for an anonymous guest
func GuestIdentity(name string) Identity {
	return Identity{Kind: IdentityKindGuest, GuestName: name}
}

// Key returns a stable string key for the identity. At most one active
// participant per (race, identity key) may exist at a time.
func (i Identity) Key() string {
	if i.Kind == IdentityKindUser {
		return "user:" + string(i.UserID)
	}
	return "guest:" + i.GuestName
}

// IsZero reports whether the identity is unset
func (i Identity) IsZero() bool {
	return i.Kind == ""
}
