package model

// Role classifies what a user account may do. Stored as text on the user row
// and copied into every session created for the account.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleInvalid Role = "invalid"
)

// ParseRole maps stored text onto a Role. Anything unrecognized becomes
// RoleInvalid rather than an error, so a corrupt row cannot grant access.
func ParseRole(s string) Role {
	switch s {
	case "user":
		return RoleUser
	case "admin":
		return RoleAdmin
	}
	return RoleInvalid
}

// Admin reports whether the role passes the administrative gate.
func (r Role) Admin() bool { return r == RoleAdmin }

// User is one account row. PasswordHash never leaves the store and service
// layers. The two UpdatedAt fields are unix-millisecond markers clients poll
// to decide whether their contact lists are stale.
type User struct {
	ID               uint32 `db:"id" json:"user_id"`
	Username         string `db:"username" json:"username"`
	Role             Role   `db:"role" json:"role"`
	AvatarURL        string `db:"avatar_url" json:"avatar_url"`
	PasswordHash     string `db:"password_hash" json:"-"`
	FriendsUpdatedAt int64  `db:"friends_updated_at" json:"friends_updated_at"`
	GroupsUpdatedAt  int64  `db:"groups_updated_at" json:"groups_updated_at"`
}

// Summary strips the fields private to the account owner.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// UserSummary is the public view of an account used by friend and member
// listings.
type UserSummary struct {
	ID        uint32 `db:"id" json:"user_id"`
	Username  string `db:"username" json:"username"`
	AvatarURL string `db:"avatar_url" json:"avatar_url"`
}
