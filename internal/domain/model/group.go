package model

// Group is a named chat room. Membership lives in its own relation; the
// creator is inserted as the first member when the group is made.
type Group struct {
	ID        uint32 `db:"id" json:"group_id"`
	Name      string `db:"name" json:"name"`
	CreatorID uint32 `db:"creator_id" json:"creator_id"`
}
