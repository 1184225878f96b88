package models

import "time"

// Admin is the single credential record allowed to modify the journal.
type Admin struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`

	// LegacyPassword is the bcrypt hash field written by the Node seed script.
	LegacyPassword string `bson:"password,omitempty" json:"-"`
}

// Hash returns the stored password hash, falling back to the legacy field.
func (a *Admin) Hash() string {
	if a.PasswordHash != "" {
		return a.PasswordHash
	}
	return a.LegacyPassword
}
