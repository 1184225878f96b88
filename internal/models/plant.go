package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTitle is shown for entries stored before titles existed.
const DefaultTitle = "Growth Update"

// Plant is one dated photo entry on the growth timeline.
type Plant struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title,omitempty" json:"title,omitempty"`
	Image       string             `bson:"image" json:"image"`
	Description string             `bson:"description" json:"description"`
	Date        time.Time          `bson:"date" json:"date"`
	Comments    []Comment          `bson:"comments" json:"comments"`
}

// Comment is a visitor note attached to a plant entry.
type Comment struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Text string             `bson:"text" json:"text"`
	Date time.Time          `bson:"date" json:"date"`
}

// DisplayTitle returns the title or the fallback used for legacy entries.
func (p *Plant) DisplayTitle() string {
	if p.Title == "" {
		return DefaultTitle
	}
	return p.Title
}

// Normalize makes Comments non-nil so the JSON form is always an array.
func (p *Plant) Normalize() {
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

// PlantUpdate carries the fields of a partial update. Nil fields stay unchanged.
type PlantUpdate struct {
	Title       *string
	Description *string
	Date        *time.Time
	Image       *string
}

// IsEmpty reports whether the update changes nothing.
func (u PlantUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Date == nil && u.Image == nil
}
