package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Level is the difficulty level of a course.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// ContentType describes how a lesson's content is delivered.
type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentPDF   ContentType = "pdf"
	ContentText  ContentType = "text"
)

// Course represents a course offered on the marketplace.
// Lessons and reviews are embedded in the course document.
type Course struct {
	// ID is the unique identifier of the course.
	ID primitive.ObjectID `json:"_id" bson:"_id,omitempty"`

	// Instructor references the user who created the course.
	Instructor primitive.ObjectID `json:"instructor" bson:"instructor"`

	// Title is the human-readable name of the course.
	Title string `json:"title" bson:"title"`

	// Category groups the course for browsing (e.g., "Programming").
	Category string `json:"category" bson:"category"`

	// Level is the optional difficulty level.
	Level Level `json:"level,omitempty" bson:"level,omitempty"`

	// Duration is the expected length of the course in hours.
	Duration float64 `json:"duration,omitempty" bson:"duration,omitempty"`

	// Description is the long-form course description.
	Description string `json:"description" bson:"description"`

	// Price is the course price. Zero means free.
	Price float64 `json:"price" bson:"price"`

	// Syllabus is the ordered list of syllabus entries.
	Syllabus []string `json:"syllabus" bson:"syllabus"`

	// Lessons is the ordered list of embedded lessons.
	Lessons []Lesson `json:"lessons" bson:"lessons"`

	// Reviews is the append-only list of embedded reviews.
	Reviews []Review `json:"reviews" bson:"reviews"`

	// Rating is the arithmetic mean of all review ratings.
	// It is recomputed on every new review.
	Rating float64 `json:"rating" bson:"rating"`

	// NumReviews is the number of reviews attached to the course.
	NumReviews int `json:"numReviews" bson:"num_reviews"`

	// IsApproved gates public visibility. New courses start unapproved.
	IsApproved bool `json:"isApproved" bson:"is_approved"`

	// EnrolledStudents is the set of enrolled student ids.
	EnrolledStudents []primitive.ObjectID `json:"enrolledStudents" bson:"enrolled_students"`

	// Version is the optimistic concurrency token. Every write
	// matches on it and increments it.
	Version int64 `json:"__v" bson:"version"`

	// CreatedAt is the timestamp when the course was created.
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the course.
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// Lesson is a unit of course content.
type Lesson struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	Title       string             `json:"title" bson:"title"`
	ContentType ContentType        `json:"contentType" bson:"content_type"`
	// Content is a URL, inline text, or the object key of uploaded content.
	Content string `json:"content" bson:"content"`
	// StorageKey is set when the content lives in object storage.
	StorageKey string `json:"storageKey,omitempty" bson:"storage_key,omitempty"`
}

// Review is a student's rating and comment on a course.
type Review struct {
	User      primitive.ObjectID `json:"user" bson:"user"`
	Name      string             `json:"name" bson:"name"`
	Rating    float64            `json:"rating" bson:"rating"`
	Comment   string             `json:"comment" bson:"comment"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}
