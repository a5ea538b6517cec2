package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Enrollment links a student to a course and tracks their progress.
// There is exactly one enrollment per (student, course) pair.
type Enrollment struct {
	// ID is the unique identifier of the enrollment.
	ID primitive.ObjectID `json:"_id" bson:"_id,omitempty"`

	// Student references the enrolled user.
	Student primitive.ObjectID `json:"student" bson:"student"`

	// Course references the course the student enrolled in.
	Course primitive.ObjectID `json:"course" bson:"course"`

	// Progress is the completion percentage, from 0 to 100.
	Progress int `json:"progress" bson:"progress"`

	// CompletedLessons is the set of lesson ids the student completed.
	CompletedLessons []primitive.ObjectID `json:"completedLessons" bson:"completed_lessons"`

	// CertificateGenerated is set once progress reaches 100.
	CertificateGenerated bool `json:"certificateGenerated" bson:"certificate_generated"`

	// Version is the optimistic concurrency token.
	Version int64 `json:"__v" bson:"version"`

	// CreatedAt is the timestamp when the student enrolled.
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`

	// UpdatedAt is the timestamp of the most recent progress update.
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}
