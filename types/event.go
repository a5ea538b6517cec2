package types

import "time"

// EventType names a course domain event.
type EventType string

const (
	EventCourseCreated  EventType = "course.created"
	EventCourseApproved EventType = "course.approved"
	EventCourseDeleted  EventType = "course.deleted"
	EventCourseEnrolled EventType = "course.enrolled"
	EventCourseReviewed EventType = "course.reviewed"
)

// CourseEvent is published to the message broker after a course changes.
type CourseEvent struct {
	// Type is the kind of change.
	Type EventType `json:"type"`

	// CourseID is the hex id of the affected course.
	CourseID string `json:"courseId"`

	// UserID is the hex id of the user who triggered the change.
	UserID string `json:"userId"`

	// Rating is the submitted rating for course.reviewed events.
	Rating float64 `json:"rating,omitempty"`

	// OccurredAt is when the change was persisted.
	OccurredAt time.Time `json:"occurredAt"`
}
