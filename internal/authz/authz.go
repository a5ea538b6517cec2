// Package authz resolves roles to capabilities and decides whether an
// identity may perform an action on a course.
package authz

import (
	"errors"

	"github.com/skillbridge/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrForbidden is returned when an identity lacks the required role,
// capability, or ownership.
var ErrForbidden = errors.New("forbidden")

// Capability is a named permission.
type Capability string

const (
	CreateCourse      Capability = "create_course"
	EditCourse        Capability = "edit_course"
	DeleteCourse      Capability = "delete_course"
	ManageLessons     Capability = "manage_lessons"
	EnrollCourse      Capability = "enroll_course"
	ReviewCourse      Capability = "review_course"
	ApproveCourse     Capability = "approve_course"
	ApproveInstructor Capability = "approve_instructor"
)

var capabilities = map[types.Role]map[Capability]bool{
	types.RoleStudent: {
		EnrollCourse: true,
		ReviewCourse: true,
	},
	types.RoleInstructor: {
		CreateCourse:  true,
		EditCourse:    true,
		DeleteCourse:  true,
		ManageLessons: true,
	},
	types.RoleAdmin: {
		EditCourse:        true,
		DeleteCourse:      true,
		ManageLessons:     true,
		ApproveCourse:     true,
		ApproveInstructor: true,
	},
}

// Capabilities that are checked even in lenient mode.
var alwaysGated = map[Capability]bool{
	CreateCourse:      true,
	ManageLessons:     true,
	ApproveCourse:     true,
	ApproveInstructor: true,
}

// Capabilities that require ownership of the course unless the caller is an
// admin. ManageLessons is always owner-checked, the others only in strict mode.
var ownerScoped = map[Capability]bool{
	EditCourse:    true,
	DeleteCourse:  true,
	ManageLessons: true,
}

// Can reports whether role grants capability.
func Can(role types.Role, capability Capability) bool {
	return capabilities[role][capability]
}

// RequireRole passes only when the identity has exactly the expected role.
func RequireRole(user types.User, role types.Role) error {
	if user.Role != role {
		return ErrForbidden
	}
	return nil
}

// Policy decides access for course operations.
//
// In lenient mode course edit, delete, enroll and review only need an
// authenticated identity. Strict mode gates every capability, scopes edits
// to the owning instructor, and requires instructors to be approved before
// creating courses.
type Policy struct {
	Strict bool
}

// Authorize checks capability for user. owner is the course's instructor,
// or the zero id when the action is not tied to an existing course.
func (p Policy) Authorize(user types.User, capability Capability, owner primitive.ObjectID) error {
	if !p.Strict && !alwaysGated[capability] {
		return nil
	}
	if !Can(user.Role, capability) {
		return ErrForbidden
	}

	if p.Strict && capability == CreateCourse && user.Role == types.RoleInstructor && !user.IsApproved {
		return ErrForbidden
	}

	if ownerScoped[capability] && (p.Strict || capability == ManageLessons) {
		if user.Role != types.RoleAdmin && !owner.IsZero() && owner != user.ID {
			return ErrForbidden
		}
	}
	return nil
}
