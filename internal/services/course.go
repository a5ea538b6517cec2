package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/skillbridge/apiserver/internal/authz"
	"github.com/skillbridge/apiserver/internal/storage"
	"github.com/skillbridge/apiserver/internal/store"
	"github.com/skillbridge/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Optimistic writes re-read and retry this many times before giving up
// with store.ErrConflict.
const maxWriteAttempts = 3

var now = func() time.Time { return time.Now().UTC() }

// CourseRepository defines persistence operations for courses.
type CourseRepository interface {
	ListApproved(ctx context.Context) ([]types.Course, error)
	Get(ctx context.Context, id string) (types.Course, error)
	Create(ctx context.Context, course types.Course) (types.Course, error)
	Update(ctx context.Context, course types.Course) (types.Course, error)
	Delete(ctx context.Context, id string) (types.Course, error)
}

// EnrollmentRepository defines persistence operations for enrollments.
type EnrollmentRepository interface {
	Ensure(ctx context.Context, student, course primitive.ObjectID) (types.Enrollment, error)
	Get(ctx context.Context, student, course primitive.ObjectID) (types.Enrollment, error)
	ListByStudent(ctx context.Context, student primitive.ObjectID) ([]types.Enrollment, error)
	Update(ctx context.Context, enrollment types.Enrollment) (types.Enrollment, error)
	DeleteByCourse(ctx context.Context, course primitive.ObjectID) (int64, error)
}

// CreateCourseInput holds the fields an instructor may set on a new course.
type CreateCourseInput struct {
	Title       string
	Description string
	Category    string
	Price       float64
	Level       types.Level
	Duration    float64
	Syllabus    []string
}

// UpdateCourseInput holds replacement values. Empty strings and zero
// prices mean "keep the stored value".
type UpdateCourseInput struct {
	Title       string
	Description string
	Category    string
	Price       float64
}

// CourseService encapsulates course use-cases.
type CourseService struct {
	courses     CourseRepository
	enrollments EnrollmentRepository
	policy      authz.Policy
	storage     storage.ObjectStorage
	events      eventEmitter
	logger      *zap.Logger
}

func NewCourseService(courses CourseRepository, enrollments EnrollmentRepository, policy authz.Policy, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		courses:     courses,
		enrollments: enrollments,
		policy:      policy,
		events:      newEventEmitter(logger),
		logger:      logger,
	}
}

// WithEvents publishes course events through publisher.
func (s *CourseService) WithEvents(publisher EventPublisher) *CourseService {
	s.events.publisher = publisher
	return s
}

// FlushEvents waits for course events that are still being published.
func (s *CourseService) FlushEvents(ctx context.Context) error {
	return s.events.wait(ctx)
}

// WithStorage enables lesson content uploads.
func (s *CourseService) WithStorage(objects storage.ObjectStorage) *CourseService {
	s.storage = objects
	return s
}

// ListPublic returns approved courses only.
func (s *CourseService) ListPublic(ctx context.Context) ([]types.Course, error) {
	return s.courses.ListApproved(ctx)
}

// Get returns a course regardless of its approval state.
func (s *CourseService) Get(ctx context.Context, id string) (types.Course, error) {
	return s.courses.Get(ctx, id)
}

// Create stores a new unapproved course owned by instructor.
func (s *CourseService) Create(ctx context.Context, instructor types.User, input CreateCourseInput) (types.Course, error) {
	if err := s.policy.Authorize(instructor, authz.CreateCourse, primitive.NilObjectID); err != nil {
		return types.Course{}, err
	}

	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return types.Course{}, invalidInput("title is required")
	}
	if input.Price < 0 || input.Duration < 0 {
		return types.Course{}, invalidInput("price and duration must not be negative")
	}

	syllabus := input.Syllabus
	if syllabus == nil {
		syllabus = []string{}
	}

	course, err := s.courses.Create(ctx, types.Course{
		Instructor:       instructor.ID,
		Title:            input.Title,
		Description:      input.Description,
		Category:         input.Category,
		Price:            input.Price,
		Level:            input.Level,
		Duration:         input.Duration,
		Syllabus:         syllabus,
		Lessons:          []types.Lesson{},
		Reviews:          []types.Review{},
		EnrolledStudents: []primitive.ObjectID{},
		IsApproved:       false,
	})
	if err != nil {
		return types.Course{}, err
	}

	s.events.emit(ctx, types.CourseEvent{Type: types.EventCourseCreated, CourseID: course.ID.Hex(), UserID: instructor.ID.Hex()})
	return course, nil
}

// Update replaces each truthy field of input on the stored course.
func (s *CourseService) Update(ctx context.Context, id string, actor types.User, input UpdateCourseInput) (types.Course, error) {
	return s.mutate(ctx, id, func(course *types.Course) error {
		if err := s.policy.Authorize(actor, authz.EditCourse, course.Instructor); err != nil {
			return err
		}
		if input.Title != "" {
			course.Title = input.Title
		}
		if input.Description != "" {
			course.Description = input.Description
		}
		if input.Category != "" {
			course.Category = input.Category
		}
		if input.Price != 0 {
			course.Price = input.Price
		}
		return nil
	})
}

// Delete removes the course along with its enrollments and uploaded lesson
// content. Cleanup failures are logged, not returned.
func (s *CourseService) Delete(ctx context.Context, id string, actor types.User) error {
	course, err := s.courses.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(actor, authz.DeleteCourse, course.Instructor); err != nil {
		return err
	}

	course, err = s.courses.Delete(ctx, id)
	if err != nil {
		return err
	}

	if removed, err := s.enrollments.DeleteByCourse(ctx, course.ID); err != nil {
		s.logger.Warn("failed to remove enrollments", zap.String("course_id", course.ID.Hex()), zap.Error(err))
	} else if removed > 0 {
		s.logger.Info("enrollments removed", zap.String("course_id", course.ID.Hex()), zap.Int64("count", removed))
	}
	s.removeLessonObjects(ctx, course)

	s.events.emit(ctx, types.CourseEvent{Type: types.EventCourseDeleted, CourseID: course.ID.Hex(), UserID: actor.ID.Hex()})
	return nil
}

// Enroll adds student to the course's enrolled set and records an
// enrollment. A second attempt fails with ErrAlreadyEnrolled and leaves the
// set unchanged.
func (s *CourseService) Enroll(ctx context.Context, id string, student types.User) error {
	course, err := s.mutate(ctx, id, func(course *types.Course) error {
		if err := s.policy.Authorize(student, authz.EnrollCourse, course.Instructor); err != nil {
			return err
		}
		if lo.Contains(course.EnrolledStudents, student.ID) {
			return ErrAlreadyEnrolled
		}
		course.EnrolledStudents = append(course.EnrolledStudents, student.ID)
		return nil
	})
	if err != nil {
		return err
	}

	// progress tracking is recreated lazily if this write is lost
	if _, err := s.enrollments.Ensure(ctx, student.ID, course.ID); err != nil {
		s.logger.Warn("failed to record enrollment",
			zap.String("course_id", course.ID.Hex()),
			zap.String("student_id", student.ID.Hex()),
			zap.Error(err),
		)
	}

	s.events.emit(ctx, types.CourseEvent{Type: types.EventCourseEnrolled, CourseID: course.ID.Hex(), UserID: student.ID.Hex()})
	return nil
}

// AddReview appends a review and recomputes the aggregate rating. The
// rating is not range checked.
func (s *CourseService) AddReview(ctx context.Context, id string, author types.User, rating float64, comment string) error {
	course, err := s.mutate(ctx, id, func(course *types.Course) error {
		if err := s.policy.Authorize(author, authz.ReviewCourse, course.Instructor); err != nil {
			return err
		}
		course.Reviews = append(course.Reviews, types.Review{
			User:      author.ID,
			Name:      author.Name,
			Rating:    rating,
			Comment:   comment,
			CreatedAt: now(),
		})
		mean := averageRating(course.Reviews)
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			return invalidInput("rating %v cannot be averaged", rating)
		}
		course.NumReviews = len(course.Reviews)
		course.Rating = mean
		return nil
	})
	if err != nil {
		return err
	}

	s.events.emit(ctx, types.CourseEvent{
		Type:     types.EventCourseReviewed,
		CourseID: course.ID.Hex(),
		UserID:   author.ID.Hex(),
		Rating:   rating,
	})
	return nil
}

// SetApproval is the admin flow that publishes or hides a course.
func (s *CourseService) SetApproval(ctx context.Context, id string, admin types.User, approved bool) (types.Course, error) {
	course, err := s.mutate(ctx, id, func(course *types.Course) error {
		if err := s.policy.Authorize(admin, authz.ApproveCourse, course.Instructor); err != nil {
			return err
		}
		course.IsApproved = approved
		return nil
	})
	if err != nil {
		return types.Course{}, err
	}

	if approved {
		s.events.emit(ctx, types.CourseEvent{Type: types.EventCourseApproved, CourseID: course.ID.Hex(), UserID: admin.ID.Hex()})
	}
	return course, nil
}

// mutate runs a read-modify-write on one course, retrying when the version
// check fails. fn may be called more than once.
func (s *CourseService) mutate(ctx context.Context, id string, fn func(course *types.Course) error) (types.Course, error) {
	for attempt := 1; ; attempt++ {
		course, err := s.courses.Get(ctx, id)
		if err != nil {
			return types.Course{}, err
		}
		if err := fn(&course); err != nil {
			return types.Course{}, err
		}

		updated, err := s.courses.Update(ctx, course)
		if errors.Is(err, store.ErrConflict) && attempt < maxWriteAttempts {
			s.logger.Debug("course write conflict, retrying", zap.String("course_id", id), zap.Int("attempt", attempt))
			continue
		}
		return updated, err
	}
}

func (s *CourseService) removeLessonObjects(ctx context.Context, course types.Course) {
	if s.storage == nil {
		return
	}
	for _, lesson := range course.Lessons {
		if lesson.StorageKey == "" {
			continue
		}
		if err := s.storage.Delete(ctx, lesson.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("failed to remove lesson content", zap.String("key", lesson.StorageKey), zap.Error(err))
		}
	}
}

// averageRating is a running mean, so large ratings never overflow an
// intermediate sum.
func averageRating(reviews []types.Review) float64 {
	var mean float64
	for i, r := range reviews {
		n := float64(i + 1)
		mean += r.Rating/n - mean/n
	}
	return mean
}
