package services

import (
	"context"
	"errors"
	"math"

	"github.com/samber/lo"
	"github.com/skillbridge/apiserver/internal/store"
	"github.com/skillbridge/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EnrollmentService tracks a student's progress through enrolled courses.
type EnrollmentService struct {
	enrollments EnrollmentRepository
	courses     CourseRepository
	logger      *zap.Logger
}

func NewEnrollmentService(enrollments EnrollmentRepository, courses CourseRepository, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{enrollments: enrollments, courses: courses, logger: logger}
}

func (s *EnrollmentService) List(ctx context.Context, student types.User) ([]types.Enrollment, error) {
	return s.enrollments.ListByStudent(ctx, student.ID)
}

// CompleteLesson marks a lesson done and recomputes progress. Progress is
// the rounded share of the course's current lessons that are completed;
// reaching 100 issues the certificate.
func (s *EnrollmentService) CompleteLesson(ctx context.Context, student types.User, courseID, lessonID string) (types.Enrollment, error) {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return types.Enrollment{}, err
	}

	lessonOID, err := store.ObjectID(lessonID)
	if err != nil {
		return types.Enrollment{}, err
	}
	if !lo.ContainsBy(course.Lessons, func(l types.Lesson) bool { return l.ID == lessonOID }) {
		return types.Enrollment{}, store.ErrNotFound
	}

	for attempt := 1; ; attempt++ {
		enrollment, err := s.loadEnrollment(ctx, student, course)
		if err != nil {
			return types.Enrollment{}, err
		}

		hadCertificate := enrollment.CertificateGenerated
		if !lo.Contains(enrollment.CompletedLessons, lessonOID) {
			enrollment.CompletedLessons = append(enrollment.CompletedLessons, lessonOID)
		}
		enrollment.Progress = progress(enrollment.CompletedLessons, course.Lessons)
		enrollment.CertificateGenerated = enrollment.Progress == 100

		updated, err := s.enrollments.Update(ctx, enrollment)
		if errors.Is(err, store.ErrConflict) && attempt < maxWriteAttempts {
			continue
		}
		if err != nil {
			return types.Enrollment{}, err
		}

		if updated.CertificateGenerated && !hadCertificate {
			s.logger.Info("certificate issued", zap.String("student_id", student.ID.Hex()), zap.String("course_id", course.ID.Hex()))
		}
		return updated, nil
	}
}

// loadEnrollment returns the student's record, recreating it when the
// course lists the student but the record write was lost.
func (s *EnrollmentService) loadEnrollment(ctx context.Context, student types.User, course types.Course) (types.Enrollment, error) {
	enrollment, err := s.enrollments.Get(ctx, student.ID, course.ID)
	if err == nil {
		return enrollment, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Enrollment{}, err
	}
	if !lo.Contains(course.EnrolledStudents, student.ID) {
		return types.Enrollment{}, ErrNotEnrolled
	}
	return s.enrollments.Ensure(ctx, student.ID, course.ID)
}

func progress(completed []primitive.ObjectID, lessons []types.Lesson) int {
	if len(lessons) == 0 {
		return 0
	}
	done := lo.CountBy(lessons, func(l types.Lesson) bool { return lo.Contains(completed, l.ID) })
	return int(math.Round(100 * float64(done) / float64(len(lessons))))
}
