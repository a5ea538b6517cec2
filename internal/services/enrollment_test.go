package services

import (
	"context"
	"testing"

	"github.com/skillbridge/apiserver/internal/store"
	"github.com/skillbridge/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedCourseWithLessons(t *testing.T, f *courseFixture, n int) types.Course {
	t.Helper()
	lessons := make([]types.Lesson, n)
	for i := range lessons {
		lessons[i] = types.Lesson{ID: primitive.NewObjectID(), Title: "lesson", ContentType: types.ContentText, Content: "x"}
	}
	return f.courses.put(types.Course{
		Instructor:       f.instructor.ID,
		Title:            "Go",
		IsApproved:       true,
		Lessons:          lessons,
		EnrolledStudents: []primitive.ObjectID{},
	})
}

func TestCompleteLessonTracksProgress(t *testing.T) {
	f := newCourseFixture(t, false)
	service := NewEnrollmentService(f.enrollments, f.courses, nil)
	course := seedCourseWithLessons(t, f, 3)
	require.NoError(t, f.service.Enroll(context.Background(), course.ID.Hex(), f.student))

	enrollment, err := service.CompleteLesson(context.Background(), f.student, course.ID.Hex(), course.Lessons[0].ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 33, enrollment.Progress)
	assert.False(t, enrollment.CertificateGenerated)

	// completing the same lesson twice does not double count
	enrollment, err = service.CompleteLesson(context.Background(), f.student, course.ID.Hex(), course.Lessons[0].ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 33, enrollment.Progress)
	assert.Len(t, enrollment.CompletedLessons, 1)

	_, err = service.CompleteLesson(context.Background(), f.student, course.ID.Hex(), course.Lessons[1].ID.Hex())
	require.NoError(t, err)
	enrollment, err = service.CompleteLesson(context.Background(), f.student, course.ID.Hex(), course.Lessons[2].ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 100, enrollment.Progress)
	assert.True(t, enrollment.CertificateGenerated)

	list, err := service.List(context.Background(), f.student)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 100, list[0].Progress)
}

func TestCompleteLessonRequiresEnrollment(t *testing.T) {
	f := newCourseFixture(t, false)
	service := NewEnrollmentService(f.enrollments, f.courses, nil)
	course := seedCourseWithLessons(t, f, 1)

	_, err := service.CompleteLesson(context.Background(), f.student, course.ID.Hex(), course.Lessons[0].ID.Hex())
	assert.ErrorIs(t, err, ErrNotEnrolled)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompleteLessonRecreatesLostRecord(t *testing.T) {
	f := newCourseFixture(t, false)
	service := NewEnrollmentService(f.enrollments, f.courses, nil)
	course := seedCourseWithLessons(t, f, 2)

	f.enrollments.ensureErr = errBrokerDown
	require.NoError(t, f.service.Enroll(context.Background(), course.ID.Hex(), f.student))
	f.enrollments.ensureErr = nil

	enrollment, err := service.CompleteLesson(context.Background(), f.student, course.ID.Hex(), course.Lessons[1].ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 50, enrollment.Progress)
}

func TestCompleteLessonUnknownLesson(t *testing.T) {
	f := newCourseFixture(t, false)
	service := NewEnrollmentService(f.enrollments, f.courses, nil)
	course := seedCourseWithLessons(t, f, 1)
	require.NoError(t, f.service.Enroll(context.Background(), course.ID.Hex(), f.student))

	_, err := service.CompleteLesson(context.Background(), f.student, course.ID.Hex(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = service.CompleteLesson(context.Background(), f.student, course.ID.Hex(), "bogus")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProgress(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	lessons := []types.Lesson{{ID: a}, {ID: b}}

	assert.Equal(t, 0, progress(nil, nil))
	assert.Equal(t, 0, progress(nil, lessons))
	assert.Equal(t, 50, progress([]primitive.ObjectID{a}, lessons))
	// completions of removed lessons are ignored
	assert.Equal(t, 50, progress([]primitive.ObjectID{a, primitive.NewObjectID()}, lessons))
	assert.Equal(t, 100, progress([]primitive.ObjectID{b, a}, lessons))
}
