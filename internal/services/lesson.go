package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/skillbridge/apiserver/internal/authz"
	"github.com/skillbridge/apiserver/internal/storage"
	"github.com/skillbridge/apiserver/internal/store"
	"github.com/skillbridge/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// LessonUpload is a file attached to a new lesson.
type LessonUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AddLessonInput describes a lesson to append. Content is used as-is unless
// Upload is set, in which case it is replaced by the stored object key.
type AddLessonInput struct {
	Title       string
	ContentType types.ContentType
	Content     string
	Upload      *LessonUpload
}

// AddLesson appends a lesson to the course, uploading its content to object
// storage first when a file is attached.
func (s *CourseService) AddLesson(ctx context.Context, id string, actor types.User, input AddLessonInput) (types.Course, error) {
	course, err := s.courses.Get(ctx, id)
	if err != nil {
		return types.Course{}, err
	}
	if err := s.policy.Authorize(actor, authz.ManageLessons, course.Instructor); err != nil {
		return types.Course{}, err
	}

	lesson, err := s.buildLesson(input)
	if err != nil {
		return types.Course{}, err
	}

	if input.Upload != nil {
		lesson.StorageKey = storage.LessonKey(course.ID.Hex(), input.Upload.Filename)
		lesson.Content = lesson.StorageKey
		if err := s.storage.Put(ctx, lesson.StorageKey, input.Upload.Body, input.Upload.Size, input.Upload.ContentType); err != nil {
			return types.Course{}, err
		}
	}

	updated, err := s.mutate(ctx, id, func(course *types.Course) error {
		if err := s.policy.Authorize(actor, authz.ManageLessons, course.Instructor); err != nil {
			return err
		}
		course.Lessons = append(course.Lessons, lesson)
		return nil
	})
	if err != nil {
		if lesson.StorageKey != "" {
			if delErr := s.storage.Delete(context.WithoutCancel(ctx), lesson.StorageKey); delErr != nil {
				s.logger.Warn("failed to remove orphaned lesson content", zap.String("key", lesson.StorageKey), zap.Error(delErr))
			}
		}
		return types.Course{}, err
	}
	return updated, nil
}

// LessonContent returns a lesson and, for uploaded content, the open object.
// Only the course instructor, admins, and enrolled students may read it.
// The caller must close the object body.
func (s *CourseService) LessonContent(ctx context.Context, courseID, lessonID string, actor types.User) (types.Lesson, *storage.Object, error) {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return types.Lesson{}, nil, err
	}

	lessonOID, err := store.ObjectID(lessonID)
	if err != nil {
		return types.Lesson{}, nil, err
	}
	lesson, ok := lo.Find(course.Lessons, func(l types.Lesson) bool { return l.ID == lessonOID })
	if !ok {
		return types.Lesson{}, nil, store.ErrNotFound
	}

	canRead := actor.Role == types.RoleAdmin ||
		actor.ID == course.Instructor ||
		lo.Contains(course.EnrolledStudents, actor.ID)
	if !canRead {
		return types.Lesson{}, nil, ErrForbidden
	}

	if lesson.StorageKey == "" {
		return lesson, nil, nil
	}
	if s.storage == nil {
		return types.Lesson{}, nil, ErrUploadsDisabled
	}

	object, err := s.storage.Get(ctx, lesson.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return types.Lesson{}, nil, store.ErrNotFound
		}
		return types.Lesson{}, nil, err
	}
	return lesson, &object, nil
}

func (s *CourseService) buildLesson(input AddLessonInput) (types.Lesson, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return types.Lesson{}, invalidInput("lesson title is required")
	}

	switch input.ContentType {
	case types.ContentVideo, types.ContentPDF:
	case types.ContentText:
		if input.Upload != nil {
			return types.Lesson{}, invalidInput("text lessons cannot have an uploaded file")
		}
	default:
		return types.Lesson{}, invalidInput("content type must be video, pdf or text")
	}

	if input.Upload == nil && strings.TrimSpace(input.Content) == "" {
		return types.Lesson{}, invalidInput("lesson content is required")
	}
	if input.Upload != nil && s.storage == nil {
		return types.Lesson{}, ErrUploadsDisabled
	}

	return types.Lesson{
		ID:          primitive.NewObjectID(),
		Title:       title,
		ContentType: input.ContentType,
		Content:     input.Content,
	}, nil
}
