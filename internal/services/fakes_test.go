package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/skillbridge/apiserver/internal/storage"
	"github.com/skillbridge/apiserver/internal/store"
	"github.com/skillbridge/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]types.User
}

func newFakeUserRepo(users ...types.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[primitive.ObjectID]types.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (types.User, error) {
	oid, err := store.ObjectID(id)
	if err != nil {
		return types.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[oid]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) SetApproved(ctx context.Context, id string, approved bool) (types.User, error) {
	oid, err := store.ObjectID(id)
	if err != nil {
		return types.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[oid]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	u.IsApproved = approved
	r.users[oid] = u
	return u, nil
}

func (r *fakeUserRepo) SetRole(ctx context.Context, email string, role types.Role) (types.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Role = role
	r.users[u.ID] = u
	return u, nil
}

type fakeCourseRepo struct {
	mu      sync.Mutex
	courses map[primitive.ObjectID]types.Course
	order   []primitive.ObjectID
	// conflicts makes the next N updates fail with store.ErrConflict.
	conflicts int
	updates   int
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: map[primitive.ObjectID]types.Course{}}
}

func (r *fakeCourseRepo) ListApproved(ctx context.Context) ([]types.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	courses := []types.Course{}
	for _, id := range r.order {
		if c, ok := r.courses[id]; ok && c.IsApproved {
			courses = append(courses, cloneCourse(c))
		}
	}
	return courses, nil
}

func (r *fakeCourseRepo) Get(ctx context.Context, id string) (types.Course, error) {
	oid, err := store.ObjectID(id)
	if err != nil {
		return types.Course{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[oid]
	if !ok {
		return types.Course{}, store.ErrNotFound
	}
	return cloneCourse(c), nil
}

func (r *fakeCourseRepo) Create(ctx context.Context, course types.Course) (types.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	course.ID = primitive.NewObjectID()
	course.Version = 0
	course.CreatedAt = time.Now().UTC()
	course.UpdatedAt = course.CreatedAt
	r.courses[course.ID] = cloneCourse(course)
	r.order = append(r.order, course.ID)
	return course, nil
}

func (r *fakeCourseRepo) Update(ctx context.Context, course types.Course) (types.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	stored, ok := r.courses[course.ID]
	if !ok {
		return types.Course{}, store.ErrNotFound
	}
	if r.conflicts > 0 {
		r.conflicts--
		return types.Course{}, store.ErrConflict
	}
	if stored.Version != course.Version {
		return types.Course{}, store.ErrConflict
	}
	course.Version++
	course.UpdatedAt = time.Now().UTC()
	r.courses[course.ID] = cloneCourse(course)
	return course, nil
}

func (r *fakeCourseRepo) Delete(ctx context.Context, id string) (types.Course, error) {
	oid, err := store.ObjectID(id)
	if err != nil {
		return types.Course{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[oid]
	if !ok {
		return types.Course{}, store.ErrNotFound
	}
	delete(r.courses, oid)
	return c, nil
}

func (r *fakeCourseRepo) put(course types.Course) types.Course {
	r.mu.Lock()
	defer r.mu.Unlock()
	if course.ID.IsZero() {
		course.ID = primitive.NewObjectID()
	}
	r.courses[course.ID] = cloneCourse(course)
	r.order = append(r.order, course.ID)
	return course
}

func (r *fakeCourseRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.courses)
}

func cloneCourse(c types.Course) types.Course {
	c.Syllabus = slices.Clone(c.Syllabus)
	c.Lessons = slices.Clone(c.Lessons)
	c.Reviews = slices.Clone(c.Reviews)
	c.EnrolledStudents = slices.Clone(c.EnrolledStudents)
	return c
}

type enrollmentKey struct {
	student primitive.ObjectID
	course  primitive.ObjectID
}

type fakeEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments map[enrollmentKey]types.Enrollment
	ensureErr   error
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: map[enrollmentKey]types.Enrollment{}}
}

func (r *fakeEnrollmentRepo) Ensure(ctx context.Context, student, course primitive.ObjectID) (types.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ensureErr != nil {
		return types.Enrollment{}, r.ensureErr
	}
	key := enrollmentKey{student, course}
	if e, ok := r.enrollments[key]; ok {
		return e, nil
	}
	e := types.Enrollment{
		ID:               primitive.NewObjectID(),
		Student:          student,
		Course:           course,
		CompletedLessons: []primitive.ObjectID{},
		CreatedAt:        time.Now().UTC(),
	}
	r.enrollments[key] = e
	return e, nil
}

func (r *fakeEnrollmentRepo) Get(ctx context.Context, student, course primitive.ObjectID) (types.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[enrollmentKey{student, course}]
	if !ok {
		return types.Enrollment{}, store.ErrNotFound
	}
	e.CompletedLessons = slices.Clone(e.CompletedLessons)
	return e, nil
}

func (r *fakeEnrollmentRepo) ListByStudent(ctx context.Context, student primitive.ObjectID) ([]types.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	enrollments := []types.Enrollment{}
	for key, e := range r.enrollments {
		if key.student == student {
			enrollments = append(enrollments, e)
		}
	}
	return enrollments, nil
}

func (r *fakeEnrollmentRepo) Update(ctx context.Context, enrollment types.Enrollment) (types.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := enrollmentKey{enrollment.Student, enrollment.Course}
	stored, ok := r.enrollments[key]
	if !ok {
		return types.Enrollment{}, store.ErrNotFound
	}
	if stored.Version != enrollment.Version {
		return types.Enrollment{}, store.ErrConflict
	}
	enrollment.Version++
	enrollment.CompletedLessons = slices.Clone(enrollment.CompletedLessons)
	r.enrollments[key] = enrollment
	return enrollment, nil
}

func (r *fakeEnrollmentRepo) DeleteByCourse(ctx context.Context, course primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for key := range r.enrollments {
		if key.course == course {
			delete(r.enrollments, key)
			removed++
		}
	}
	return removed, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []types.CourseEvent
	err    error
	block  chan struct{}
}

func (p *fakePublisher) PublishJSON(ctx context.Context, v any, attrs map[string]string) (string, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	if event, ok := v.(types.CourseEvent); ok {
		p.events = append(p.events, event)
	}
	return "msg", nil
}

func (p *fakePublisher) eventTypes() []types.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeObject struct {
	data        []byte
	contentType string
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	putErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]fakeObject{}}
}

func (s *fakeStorage) EnsureBucket(ctx context.Context) error { return nil }

func (s *fakeStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = fakeObject{data: data, contentType: contentType}
	return nil
}

func (s *fakeStorage) Get(ctx context.Context, key string) (storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return storage.Object{}, storage.ErrObjectNotFound
	}
	return storage.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) Bucket() string { return "test" }

var errBrokerDown = errors.New("broker down")
