package server

import (
	"bytes"
	"context"
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

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]types.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[primitive.ObjectID]types.User{}}
}

func (m *memUsers) add(user types.User) types.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = user
	return user
}

func (m *memUsers) GetByID(ctx context.Context, id string) (types.User, error) {
	oid, err := store.ObjectID(id)
	if err != nil {
		return types.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[oid]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.PasswordHash = ""
	return user, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == strings.ToLower(email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) Create(ctx context.Context, user types.User) (types.User, error) {
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	user.ID = primitive.NilObjectID
	return m.add(user), nil
}

func (m *memUsers) SetApproved(ctx context.Context, id string, approved bool) (types.User, error) {
	user, err := m.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.users[user.ID]
	stored.IsApproved = approved
	m.users[user.ID] = stored
	return stored, nil
}

func (m *memUsers) SetRole(ctx context.Context, email string, role types.Role) (types.User, error) {
	user, err := m.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, err
	}
	user.Role = role
	return m.add(user), nil
}

type memCourses struct {
	mu      sync.Mutex
	courses map[primitive.ObjectID]types.Course
	order   []primitive.ObjectID
}

func newMemCourses() *memCourses {
	return &memCourses{courses: map[primitive.ObjectID]types.Course{}}
}

func (m *memCourses) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.courses)
}

func (m *memCourses) ListApproved(ctx context.Context) ([]types.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Course{}
	for _, id := range m.order {
		if course, ok := m.courses[id]; ok && course.IsApproved {
			out = append(out, copyCourse(course))
		}
	}
	return out, nil
}

func (m *memCourses) Get(ctx context.Context, id string) (types.Course, error) {
	oid, err := store.ObjectID(id)
	if err != nil {
		return types.Course{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[oid]
	if !ok {
		return types.Course{}, store.ErrNotFound
	}
	return copyCourse(course), nil
}

func (m *memCourses) Create(ctx context.Context, course types.Course) (types.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	course.ID = primitive.NewObjectID()
	course.CreatedAt = time.Now().UTC()
	course.UpdatedAt = course.CreatedAt
	m.courses[course.ID] = copyCourse(course)
	m.order = append(m.order, course.ID)
	return course, nil
}

func (m *memCourses) Update(ctx context.Context, course types.Course) (types.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.courses[course.ID]
	if !ok {
		return types.Course{}, store.ErrNotFound
	}
	if stored.Version != course.Version {
		return types.Course{}, store.ErrConflict
	}
	course.Version++
	course.UpdatedAt = time.Now().UTC()
	m.courses[course.ID] = copyCourse(course)
	return course, nil
}

func (m *memCourses) Delete(ctx context.Context, id string) (types.Course, error) {
	course, err := m.Get(ctx, id)
	if err != nil {
		return types.Course{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.courses, course.ID)
	return course, nil
}

func copyCourse(c types.Course) types.Course {
	c.Syllabus = slices.Clone(c.Syllabus)
	c.Lessons = slices.Clone(c.Lessons)
	c.Reviews = slices.Clone(c.Reviews)
	c.EnrolledStudents = slices.Clone(c.EnrolledStudents)
	return c
}

type memEnrollments struct {
	mu   sync.Mutex
	byID map[[2]primitive.ObjectID]types.Enrollment
}

func newMemEnrollments() *memEnrollments {
	return &memEnrollments{byID: map[[2]primitive.ObjectID]types.Enrollment{}}
}

func (m *memEnrollments) Ensure(ctx context.Context, student, course primitive.ObjectID) (types.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]primitive.ObjectID{student, course}
	if e, ok := m.byID[key]; ok {
		return e, nil
	}
	e := types.Enrollment{
		ID:               primitive.NewObjectID(),
		Student:          student,
		Course:           course,
		CompletedLessons: []primitive.ObjectID{},
		CreatedAt:        time.Now().UTC(),
	}
	m.byID[key] = e
	return e, nil
}

func (m *memEnrollments) Get(ctx context.Context, student, course primitive.ObjectID) (types.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[[2]primitive.ObjectID{student, course}]
	if !ok {
		return types.Enrollment{}, store.ErrNotFound
	}
	e.CompletedLessons = slices.Clone(e.CompletedLessons)
	return e, nil
}

func (m *memEnrollments) ListByStudent(ctx context.Context, student primitive.ObjectID) ([]types.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Enrollment{}
	for key, e := range m.byID {
		if key[0] == student {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEnrollments) Update(ctx context.Context, e types.Enrollment) (types.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]primitive.ObjectID{e.Student, e.Course}
	stored, ok := m.byID[key]
	if !ok {
		return types.Enrollment{}, store.ErrNotFound
	}
	if stored.Version != e.Version {
		return types.Enrollment{}, store.ErrConflict
	}
	e.Version++
	m.byID[key] = e
	return e, nil
}

func (m *memEnrollments) DeleteByCourse(ctx context.Context, course primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key := range m.byID {
		if key[1] == course {
			delete(m.byID, key)
			n++
		}
	}
	return n, nil
}

type memObject struct {
	data        []byte
	contentType string
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string]memObject
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string]memObject{}}
}

func (m *memObjects) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for key := range m.objects {
		out = append(out, key)
	}
	slices.Sort(out)
	return out
}

func (m *memObjects) EnsureBucket(ctx context.Context) error { return nil }

func (m *memObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: data, contentType: contentType}
	return nil
}

func (m *memObjects) Get(ctx context.Context, key string) (storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return storage.Object{}, storage.ErrObjectNotFound
	}
	return storage.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (m *memObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memObjects) Bucket() string { return "lessons" }
