package store

import (
	"context"
	"time"

	"github.com/skillbridge/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const coursesCollection = "courses"

// CourseRepository handles persistence for courses and their embedded
// lessons and reviews.
type CourseRepository struct {
	coll *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{coll: db.Collection(coursesCollection)}
}

// ListApproved returns every approved course in natural order.
func (r *CourseRepository) ListApproved(ctx context.Context) ([]types.Course, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"is_approved": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	courses := []types.Course{}
	if err := cursor.All(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *CourseRepository) Get(ctx context.Context, id string) (types.Course, error) {
	oid, err := ObjectID(id)
	if err != nil {
		return types.Course{}, err
	}

	var course types.Course
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&course); err != nil {
		return types.Course{}, translate(err)
	}
	return course, nil
}

func (r *CourseRepository) Create(ctx context.Context, course types.Course) (types.Course, error) {
	now := time.Now().UTC()
	if course.ID.IsZero() {
		course.ID = primitive.NewObjectID()
	}
	course.Version = 0
	course.CreatedAt = now
	course.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, course); err != nil {
		return types.Course{}, translate(err)
	}
	return course, nil
}

// Update writes every mutable field of course if the stored version still
// equals course.Version. It returns ErrConflict when another writer got
// there first and ErrNotFound when the course is gone.
func (r *CourseRepository) Update(ctx context.Context, course types.Course) (types.Course, error) {
	course.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": course.ID, "version": course.Version}
	update := bson.M{
		"$set": bson.M{
			"title":             course.Title,
			"category":          course.Category,
			"level":             course.Level,
			"duration":          course.Duration,
			"description":       course.Description,
			"price":             course.Price,
			"syllabus":          course.Syllabus,
			"lessons":           course.Lessons,
			"reviews":           course.Reviews,
			"rating":            course.Rating,
			"num_reviews":       course.NumReviews,
			"is_approved":       course.IsApproved,
			"enrolled_students": course.EnrolledStudents,
			"updated_at":        course.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return types.Course{}, translate(err)
	}
	if result.MatchedCount == 0 {
		return types.Course{}, r.missOrConflict(ctx, course.ID)
	}

	course.Version++
	return course, nil
}

// Delete removes a course and returns the removed document.
func (r *CourseRepository) Delete(ctx context.Context, id string) (types.Course, error) {
	oid, err := ObjectID(id)
	if err != nil {
		return types.Course{}, err
	}

	var course types.Course
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&course); err != nil {
		return types.Course{}, translate(err)
	}
	return course, nil
}

func (r *CourseRepository) missOrConflict(ctx context.Context, id primitive.ObjectID) error {
	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
