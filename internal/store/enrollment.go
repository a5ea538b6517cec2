package store

import (
	"context"
	"time"

	"github.com/skillbridge/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const enrollmentsCollection = "enrollments"

// EnrollmentRepository handles persistence for enrollments. The
// (student, course) pair is unique.
type EnrollmentRepository struct {
	coll *mongo.Collection
}

func NewEnrollmentRepository(db *mongo.Database) *EnrollmentRepository {
	return &EnrollmentRepository{coll: db.Collection(enrollmentsCollection)}
}

// Ensure returns the enrollment for the pair, creating it if needed.
func (r *EnrollmentRepository) Ensure(ctx context.Context, student, course primitive.ObjectID) (types.Enrollment, error) {
	now := time.Now().UTC()
	filter := bson.M{"student": student, "course": course}
	update := bson.M{
		"$setOnInsert": bson.M{
			"progress":              0,
			"completed_lessons":     bson.A{},
			"certificate_generated": false,
			"version":               int64(0),
			"created_at":            now,
			"updated_at":            now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var enrollment types.Enrollment
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&enrollment)
	if mongo.IsDuplicateKeyError(err) {
		// lost a concurrent upsert race; the winner's document is there now
		return r.Get(ctx, student, course)
	}
	if err != nil {
		return types.Enrollment{}, translate(err)
	}
	return enrollment, nil
}

func (r *EnrollmentRepository) Get(ctx context.Context, student, course primitive.ObjectID) (types.Enrollment, error) {
	var enrollment types.Enrollment
	filter := bson.M{"student": student, "course": course}
	if err := r.coll.FindOne(ctx, filter).Decode(&enrollment); err != nil {
		return types.Enrollment{}, translate(err)
	}
	return enrollment, nil
}

func (r *EnrollmentRepository) ListByStudent(ctx context.Context, student primitive.ObjectID) ([]types.Enrollment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"student": student}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	enrollments := []types.Enrollment{}
	if err := cursor.All(ctx, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// Update writes progress fields if the stored version still matches.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment types.Enrollment) (types.Enrollment, error) {
	enrollment.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": enrollment.ID, "version": enrollment.Version}
	update := bson.M{
		"$set": bson.M{
			"progress":              enrollment.Progress,
			"completed_lessons":     enrollment.CompletedLessons,
			"certificate_generated": enrollment.CertificateGenerated,
			"updated_at":            enrollment.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return types.Enrollment{}, translate(err)
	}
	if result.MatchedCount == 0 {
		count, err := r.coll.CountDocuments(ctx, bson.M{"_id": enrollment.ID})
		if err != nil {
			return types.Enrollment{}, err
		}
		if count == 0 {
			return types.Enrollment{}, ErrNotFound
		}
		return types.Enrollment{}, ErrConflict
	}

	enrollment.Version++
	return enrollment, nil
}

// DeleteByCourse removes every enrollment for a course.
func (r *EnrollmentRepository) DeleteByCourse(ctx context.Context, course primitive.ObjectID) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"course": course})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
