package store

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidID is returned for malformed ids. It matches ErrNotFound so a
// garbage id behaves like an unknown one.
var ErrInvalidID = fmt.Errorf("invalid id: %w", ErrNotFound)

// ErrConflict is returned when an optimistic write lost against a
// concurrent writer.
var ErrConflict = errors.New("version conflict")

// ErrDuplicate is returned when a unique index rejects a write.
var ErrDuplicate = errors.New("duplicate record")

// ObjectID parses a hex id.
func ObjectID(hex string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}
