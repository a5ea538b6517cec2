package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestObjectID(t *testing.T) {
	want := primitive.NewObjectID()

	got, err := ObjectID(want.Hex())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ObjectID("not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTranslate(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	other := errors.New("boom")

	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), ErrNotFound)
	assert.ErrorIs(t, translate(dup), ErrDuplicate)
	assert.Equal(t, other, translate(other))
}
