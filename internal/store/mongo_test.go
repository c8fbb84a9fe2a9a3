package store

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestIsIndexNotFound(t *testing.T) {
	notFound := mongo.CommandError{Code: 27, Name: "IndexNotFound", Message: "index not found with name [messageId_1]"}

	if !isIndexNotFound(notFound) {
		t.Error("IndexNotFound command error not recognized")
	}
	if !isIndexNotFound(fmt.Errorf("drop index: %w", notFound)) {
		t.Error("wrapped IndexNotFound not recognized")
	}
	if isIndexNotFound(errors.New("connection reset")) {
		t.Error("unrelated error treated as index-not-found")
	}
	if isIndexNotFound(mongo.CommandError{Code: 13, Name: "Unauthorized"}) {
		t.Error("unrelated command error treated as index-not-found")
	}
}
