// internal/recordid/recordid.go
package recordid

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidFormat is returned for any identifier that is not a store ObjectID.
var ErrInvalidFormat = errors.New("invalid ID format")

// Parse converts the display form of an identifier back into an ObjectID.
func Parse(raw string) (primitive.ObjectID, error) {
	if len(raw) != 24 {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	return id, nil
}

// New generates a fresh identifier. Only backends that play the role of the
// store call this; the rest of the system never constructs identifiers.
func New() primitive.ObjectID {
	return primitive.NewObjectID()
}

// String renders the display form handed to clients.
func String(id primitive.ObjectID) string {
	return id.Hex()
}
