package entitycache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidField is matched by every InvalidFieldError.
	ErrInvalidField = errors.New("entitycache: invalid field")

	// ErrFieldNotFound is returned by the default field resolver when a
	// record has no field with the requested name.
	ErrFieldNotFound = errors.New("entitycache: field not found on record")

	// ErrNilRecord is returned when a write operation receives a nil record.
	ErrNilRecord = errors.New("entitycache: nil record")

	// ErrMissingID is returned when a record has an empty primary identifier.
	ErrMissingID = errors.New("entitycache: record has no identifier")

	// ErrNilDocumentStore and ErrNilStore are returned by New.
	ErrNilDocumentStore = errors.New("entitycache: document store is nil")
	ErrNilStore         = errors.New("entitycache: cache store is nil")
)

// InvalidFieldError reports a lookup by a field that is not declared in
// Config.UniqueFields. No cache or store access happens before it is returned.
type InvalidFieldError struct {
	Namespace string
	Field     string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("entitycache: field %q is not a unique field of %q", e.Field, e.Namespace)
}

// Is lets errors.Is(err, ErrInvalidField) match.
func (e *InvalidFieldError) Is(target error) bool {
	return target == ErrInvalidField
}
