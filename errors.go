package json2graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for common importer error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrNodeCreation indicates that a node creation statement failed at the
	// store. Node identity is load-bearing for every downstream relationship,
	// so this error always aborts the conversion.
	ErrNodeCreation = errors.New("failed to create node")

	// ErrRelationshipCreation indicates that a relationship creation
	// statement failed at the store. Relationship failures are non-fatal:
	// the importer logs them and continues the traversal.
	ErrRelationshipCreation = errors.New("failed to create relationship")

	// ErrFileNotFound indicates the JSON file passed to LoadFromFile does
	// not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrMalformedJSON indicates the input could not be parsed as JSON.
	ErrMalformedJSON = errors.New("malformed JSON")

	// ErrClearFailed indicates the whole-graph wipe issued by ClearDB failed.
	ErrClearFailed = errors.New("failed to clear database")

	// ErrInvalidConfig indicates the provided configuration is invalid or
	// incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error kinds categorize errors by their type.
const (
	// KindStorage represents errors returned by the graph store.
	KindStorage = "storage"

	// KindNotFound represents errors where a resource was not found.
	KindNotFound = "not_found"

	// KindParse represents errors related to input parsing.
	KindParse = "parse"

	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"
)

// ImportError is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category of
// error.
//
// ImportError implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
type ImportError struct {
	// Op is the operation that failed (e.g., "Importer.Convert").
	Op string

	// Kind categorizes the error (e.g., KindStorage, KindNotFound).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional), such
	// as node labels, file paths, or the statement that failed.
	Context map[string]any
}

// Error implements the error interface, returning a formatted error message
// that includes the operation, kind, and underlying error.
func (e *ImportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("json2graph: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("json2graph: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("json2graph: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *ImportError) Unwrap() error {
	return e.Err
}

// Is implements error matching for ImportError, allowing comparison based on
// the underlying error or on another ImportError's Kind and Op.
func (e *ImportError) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*ImportError); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a copy of the error with the provided context merged in.
func (e *ImportError) WithContext(ctx map[string]any) *ImportError {
	newErr := *e
	if newErr.Context == nil {
		newErr.Context = make(map[string]any)
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// newStorageError creates a new ImportError with KindStorage.
func newStorageError(op string, err error) *ImportError {
	return &ImportError{
		Op:   op,
		Kind: KindStorage,
		Err:  err,
	}
}

// newNotFoundError creates a new ImportError with KindNotFound.
func newNotFoundError(op string, err error) *ImportError {
	return &ImportError{
		Op:   op,
		Kind: KindNotFound,
		Err:  err,
	}
}

// newParseError creates a new ImportError with KindParse.
func newParseError(op string, err error) *ImportError {
	return &ImportError{
		Op:   op,
		Kind: KindParse,
		Err:  err,
	}
}

// newConfigurationError creates a new ImportError with KindConfiguration.
func newConfigurationError(op string, err error) *ImportError {
	return &ImportError{
		Op:   op,
		Kind: KindConfiguration,
		Err:  err,
	}
}
