package school

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Backend is the school-records REST API consumed by the dashboard.
// The "Express" and "Node" backends only differ by their root URL.
type Backend interface {
	// Name is the backend's route prefix, eg. "express".
	Name() string

	ListStudents(ctx context.Context) ([]Student, error)
	CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
	UpdateStudent(ctx context.Context, id int, us UpdateStudent) (Student, error)
	DeleteStudent(ctx context.Context, id int) error

	ListHomeworks(ctx context.Context) ([]Homework, error)
	CreateHomework(ctx context.Context, nh NewHomework) (Homework, error)
	UpdateHomework(ctx context.Context, id int, uh UpdateHomework) (Homework, error)
	DeleteHomework(ctx context.Context, id int) error

	ListStudentHomeworks(ctx context.Context, studentID int) ([]AssignedHomework, error)
	AssignHomework(ctx context.Context, studentID int, link LinkPayload) error
	UnassignHomework(ctx context.Context, studentID, homeworkID int) error
}

// ErrorKind classifies backend failures. Users are shown the same notice for every kind.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1 // transport-level failure
	KindStatus                       // non-2xx response
	KindDecode                       // unparseable response
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// BackendError is returned by Backend implementations for any failed call.
type BackendError struct {
	Kind   ErrorKind
	Op     string // eg. "POST /api/students"
	Status int    // HTTP status for KindStatus
	Body   string // response body for KindStatus, if any
	Err    error
}

func (e *BackendError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	default:
		if e.Err == nil {
			return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
		}
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsBackendError reports whether err was caused by a failed backend call of the given kind.
// A zero kind matches any kind.
func IsBackendError(err error, kind ErrorKind) bool {
	var bErr *BackendError
	if !errors.As(err, &bErr) {
		return false
	}
	return kind == 0 || bErr.Kind == kind
}

// StatusOf returns the HTTP status of a KindStatus backend error, 0 otherwise.
func StatusOf(err error) int {
	var bErr *BackendError
	if errors.As(err, &bErr) {
		return bErr.Status
	}
	return 0
}

var ErrBackendNotFound = errors.New("backend not found")
