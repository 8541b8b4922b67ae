// Package views holds the dashboard components (students table, homework table and
// homework assignment) as server-side state owned by one browser session.
//
// Every component owns its fetch lifecycle: it is loaded on mount, mutated only after
// a successful backend response, and discarded on unmount.
package views

import (
	"context"
	"strconv"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolboard/core"
	"github.com/trezcool/schoolboard/core/school"
)

var (
	ErrBusy       = errors.New("a request for this action is already in progress")
	ErrNotFound   = errors.New("record not found")
	ErrNotEditing = errors.New("no record is being edited")
	ErrNoStudent  = errors.New("no student selected")
	ErrStale      = errors.New("stale response discarded")
)

const busyText = "This action is already in progress, please wait."

// View is a mounted dashboard component.
type View interface {
	// Load fetches the component's collections from the backend.
	Load(ctx context.Context) error
}

// Deps are the collaborators shared by all components.
type Deps struct {
	Backend    school.Backend
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Person     core.Person // attached to logged errors
}

func (d Deps) check() error {
	return vala.BeginValidation().Validate(
		vala.IsNotNil(d.Backend, "Backend"),
		vala.IsNotNil(d.Logger, "Logger"),
		vala.IsNotNil(d.Validate, "Validate"),
		vala.IsNotNil(d.Translator, "Translator"),
	).Check()
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a message shown once to the user after an action.
type Notice struct {
	Kind NoticeKind
	Text string
}

func (n Notice) IsError() bool { return n.Kind == NoticeError }

// notices is a queue of Notices; guarded by the owning view's mutex.
type notices []Notice

func (ns *notices) push(kind NoticeKind, text string) {
	*ns = append(*ns, Notice{Kind: kind, Text: text})
}

// drain returns and clears the queued notices.
func (ns *notices) drain() []Notice {
	out := *ns
	*ns = nil
	return out
}

// inflight tracks the mutations currently waiting for a backend response.
type inflight struct {
	mu      sync.Mutex
	actions map[string]struct{}
}

// begin marks `action` as pending; it returns false if it already is.
func (f *inflight) begin(action string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.actions == nil {
		f.actions = make(map[string]struct{})
	}
	if _, ok := f.actions[action]; ok {
		return false
	}
	f.actions[action] = struct{}{}
	return true
}

func (f *inflight) end(action string) {
	f.mu.Lock()
	delete(f.actions, action)
	f.mu.Unlock()
}

// sequencer stamps collection loads so that only the latest response is applied.
// Guarded by the owning view's mutex.
type sequencer struct {
	last  uint64
	epoch uint64 // bumped by invalidate
}

func (s *sequencer) next() uint64 {
	s.last++
	return s.last
}

func (s *sequencer) isLatest(n uint64) bool { return n == s.last }

// invalidate makes every outstanding stamp stale.
func (s *sequencer) invalidate() {
	s.last++
	s.epoch++
}

// flightKey is the de-duplication key of a `name` load: loads started after an
// invalidation never share a backend call with loads started before it.
func (s *sequencer) flightKey(name string) string {
	return name + ":" + strconv.FormatUint(s.epoch, 10)
}

// Style parameterizes how a students list is rendered.
type Style struct {
	Name       string
	Table      string
	Head       string
	Cell       string
	Row        string
	Editable   bool // rows carry edit & delete actions
	Selectable bool // rows open the student's homework
}

var (
	EditableStyle = Style{
		Name:     "editable",
		Table:    "table",
		Head:     "table-head",
		Cell:     "cell",
		Row:      "row",
		Editable: true,
	}
	SelectableStyle = Style{
		Name:       "selectable",
		Table:      "table table-shadow",
		Head:       "table-head table-head-filled",
		Cell:       "cell cell-wide",
		Row:        "row row-clickable",
		Selectable: true,
	}
)

// StudentRows is what the students list partial renders, in either style.
type StudentRows struct {
	Base       string // URL of the owning view, eg. "/express/table/students"
	Style      Style
	Students   []school.Student
	Loaded     bool
	Editing    *school.Student
	EditErrors map[string]string
}

// IsEditing reports whether the row of student `id` is in edit mode.
func (r StudentRows) IsEditing(id int) bool {
	return r.Editing != nil && r.Editing.ID == id
}

// fieldErrors returns the translated field messages of a validation error.
func fieldErrors(err error, translator ut.Translator) map[string]string {
	err = core.TranslateValidationError(err, translator)
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
		return vErr.FieldMap()
	}
	return nil
}

// validationText returns the notice shown for a rejected draft.
func validationText(err error, missing, invalid string) string {
	if vErrs, ok := errors.Cause(err).(validator.ValidationErrors); ok {
		for _, vErr := range vErrs {
			if vErr.Tag() == "required" {
				return missing
			}
		}
	}
	return invalid
}

func (d Deps) logError(msg string, err error) {
	if d.Person.ID != "" {
		d.Logger.Error(msg, err, d.Person)
		return
	}
	d.Logger.Error(msg, err)
}
