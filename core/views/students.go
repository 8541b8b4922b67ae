package views

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/schoolboard/core/school"
)

// StudentsTable lists students and supports create, inline edit and delete.
type StudentsTable struct {
	deps  Deps
	style Style

	mu         sync.Mutex
	students   []school.Student
	loaded     bool
	draft      school.NewStudent
	draftErrs  map[string]string
	editing    *school.Student // draft copy of the row in edit mode
	editErrs   map[string]string
	notices    notices
	loads      sequencer
	pending    inflight
	readsGroup singleflight.Group
}

var _ View = (*StudentsTable)(nil)

func NewStudentsTable(deps Deps, style Style) (*StudentsTable, error) {
	if err := deps.check(); err != nil {
		return nil, errors.Wrap(err, "creating students table")
	}
	return &StudentsTable{deps: deps, style: style}, nil
}

// StudentsTableData is a render-ready copy of a StudentsTable.
type StudentsTableData struct {
	Style       Style
	Students    []school.Student
	Loaded      bool
	Draft       school.NewStudent
	DraftErrors map[string]string
	Editing     *school.Student
	EditErrors  map[string]string
	Notices     []Notice
}

// Rows returns the students list rendered in the table's style.
func (d StudentsTableData) Rows(base string) StudentRows {
	return StudentRows{
		Base:       base,
		Style:      d.Style,
		Students:   d.Students,
		Loaded:     d.Loaded,
		Editing:    d.Editing,
		EditErrors: d.EditErrors,
	}
}

// Snapshot returns the current state; queued notices are consumed.
func (t *StudentsTable) Snapshot() StudentsTableData {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := StudentsTableData{
		Style:       t.style,
		Students:    append([]school.Student(nil), t.students...),
		Loaded:      t.loaded,
		Draft:       t.draft,
		DraftErrors: t.draftErrs,
		EditErrors:  t.editErrs,
		Notices:     t.notices.drain(),
	}
	if t.editing != nil {
		editing := *t.editing
		data.Editing = &editing
	}
	return data
}

// Students returns a copy of the listed students.
func (t *StudentsTable) Students() []school.Student {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]school.Student(nil), t.students...)
}

func (t *StudentsTable) Load(ctx context.Context) error {
	t.mu.Lock()
	seq := t.loads.next()
	key := t.loads.flightKey("students")
	t.mu.Unlock()

	res, err, _ := t.readsGroup.Do(key, func() (interface{}, error) {
		return t.deps.Backend.ListStudents(ctx)
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loads.isLatest(seq) {
		return ErrStale
	}
	if err != nil {
		t.deps.logError("loading students", err)
		t.notices.push(NoticeError, "Failed to load students.")
		return err
	}
	t.students = append([]school.Student(nil), res.([]school.Student)...)
	t.loaded = true
	return nil
}

// Create submits a new student; the returned record is appended on success.
func (t *StudentsTable) Create(ctx context.Context, ns school.NewStudent) error {
	if err := ns.Validate(t.deps.Validate); err != nil {
		t.mu.Lock()
		t.draft = ns
		t.draftErrs = fieldErrors(err, t.deps.Translator)
		t.notices.push(NoticeError, validationText(err, "Please fill in all fields.", "Please correct the highlighted fields."))
		t.mu.Unlock()
		return err
	}

	action := "create"
	if !t.pending.begin(action) {
		t.pushNotice(NoticeError, busyText)
		return ErrBusy
	}
	defer t.pending.end(action)

	created, err := t.deps.Backend.CreateStudent(ctx, ns)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.draft = ns
		t.draftErrs = nil
		t.deps.logError("adding student", err)
		t.notices.push(NoticeError, "Failed to add student.")
		return err
	}
	t.loads.invalidate()
	t.students = append(t.students, created)
	t.draft = school.NewStudent{}
	t.draftErrs = nil
	t.notices.push(NoticeSuccess, "Student added successfully.")
	return nil
}

// Edit puts the row of student `id` in edit mode.
func (t *StudentsTable) Edit(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range t.students {
		if s.ID == id {
			editing := s
			t.editing = &editing
			t.editErrs = nil
			return nil
		}
	}
	t.notices.push(NoticeError, "Student not found.")
	return ErrNotFound
}

// CancelEdit leaves edit mode without saving.
func (t *StudentsTable) CancelEdit() {
	t.mu.Lock()
	t.editing = nil
	t.editErrs = nil
	t.mu.Unlock()
}

// Save submits the edited row of student `id`; the row is replaced by the server's record on success.
// No request is sent unless that row is in edit mode.
func (t *StudentsTable) Save(ctx context.Context, id int, us school.UpdateStudent) error {
	t.mu.Lock()
	if t.editing == nil {
		t.notices.push(NoticeError, "No student is being edited.")
		t.mu.Unlock()
		return ErrNotEditing
	}
	if t.editing.ID != id {
		t.notices.push(NoticeError, "This student is not being edited.")
		t.mu.Unlock()
		return ErrNotEditing
	}
	t.mu.Unlock()

	if err := us.Validate(t.deps.Validate); err != nil {
		t.mu.Lock()
		t.keepEditDraft(id, us)
		t.editErrs = fieldErrors(err, t.deps.Translator)
		t.notices.push(NoticeError, "Please correct the highlighted fields.")
		t.mu.Unlock()
		return err
	}

	action := "update:" + strconv.Itoa(id)
	if !t.pending.begin(action) {
		t.pushNotice(NoticeError, busyText)
		return ErrBusy
	}
	defer t.pending.end(action)

	updated, err := t.deps.Backend.UpdateStudent(ctx, id, us)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.keepEditDraft(id, us)
		t.editErrs = nil
		t.deps.logError("updating student", err)
		t.notices.push(NoticeError, "Failed to update student.")
		return err
	}
	t.loads.invalidate()
	for i := range t.students {
		if t.students[i].ID == id {
			t.students[i] = updated
		}
	}
	if t.editing != nil && t.editing.ID == id {
		t.editing = nil
		t.editErrs = nil
	}
	t.notices.push(NoticeSuccess, "Student updated successfully.")
	return nil
}

// keepEditDraft keeps the submitted values in the edited row. Requires t.mu.
func (t *StudentsTable) keepEditDraft(id int, us school.UpdateStudent) {
	if t.editing != nil && t.editing.ID == id {
		editing := us.Apply(*t.editing)
		t.editing = &editing
	}
}

// Delete removes student `id`; the row is dropped on success.
func (t *StudentsTable) Delete(ctx context.Context, id int) error {
	action := "delete:" + strconv.Itoa(id)
	if !t.pending.begin(action) {
		t.pushNotice(NoticeError, busyText)
		return ErrBusy
	}
	defer t.pending.end(action)

	err := t.deps.Backend.DeleteStudent(ctx, id)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.deps.logError("deleting student", err)
		t.notices.push(NoticeError, "Failed to delete student.")
		return err
	}
	t.loads.invalidate()
	students := t.students[:0]
	for _, s := range t.students {
		if s.ID != id {
			students = append(students, s)
		}
	}
	t.students = students
	if t.editing != nil && t.editing.ID == id {
		t.editing = nil
		t.editErrs = nil
	}
	t.notices.push(NoticeSuccess, "Student deleted successfully.")
	return nil
}

func (t *StudentsTable) pushNotice(kind NoticeKind, text string) {
	t.mu.Lock()
	t.notices.push(kind, text)
	t.mu.Unlock()
}
