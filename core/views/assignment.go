package views

import (
	"context"
	"strconv"
	"sync"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/schoolboard/core/school"
)

// Assignment lists students; selecting one opens a modal with the student's assigned
// homework, where links can be added and removed.
type Assignment struct {
	deps Deps

	mu             sync.Mutex
	students       []school.Student
	studentsLoaded bool
	catalog        []school.Homework
	catalogLoaded  bool
	selected       *school.Student
	homeworks      []school.AssignedHomework
	draft          school.NewLink
	draftErrs      map[string]string
	modal          *fsm.FSM
	notices        notices
	studentLoads   sequencer
	catalogLoads   sequencer
	homeworkLoads  sequencer
	pending        inflight
	readsGroup     singleflight.Group
}

var _ View = (*Assignment)(nil)

func NewAssignment(deps Deps) (*Assignment, error) {
	if err := deps.check(); err != nil {
		return nil, errors.Wrap(err, "creating assignment view")
	}
	a := &Assignment{deps: deps}
	a.modal = newLoadingModal(func() {
		a.selected = nil
		a.homeworks = nil
		a.draft = school.NewLink{}
		a.draftErrs = nil
	})
	return a, nil
}

// AssignmentData is a render-ready copy of an Assignment.
type AssignmentData struct {
	Style          Style
	Students       []school.Student
	StudentsLoaded bool
	Catalog        []school.Homework
	CatalogLoaded  bool
	Modal          string
	Selected       *school.Student
	Homeworks      []school.AssignedHomework
	Draft          school.NewLink
	DraftErrors    map[string]string
	Notices        []Notice
}

func (d AssignmentData) ModalVisible() bool { return d.Modal != ModalClosed }
func (d AssignmentData) Loading() bool      { return d.Modal == ModalLoading }

// Rows returns the students list rendered in the selectable style.
func (d AssignmentData) Rows(base string) StudentRows {
	return StudentRows{Base: base, Style: d.Style, Students: d.Students, Loaded: d.StudentsLoaded}
}

// Snapshot returns the current state; queued notices are consumed.
func (a *Assignment) Snapshot() AssignmentData {
	a.mu.Lock()
	defer a.mu.Unlock()

	data := AssignmentData{
		Style:          SelectableStyle,
		Students:       append([]school.Student(nil), a.students...),
		StudentsLoaded: a.studentsLoaded,
		Catalog:        append([]school.Homework(nil), a.catalog...),
		CatalogLoaded:  a.catalogLoaded,
		Modal:          a.modal.Current(),
		Homeworks:      append([]school.AssignedHomework(nil), a.homeworks...),
		Draft:          a.draft,
		DraftErrors:    a.draftErrs,
		Notices:        a.notices.drain(),
	}
	if a.selected != nil {
		selected := *a.selected
		data.Selected = &selected
	}
	return data
}

// ModalState returns the state of the student's homework modal.
func (a *Assignment) ModalState() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.modal.Current()
}

// Homeworks returns a copy of the selected student's homework.
func (a *Assignment) Homeworks() []school.AssignedHomework {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]school.AssignedHomework(nil), a.homeworks...)
}

// Load fetches the students and the homework catalog independently;
// a failure of one does not prevent the other from being applied.
func (a *Assignment) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return a.loadStudents(ctx) })
	g.Go(func() error { return a.loadCatalog(ctx) })
	return g.Wait()
}

func (a *Assignment) loadStudents(ctx context.Context) error {
	a.mu.Lock()
	seq := a.studentLoads.next()
	key := a.studentLoads.flightKey("students")
	a.mu.Unlock()

	res, err, _ := a.readsGroup.Do(key, func() (interface{}, error) {
		return a.deps.Backend.ListStudents(ctx)
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.studentLoads.isLatest(seq) {
		return ErrStale
	}
	if err != nil {
		a.deps.logError("loading students", err)
		a.notices.push(NoticeError, "Failed to load students.")
		return err
	}
	a.students = append([]school.Student(nil), res.([]school.Student)...)
	a.studentsLoaded = true
	return nil
}

func (a *Assignment) loadCatalog(ctx context.Context) error {
	a.mu.Lock()
	seq := a.catalogLoads.next()
	key := a.catalogLoads.flightKey("homeworks")
	a.mu.Unlock()

	res, err, _ := a.readsGroup.Do(key, func() (interface{}, error) {
		return a.deps.Backend.ListHomeworks(ctx)
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.catalogLoads.isLatest(seq) {
		return ErrStale
	}
	if err != nil {
		a.deps.logError("loading homework catalog", err)
		a.notices.push(NoticeError, "Failed to load homework.")
		return err
	}
	a.catalog = append([]school.Homework(nil), res.([]school.Homework)...)
	a.catalogLoaded = true
	return nil
}

// Open selects student `studentID` and fetches exactly that student's homework.
// Only one student may be open at a time.
func (a *Assignment) Open(ctx context.Context, studentID int) error {
	a.mu.Lock()
	var found *school.Student
	for _, s := range a.students {
		if s.ID == studentID {
			s := s
			found = &s
			break
		}
	}
	if found == nil {
		a.notices.push(NoticeError, "Student not found.")
		a.mu.Unlock()
		return ErrNotFound
	}
	if a.selected != nil && a.selected.ID == studentID && !a.modal.Is(ModalClosed) {
		a.mu.Unlock()
		return nil
	}
	if err := a.modal.Event(ctx, eventOpen); err != nil {
		a.notices.push(NoticeError, "Close the current student first.")
		a.mu.Unlock()
		return errors.Wrap(err, "opening homework modal")
	}
	a.selected = found
	a.homeworks = nil
	a.draft = school.NewLink{}
	a.draftErrs = nil
	seq := a.homeworkLoads.next()
	a.mu.Unlock()

	return a.fetchHomeworks(ctx, studentID, seq)
}

// fetchHomeworks loads the homework of `studentID` into the modal. The response is
// discarded if the modal was closed or re-targeted meanwhile.
func (a *Assignment) fetchHomeworks(ctx context.Context, studentID int, seq uint64) error {
	list, err := a.deps.Backend.ListStudentHomeworks(ctx, studentID)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.homeworkLoads.isLatest(seq) || a.selected == nil || a.selected.ID != studentID {
		return ErrStale
	}
	if a.modal.Is(ModalLoading) {
		_ = a.modal.Event(ctx, eventLoaded)
	}
	if err != nil {
		a.deps.logError("loading student homeworks", err)
		a.notices.push(NoticeError, "Failed to load homework.")
		return err
	}
	a.homeworks = list
	return nil
}

// refresh re-fetches the selected student's homework after a successful link change.
func (a *Assignment) refresh(ctx context.Context, studentID int) error {
	a.mu.Lock()
	if a.selected == nil || a.selected.ID != studentID {
		a.mu.Unlock()
		return nil
	}
	if a.modal.Can(eventRefresh) {
		_ = a.modal.Event(ctx, eventRefresh)
	}
	seq := a.homeworkLoads.next()
	a.mu.Unlock()

	err := a.fetchHomeworks(ctx, studentID, seq)
	if errors.Is(err, ErrStale) {
		return nil
	}
	return err
}

func (a *Assignment) selectedID() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selected == nil || a.modal.Is(ModalClosed) {
		a.notices.push(NoticeError, "No student selected.")
		return 0, false
	}
	return a.selected.ID, true
}

// AddLink links a catalog homework to the selected student with a grade.
func (a *Assignment) AddLink(ctx context.Context, nl school.NewLink) error {
	studentID, ok := a.selectedID()
	if !ok {
		return ErrNoStudent
	}

	if err := nl.Validate(a.deps.Validate); err != nil {
		a.mu.Lock()
		a.draft = nl
		a.draftErrs = fieldErrors(err, a.deps.Translator)
		a.notices.push(NoticeError, "Please select a homework and provide a grade.")
		a.mu.Unlock()
		return err
	}
	payload := nl.Payload()

	action := "link:" + strconv.Itoa(studentID) + ":" + strconv.Itoa(payload.HomeworkID)
	if !a.pending.begin(action) {
		a.pushNotice(NoticeError, busyText)
		return ErrBusy
	}
	defer a.pending.end(action)

	if err := a.deps.Backend.AssignHomework(ctx, studentID, payload); err != nil {
		a.mu.Lock()
		if a.selected != nil && a.selected.ID == studentID {
			a.draft = nl
			a.draftErrs = nil
		}
		a.deps.logError("adding student homework", err)
		a.notices.push(NoticeError, "Failed to add homework.")
		a.mu.Unlock()
		return err
	}

	a.mu.Lock()
	if a.selected != nil && a.selected.ID == studentID {
		a.draft = school.NewLink{}
		a.draftErrs = nil
	}
	a.notices.push(NoticeSuccess, "Homework added successfully.")
	a.mu.Unlock()

	return a.refresh(ctx, studentID)
}

// RemoveLink unlinks homework `homeworkID` from the selected student.
func (a *Assignment) RemoveLink(ctx context.Context, homeworkID int) error {
	studentID, ok := a.selectedID()
	if !ok {
		return ErrNoStudent
	}

	action := "unlink:" + strconv.Itoa(studentID) + ":" + strconv.Itoa(homeworkID)
	if !a.pending.begin(action) {
		a.pushNotice(NoticeError, busyText)
		return ErrBusy
	}
	defer a.pending.end(action)

	if err := a.deps.Backend.UnassignHomework(ctx, studentID, homeworkID); err != nil {
		a.mu.Lock()
		a.deps.logError("deleting student homework", err)
		a.notices.push(NoticeError, "Failed to delete homework.")
		a.mu.Unlock()
		return err
	}

	a.pushNotice(NoticeSuccess, "Homework deleted successfully.")
	return a.refresh(ctx, studentID)
}

// Close closes the modal, clearing the selected student, its homework and the link draft.
func (a *Assignment) Close(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.modal.Can(eventClose) {
		_ = a.modal.Event(ctx, eventClose)
	}
	a.homeworkLoads.invalidate()
}

func (a *Assignment) pushNotice(kind NoticeKind, text string) {
	a.mu.Lock()
	a.notices.push(kind, text)
	a.mu.Unlock()
}
