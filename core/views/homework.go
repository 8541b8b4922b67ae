package views

import (
	"context"
	"strconv"
	"sync"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/schoolboard/core/school"
)

// HomeworkTable lists homework and supports create, edit via a modal and delete.
type HomeworkTable struct {
	deps Deps

	mu         sync.Mutex
	homeworks  []school.Homework
	loaded     bool
	draft      school.NewHomework
	draftErrs  map[string]string
	selected   *school.Homework // draft copy held by the edit modal
	editErrs   map[string]string
	modal      *fsm.FSM
	notices    notices
	loads      sequencer
	pending    inflight
	readsGroup singleflight.Group
}

var _ View = (*HomeworkTable)(nil)

func NewHomeworkTable(deps Deps) (*HomeworkTable, error) {
	if err := deps.check(); err != nil {
		return nil, errors.Wrap(err, "creating homework table")
	}
	t := &HomeworkTable{deps: deps}
	t.modal = newEditModal(func() {
		t.selected = nil
		t.editErrs = nil
	})
	return t, nil
}

// HomeworkTableData is a render-ready copy of a HomeworkTable.
type HomeworkTableData struct {
	Homeworks   []school.Homework
	Loaded      bool
	Draft       school.NewHomework
	DraftErrors map[string]string
	ModalOpen   bool
	Selected    *school.Homework
	EditErrors  map[string]string
	Notices     []Notice
}

// Snapshot returns the current state; queued notices are consumed.
func (t *HomeworkTable) Snapshot() HomeworkTableData {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := HomeworkTableData{
		Homeworks:   append([]school.Homework(nil), t.homeworks...),
		Loaded:      t.loaded,
		Draft:       t.draft,
		DraftErrors: t.draftErrs,
		ModalOpen:   t.modal.Is(ModalOpen),
		EditErrors:  t.editErrs,
		Notices:     t.notices.drain(),
	}
	if t.selected != nil {
		selected := *t.selected
		data.Selected = &selected
	}
	return data
}

// Homeworks returns a copy of the listed homework.
func (t *HomeworkTable) Homeworks() []school.Homework {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]school.Homework(nil), t.homeworks...)
}

// ModalState returns the state of the edit modal.
func (t *HomeworkTable) ModalState() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.modal.Current()
}

func (t *HomeworkTable) Load(ctx context.Context) error {
	t.mu.Lock()
	seq := t.loads.next()
	key := t.loads.flightKey("homeworks")
	t.mu.Unlock()

	res, err, _ := t.readsGroup.Do(key, func() (interface{}, error) {
		return t.deps.Backend.ListHomeworks(ctx)
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loads.isLatest(seq) {
		return ErrStale
	}
	if err != nil {
		t.deps.logError("loading homeworks", err)
		t.notices.push(NoticeError, "Failed to load homework.")
		return err
	}
	t.homeworks = append([]school.Homework(nil), res.([]school.Homework)...)
	t.loaded = true
	return nil
}

// Create submits a new homework; all fields are required.
func (t *HomeworkTable) Create(ctx context.Context, nh school.NewHomework) error {
	if err := nh.Validate(t.deps.Validate); err != nil {
		t.mu.Lock()
		t.draft = nh
		t.draftErrs = fieldErrors(err, t.deps.Translator)
		t.notices.push(NoticeError, "Please fill in all fields.")
		t.mu.Unlock()
		return err
	}

	action := "create"
	if !t.pending.begin(action) {
		t.pushNotice(NoticeError, busyText)
		return ErrBusy
	}
	defer t.pending.end(action)

	created, err := t.deps.Backend.CreateHomework(ctx, nh)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.draft = nh
		t.draftErrs = nil
		t.deps.logError("adding homework", err)
		t.notices.push(NoticeError, "Failed to add homework.")
		return err
	}
	t.loads.invalidate()
	t.homeworks = append(t.homeworks, created)
	t.draft = school.NewHomework{}
	t.draftErrs = nil
	t.notices.push(NoticeSuccess, "Homework added successfully.")
	return nil
}

// OpenEdit opens the edit modal with a draft copy of homework `id`.
func (t *HomeworkTable) OpenEdit(ctx context.Context, id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var found *school.Homework
	for _, h := range t.homeworks {
		if h.ID == id {
			h := h
			found = &h
			break
		}
	}
	if found == nil {
		t.notices.push(NoticeError, "Homework not found.")
		return ErrNotFound
	}
	if t.modal.Is(ModalOpen) && t.selected != nil && t.selected.ID == id {
		return nil
	}
	if err := t.modal.Event(ctx, eventOpen); err != nil {
		t.notices.push(NoticeError, "Close the current homework first.")
		return errors.Wrap(err, "opening edit modal")
	}
	t.selected = found
	t.editErrs = nil
	return nil
}

// CloseEdit closes the edit modal and drops its draft.
func (t *HomeworkTable) CloseEdit(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.modal.Can(eventClose) {
		_ = t.modal.Event(ctx, eventClose)
	}
}

// Save submits the modal's draft of homework `id`; on success the row is replaced and the modal closed.
// No request is sent unless the modal is open on that homework.
func (t *HomeworkTable) Save(ctx context.Context, id int, uh school.UpdateHomework) error {
	t.mu.Lock()
	if t.selected == nil || !t.modal.Is(ModalOpen) {
		t.notices.push(NoticeError, "No homework is being edited.")
		t.mu.Unlock()
		return ErrNotEditing
	}
	if t.selected.ID != id {
		t.notices.push(NoticeError, "This homework is not being edited.")
		t.mu.Unlock()
		return ErrNotEditing
	}
	t.mu.Unlock()

	if err := uh.Validate(t.deps.Validate); err != nil {
		t.mu.Lock()
		t.keepEditDraft(id, uh)
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

	updated, err := t.deps.Backend.UpdateHomework(ctx, id, uh)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.keepEditDraft(id, uh)
		t.deps.logError("updating homework", err)
		t.notices.push(NoticeError, "Failed to update homework.")
		return err
	}
	t.loads.invalidate()
	for i := range t.homeworks {
		if t.homeworks[i].ID == updated.ID {
			t.homeworks[i] = updated
		}
	}
	if t.selected != nil && t.selected.ID == id && t.modal.Can(eventClose) {
		_ = t.modal.Event(ctx, eventClose)
	}
	t.notices.push(NoticeSuccess, "Homework updated successfully.")
	return nil
}

// keepEditDraft keeps the submitted values in the modal. Requires t.mu.
func (t *HomeworkTable) keepEditDraft(id int, uh school.UpdateHomework) {
	if t.selected != nil && t.selected.ID == id {
		selected := uh.Apply(*t.selected)
		t.selected = &selected
	}
}

// Delete removes homework `id`; the row is dropped on success.
func (t *HomeworkTable) Delete(ctx context.Context, id int) error {
	action := "delete:" + strconv.Itoa(id)
	if !t.pending.begin(action) {
		t.pushNotice(NoticeError, busyText)
		return ErrBusy
	}
	defer t.pending.end(action)

	err := t.deps.Backend.DeleteHomework(ctx, id)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.deps.logError("deleting homework", err)
		t.notices.push(NoticeError, "Failed to delete homework.")
		return err
	}
	t.loads.invalidate()
	homeworks := t.homeworks[:0]
	for _, h := range t.homeworks {
		if h.ID != id {
			homeworks = append(homeworks, h)
		}
	}
	t.homeworks = homeworks
	if t.selected != nil && t.selected.ID == id && t.modal.Can(eventClose) {
		_ = t.modal.Event(ctx, eventClose)
	}
	t.notices.push(NoticeSuccess, "Homework deleted successfully.")
	return nil
}

func (t *HomeworkTable) pushNotice(kind NoticeKind, text string) {
	t.mu.Lock()
	t.notices.push(kind, text)
	t.mu.Unlock()
}
