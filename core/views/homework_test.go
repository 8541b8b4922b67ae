package views

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/schoolboard/core/school"
)

func newHomeworkTable(t *testing.T, deps Deps) *HomeworkTable {
	table, err := NewHomeworkTable(deps)
	if err != nil {
		t.Fatalf("NewHomeworkTable() failed: %v", err)
	}
	if err = table.Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return table
}

func TestHomeworkTable_Create(t *testing.T) {
	ctx := context.Background()
	fake, deps, _ := setup(t)
	essay := fake.SeedHomework("History", "Essay", "Write an essay")
	table := newHomeworkTable(t, deps)
	assert.Equal(t, []school.Homework{essay}, table.Homeworks())

	// all fields are required
	assert.Error(t, table.Create(ctx, school.NewHomework{Subject: "Math", Title: "Quiz"}))
	data := table.Snapshot()
	assert.Len(t, data.Homeworks, 1)
	assert.Contains(t, data.DraftErrors, "description")
	assert.Equal(t, Notice{NoticeError, "Please fill in all fields."}, lastNotice(t, data.Notices))
	assert.Zero(t, fake.CountRequests(http.MethodPost, "/api/homeworks"))

	fake.FailWith(http.MethodPost, "/api/homeworks", http.StatusInternalServerError)
	assert.Error(t, table.Create(ctx, school.NewHomework{Subject: "Math", Title: "Quiz", Description: "Algebra"}))
	data = table.Snapshot()
	assert.Equal(t, []school.Homework{essay}, data.Homeworks)
	assert.Equal(t, Notice{NoticeError, "Failed to add homework."}, lastNotice(t, data.Notices))
	fake.Reset()

	assert.NoError(t, table.Create(ctx, school.NewHomework{Subject: "Math", Title: "Quiz", Description: "Algebra"}))
	data = table.Snapshot()
	if assert.Len(t, data.Homeworks, 2) {
		quiz := data.Homeworks[1]
		assert.NotZero(t, quiz.ID)
		assert.Equal(t, "Quiz", quiz.Title)
	}
	assert.Equal(t, school.NewHomework{}, data.Draft)
	assert.Equal(t, Notice{NoticeSuccess, "Homework added successfully."}, lastNotice(t, data.Notices))
}

func TestHomeworkTable_EditModal(t *testing.T) {
	ctx := context.Background()
	fake, deps, _ := setup(t)
	essay := fake.SeedHomework("History", "Essay", "Write an essay")
	quiz := fake.SeedHomework("Math", "Quiz", "Algebra")
	table := newHomeworkTable(t, deps)

	assert.Equal(t, ModalClosed, table.ModalState())
	assert.Equal(t, ErrNotEditing, table.Save(ctx, essay.ID, school.UpdateHomework{Title: "X"}))
	assert.Equal(t, ErrNotFound, table.OpenEdit(ctx, 42))

	assert.NoError(t, table.OpenEdit(ctx, essay.ID))
	assert.Equal(t, ModalOpen, table.ModalState())
	data := table.Snapshot()
	assert.True(t, data.ModalOpen)
	if assert.NotNil(t, data.Selected) {
		assert.Equal(t, essay, *data.Selected)
	}

	// one modal at a time
	assert.Error(t, table.OpenEdit(ctx, quiz.ID))
	assert.Equal(t, Notice{NoticeError, "Close the current homework first."}, lastNotice(t, table.Snapshot().Notices))
	assert.NoError(t, table.OpenEdit(ctx, essay.ID), "reopening the same homework is a no-op")

	table.CloseEdit(ctx)
	data = table.Snapshot()
	assert.False(t, data.ModalOpen)
	assert.Nil(t, data.Selected, "closing drops the draft")

	assert.NoError(t, table.OpenEdit(ctx, quiz.ID))
	fake.FailWith(http.MethodPatch, "/api/homeworks/2", http.StatusInternalServerError)
	assert.Equal(t, ErrNotEditing, table.Save(ctx, essay.ID, school.UpdateHomework{Title: "Long essay"}))
	assert.Equal(t, Notice{NoticeError, "This homework is not being edited."}, lastNotice(t, table.Snapshot().Notices))
	assert.Zero(t, fake.CountRequests(http.MethodPatch, "/api/homeworks/1"))

	assert.Error(t, table.Save(ctx, quiz.ID, school.UpdateHomework{Title: "Pop quiz"}))
	data = table.Snapshot()
	assert.True(t, data.ModalOpen, "modal stays open on failure")
	assert.Equal(t, "Pop quiz", data.Selected.Title)
	assert.Equal(t, []school.Homework{essay, quiz}, data.Homeworks)
	fake.Reset()

	assert.NoError(t, table.Save(ctx, quiz.ID, school.UpdateHomework{Title: "Pop quiz"}))
	data = table.Snapshot()
	assert.False(t, data.ModalOpen)
	assert.Equal(t, essay, data.Homeworks[0])
	assert.Equal(t, fake.Homeworks()[1], data.Homeworks[1])
	assert.Equal(t, "Pop quiz", data.Homeworks[1].Title)
	assert.Equal(t, Notice{NoticeSuccess, "Homework updated successfully."}, lastNotice(t, data.Notices))
}

func TestHomeworkTable_Delete(t *testing.T) {
	ctx := context.Background()
	fake, deps, _ := setup(t)
	essay := fake.SeedHomework("History", "Essay", "Write an essay")
	quiz := fake.SeedHomework("Math", "Quiz", "Algebra")
	table := newHomeworkTable(t, deps)
	assert.NoError(t, table.OpenEdit(ctx, essay.ID))

	assert.NoError(t, table.Delete(ctx, essay.ID))
	data := table.Snapshot()
	assert.Equal(t, []school.Homework{quiz}, data.Homeworks)
	assert.False(t, data.ModalOpen)
	assert.Equal(t, Notice{NoticeSuccess, "Homework deleted successfully."}, lastNotice(t, data.Notices))

	assert.Error(t, table.Delete(ctx, essay.ID))
	data = table.Snapshot()
	assert.Equal(t, []school.Homework{quiz}, data.Homeworks)
	assert.Equal(t, Notice{NoticeError, "Failed to delete homework."}, lastNotice(t, data.Notices))
}

func TestHomeworkTable_Load(t *testing.T) {
	fake, deps, _ := setup(t)
	fake.FailWith(http.MethodGet, "/api/homeworks", http.StatusServiceUnavailable)

	table, err := NewHomeworkTable(deps)
	assert.NoError(t, err)
	assert.Error(t, table.Load(context.Background()))
	data := table.Snapshot()
	assert.False(t, data.Loaded)
	assert.Empty(t, data.Homeworks)
	assert.Equal(t, Notice{NoticeError, "Failed to load homework."}, lastNotice(t, data.Notices))
}

func TestHomeworkTable_staleLoad(t *testing.T) {
	ctx := context.Background()
	fake, deps, _ := setup(t)
	table := newHomeworkTable(t, deps)

	release := fake.Hold(http.MethodGet, "/api/homeworks")
	done := make(chan error)
	go func() { done <- table.Load(ctx) }()
	waitForRequests(t, fake, http.MethodGet, "/api/homeworks", 2)

	assert.NoError(t, table.Create(ctx, school.NewHomework{Subject: "Math", Title: "Quiz", Description: "Algebra"}))
	release()

	assert.Equal(t, ErrStale, <-done)
	assert.Len(t, table.Homeworks(), 1, "the slow load does not overwrite the creation")
}

func TestHomeworkTable_loadAfterMutation(t *testing.T) {
	ctx := context.Background()
	fake, deps, _ := setup(t)
	essay := fake.SeedHomework("History", "Essay", "Write an essay")
	quiz := fake.SeedHomework("Math", "Quiz", "Algebra")
	slow := newSlowBackend(deps.Backend)
	deps.Backend = slow
	table, err := NewHomeworkTable(deps)
	if err != nil {
		t.Fatalf("NewHomeworkTable() failed: %v", err)
	}

	first := make(chan error, 1)
	go func() { first <- table.Load(ctx) }()
	slow.waitForRead(t) // the first load holds both homeworks

	assert.NoError(t, table.Delete(ctx, essay.ID))

	second := make(chan error, 1)
	go func() { second <- table.Load(ctx) }()
	slow.waitForRead(t) // the second load reads the backend again
	close(slow.gate)

	assert.Equal(t, ErrStale, <-first)
	assert.NoError(t, <-second)
	assert.Equal(t, 2, slow.callCount())
	assert.Equal(t, []school.Homework{quiz}, table.Homeworks())
}
