package views

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/schoolboard/core/school"
	"github.com/trezcool/schoolboard/tests"
)

func newAssignment(t *testing.T, deps Deps) *Assignment {
	a, err := NewAssignment(deps)
	if err != nil {
		t.Fatalf("NewAssignment() failed: %v", err)
	}
	if err = a.Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return a
}

type assignmentFixture struct {
	alice, bob   school.Student
	essay, quiz  school.Homework
	aliceLinks   string // path of alice's homework
	bobLinks     string
	studentsPath string
}

func seedAssignment(fake *testutil.Backend) assignmentFixture {
	f := assignmentFixture{
		alice:        fake.SeedStudent("Alice", "alice@test.cd", "Math", "2"),
		bob:          fake.SeedStudent("Bob", "bob@test.cd", "Art", "1"),
		essay:        fake.SeedHomework("History", "Essay", "Write an essay"),
		quiz:         fake.SeedHomework("Math", "Quiz", "Algebra"),
		studentsPath: "/api/students",
	}
	f.aliceLinks = "/api/students/" + strconv.Itoa(f.alice.ID) + "/homeworks"
	f.bobLinks = "/api/students/" + strconv.Itoa(f.bob.ID) + "/homeworks"
	fake.SeedLink(f.alice.ID, f.essay.ID, "B")
	return f
}

func TestAssignment_Load(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake, deps, _ := setup(t)
		f := seedAssignment(fake)

		data := newAssignment(t, deps).Snapshot()
		assert.Equal(t, []school.Student{f.alice, f.bob}, data.Students)
		assert.Equal(t, []school.Homework{f.essay, f.quiz}, data.Catalog)
		assert.Equal(t, SelectableStyle, data.Style)
		assert.Equal(t, ModalClosed, data.Modal)
		assert.False(t, data.ModalVisible())
	})

	t.Run("independent collections", func(t *testing.T) {
		fake, deps, _ := setup(t)
		f := seedAssignment(fake)
		fake.FailWith(http.MethodGet, "/api/homeworks", http.StatusInternalServerError)

		a, err := NewAssignment(deps)
		assert.NoError(t, err)
		assert.Error(t, a.Load(context.Background()))

		data := a.Snapshot()
		assert.True(t, data.StudentsLoaded)
		assert.Equal(t, []school.Student{f.alice, f.bob}, data.Students)
		assert.False(t, data.CatalogLoaded)
		assert.Empty(t, data.Catalog)
		assert.Equal(t, []Notice{{NoticeError, "Failed to load homework."}}, data.Notices)
	})
}

func TestAssignment_Open(t *testing.T) {
	ctx := context.Background()
	fake, deps, _ := setup(t)
	f := seedAssignment(fake)
	a := newAssignment(t, deps)

	assert.Equal(t, ErrNotFound, a.Open(ctx, 42))

	assert.NoError(t, a.Open(ctx, f.alice.ID))
	assert.Equal(t, 1, fake.CountRequests(http.MethodGet, f.aliceLinks))
	assert.Zero(t, fake.CountRequests(http.MethodGet, f.bobLinks))

	data := a.Snapshot()
	assert.Equal(t, ModalOpen, data.Modal)
	assert.True(t, data.ModalVisible())
	assert.Equal(t, f.alice, *data.Selected)
	if assert.Len(t, data.Homeworks, 1) {
		assert.Equal(t, f.essay.ID, data.Homeworks[0].ID)
		assert.Equal(t, "B", data.Homeworks[0].Link.Grade)
	}

	// only one student at a time
	assert.Error(t, a.Open(ctx, f.bob.ID))
	assert.Equal(t, Notice{NoticeError, "Close the current student first."}, lastNotice(t, a.Snapshot().Notices))
	assert.Zero(t, fake.CountRequests(http.MethodGet, f.bobLinks))

	a.Close(ctx)
	data = a.Snapshot()
	assert.Equal(t, ModalClosed, data.Modal)
	assert.Nil(t, data.Selected)
	assert.Empty(t, data.Homeworks)
	assert.Equal(t, school.NewLink{}, data.Draft)

	// no cross-student leakage
	assert.NoError(t, a.Open(ctx, f.bob.ID))
	assert.Equal(t, 1, fake.CountRequests(http.MethodGet, f.bobLinks))
	data = a.Snapshot()
	assert.Equal(t, f.bob, *data.Selected)
	assert.Empty(t, data.Homeworks)
}

func TestAssignment_Open_failure(t *testing.T) {
	ctx := context.Background()
	fake, deps, logger := setup(t)
	f := seedAssignment(fake)
	a := newAssignment(t, deps)
	fake.FailWith(http.MethodGet, f.aliceLinks, http.StatusInternalServerError)

	assert.Error(t, a.Open(ctx, f.alice.ID))
	data := a.Snapshot()
	assert.Equal(t, ModalOpen, data.Modal, "the modal opens empty so it can be closed")
	assert.Empty(t, data.Homeworks)
	assert.Equal(t, Notice{NoticeError, "Failed to load homework."}, lastNotice(t, data.Notices))
	assert.Len(t, logger.Entries("error"), 1)
}

func TestAssignment_Open_discardsRetargetedResponse(t *testing.T) {
	ctx := context.Background()
	fake, deps, _ := setup(t)
	f := seedAssignment(fake)
	fake.SeedLink(f.bob.ID, f.quiz.ID, "C")
	a := newAssignment(t, deps)

	release := fake.Hold(http.MethodGet, f.aliceLinks)
	done := make(chan error)
	go func() { done <- a.Open(ctx, f.alice.ID) }()
	waitForRequests(t, fake, http.MethodGet, f.aliceLinks, 1)
	assert.Equal(t, ModalLoading, a.ModalState())
	assert.True(t, a.Snapshot().Loading())

	a.Close(ctx)
	assert.NoError(t, a.Open(ctx, f.bob.ID))
	release()
	assert.Equal(t, ErrStale, <-done)

	data := a.Snapshot()
	assert.Equal(t, f.bob, *data.Selected)
	if assert.Len(t, data.Homeworks, 1) {
		assert.Equal(t, f.quiz.ID, data.Homeworks[0].ID)
		assert.Equal(t, f.bob.ID, data.Homeworks[0].Link.StudentID)
	}
}

func TestAssignment_Links(t *testing.T) {
	ctx := context.Background()
	fake, deps, _ := setup(t)
	f := seedAssignment(fake)
	a := newAssignment(t, deps)

	assert.Equal(t, ErrNoStudent, a.AddLink(ctx, school.NewLink{HomeworkID: "4", Grade: "A"}))
	assert.Equal(t, ErrNoStudent, a.RemoveLink(ctx, f.essay.ID))

	assert.NoError(t, a.Open(ctx, f.alice.ID))
	before := a.Homeworks()

	// validation blocks the request
	assert.Error(t, a.AddLink(ctx, school.NewLink{HomeworkID: strconv.Itoa(f.quiz.ID)}))
	data := a.Snapshot()
	assert.Equal(t, Notice{NoticeError, "Please select a homework and provide a grade."}, lastNotice(t, data.Notices))
	assert.Equal(t, strconv.Itoa(f.quiz.ID), data.Draft.HomeworkID)
	assert.Zero(t, fake.CountRequests(http.MethodPost, f.aliceLinks))

	// assign then remove: back to the previous list
	assert.NoError(t, a.AddLink(ctx, school.NewLink{HomeworkID: strconv.Itoa(f.quiz.ID), Grade: "A"}))
	data = a.Snapshot()
	assert.Equal(t, ModalOpen, data.Modal)
	assert.Equal(t, school.NewLink{}, data.Draft)
	assert.Equal(t, Notice{NoticeSuccess, "Homework added successfully."}, lastNotice(t, data.Notices))
	if assert.Len(t, data.Homeworks, 2) {
		assert.Equal(t, f.quiz.ID, data.Homeworks[1].ID)
		assert.Equal(t, "A", data.Homeworks[1].Link.Grade)
	}
	assert.Equal(t, 2, fake.CountRequests(http.MethodGet, f.aliceLinks), "the list is re-fetched")

	assert.NoError(t, a.RemoveLink(ctx, f.quiz.ID))
	data = a.Snapshot()
	assert.Equal(t, Notice{NoticeSuccess, "Homework deleted successfully."}, lastNotice(t, data.Notices))
	assert.Equal(t, before, data.Homeworks)
	assert.Equal(t, 3, fake.CountRequests(http.MethodGet, f.aliceLinks))
}

func TestAssignment_Links_failures(t *testing.T) {
	ctx := context.Background()
	fake, deps, _ := setup(t)
	f := seedAssignment(fake)
	a := newAssignment(t, deps)
	assert.NoError(t, a.Open(ctx, f.alice.ID))
	before := a.Homeworks()

	fake.FailWith(http.MethodPost, f.aliceLinks, http.StatusInternalServerError)
	nl := school.NewLink{HomeworkID: strconv.Itoa(f.quiz.ID), Grade: "A"}
	assert.Error(t, a.AddLink(ctx, nl))
	data := a.Snapshot()
	assert.Equal(t, before, data.Homeworks)
	assert.Equal(t, nl, data.Draft)
	assert.Equal(t, Notice{NoticeError, "Failed to add homework."}, lastNotice(t, data.Notices))

	// removing a link that does not exist
	assert.Error(t, a.RemoveLink(ctx, f.quiz.ID))
	data = a.Snapshot()
	assert.Equal(t, before, data.Homeworks)
	assert.Equal(t, Notice{NoticeError, "Failed to delete homework."}, lastNotice(t, data.Notices))
	assert.Equal(t, 1, fake.CountRequests(http.MethodGet, f.aliceLinks), "no re-fetch after a failure")
}

func TestAssignment_Links_inflight(t *testing.T) {
	ctx := context.Background()
	fake, deps, _ := setup(t)
	f := seedAssignment(fake)
	a := newAssignment(t, deps)
	assert.NoError(t, a.Open(ctx, f.alice.ID))

	path := f.aliceLinks + "/" + strconv.Itoa(f.essay.ID)
	release := fake.Hold(http.MethodDelete, path)
	defer release()

	done := make(chan error)
	go func() { done <- a.RemoveLink(ctx, f.essay.ID) }()
	waitForRequests(t, fake, http.MethodDelete, path, 1)

	assert.Equal(t, ErrBusy, a.RemoveLink(ctx, f.essay.ID))
	release()
	assert.NoError(t, <-done)
	assert.Equal(t, 1, fake.CountRequests(http.MethodDelete, path))
	assert.Empty(t, a.Homeworks())
}

func TestAssignment_staleLoads(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		loads   func(a *Assignment) *sequencer
		seed    func(fake *testutil.Backend)
		listLen func(data AssignmentData) int
	}{
		{
			name:    "students",
			path:    "/api/students",
			loads:   func(a *Assignment) *sequencer { return &a.studentLoads },
			seed:    func(fake *testutil.Backend) { fake.SeedStudent("Carol", "carol@test.cd", "Art", "3") },
			listLen: func(data AssignmentData) int { return len(data.Students) },
		},
		{
			name:    "catalog",
			path:    "/api/homeworks",
			loads:   func(a *Assignment) *sequencer { return &a.catalogLoads },
			seed:    func(fake *testutil.Backend) { fake.SeedHomework("Art", "Sketch", "Draw a tree") },
			listLen: func(data AssignmentData) int { return len(data.Catalog) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fake, deps, _ := setup(t)
			seedAssignment(fake)
			a := newAssignment(t, deps)

			release := fake.Hold(http.MethodGet, tt.path)
			first := make(chan error, 1)
			go func() { first <- a.Load(ctx) }()
			waitForRequests(t, fake, http.MethodGet, tt.path, 2)

			second := make(chan error, 1)
			go func() { second <- a.Load(ctx) }()
			assert.Eventually(t, func() bool {
				a.mu.Lock()
				defer a.mu.Unlock()
				return tt.loads(a).last >= 3
			}, 2*time.Second, 5*time.Millisecond)

			tt.seed(fake)
			release()

			assert.Equal(t, ErrStale, <-first, "the older load is discarded")
			assert.NoError(t, <-second)
			data := a.Snapshot()
			assert.Equal(t, 3, tt.listLen(data))
			assert.Empty(t, data.Notices)
		})
	}
}
