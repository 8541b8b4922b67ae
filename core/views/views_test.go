package views

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/schoolboard/core"
	"github.com/trezcool/schoolboard/core/school"
	"github.com/trezcool/schoolboard/storage/restapi"
	"github.com/trezcool/schoolboard/tests"
)

func setup(t *testing.T) (*testutil.Backend, Deps, *testutil.Logger) {
	fake := testutil.NewBackend()
	backend, err := restapi.NewBackend("express", fake.Start(t), 2*time.Second)
	if err != nil {
		t.Fatalf("restapi.NewBackend() failed: %v", err)
	}
	validate, translator := testutil.NewValidator()
	logger := new(testutil.Logger)
	return fake, Deps{
		Backend:    backend,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Person:     core.Person{ID: "session-1"},
	}, logger
}

// waitForRequests blocks until the fake backend received `n` `method path` requests.
func waitForRequests(t *testing.T, fake *testutil.Backend, method, path string, n int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return fake.CountRequests(method, path) >= n
	}, 2*time.Second, 5*time.Millisecond)
}

// slowBackend answers list calls late: each call reads the records, reports on `read`,
// then waits for `gate` to be closed.
type slowBackend struct {
	school.Backend
	read chan struct{}
	gate chan struct{}

	mu    sync.Mutex
	calls int
}

func newSlowBackend(b school.Backend) *slowBackend {
	return &slowBackend{Backend: b, read: make(chan struct{}, 10), gate: make(chan struct{})}
}

func (b *slowBackend) answerLate() {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.read <- struct{}{}
	<-b.gate
}

func (b *slowBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *slowBackend) ListStudents(ctx context.Context) ([]school.Student, error) {
	students, err := b.Backend.ListStudents(ctx)
	b.answerLate()
	return students, err
}

func (b *slowBackend) ListHomeworks(ctx context.Context) ([]school.Homework, error) {
	homeworks, err := b.Backend.ListHomeworks(ctx)
	b.answerLate()
	return homeworks, err
}

// waitForRead fails the test unless a list call read the backend's records.
func (b *slowBackend) waitForRead(t *testing.T) {
	t.Helper()
	select {
	case <-b.read:
	case <-time.After(2 * time.Second):
		t.Fatal("no list call reached the backend")
	}
}

func lastNotice(t *testing.T, ns []Notice) Notice {
	t.Helper()
	if len(ns) == 0 {
		t.Fatalf("no notice")
	}
	return ns[len(ns)-1]
}

func TestDeps_check(t *testing.T) {
	_, deps, _ := setup(t)
	assert.NoError(t, deps.check())

	deps.Backend = nil
	assert.Error(t, deps.check())

	_, err := NewStudentsTable(Deps{}, EditableStyle)
	assert.Error(t, err)
	_, err = NewHomeworkTable(Deps{})
	assert.Error(t, err)
	_, err = NewAssignment(Deps{})
	assert.Error(t, err)
}

func TestDeps_logError(t *testing.T) {
	_, deps, logger := setup(t)
	deps.logError("boom", context.Canceled)

	entries := logger.Entries("error")
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "boom", entries[0].Msg)
		assert.Equal(t, []interface{}{context.Canceled, core.Person{ID: "session-1"}}, entries[0].Args)
	}
}

func Test_inflight(t *testing.T) {
	var f inflight
	assert.True(t, f.begin("create"))
	assert.False(t, f.begin("create"))
	assert.True(t, f.begin("delete:1"))
	f.end("create")
	assert.True(t, f.begin("create"))
}

func Test_sequencer(t *testing.T) {
	var s sequencer
	first := s.next()
	assert.True(t, s.isLatest(first))

	second := s.next()
	assert.False(t, s.isLatest(first))
	assert.True(t, s.isLatest(second))

	key := s.flightKey("students")
	assert.Equal(t, key, s.flightKey("students"), "loads share a flight until invalidated")
	assert.NotEqual(t, key, s.flightKey("homeworks"))

	s.invalidate()
	assert.False(t, s.isLatest(second))
	assert.NotEqual(t, key, s.flightKey("students"))
}

func Test_notices(t *testing.T) {
	var ns notices
	ns.push(NoticeSuccess, "ok")
	ns.push(NoticeError, "ko")

	got := ns.drain()
	assert.Equal(t, []Notice{{NoticeSuccess, "ok"}, {NoticeError, "ko"}}, got)
	assert.True(t, got[1].IsError())
	assert.Empty(t, ns.drain())
}

type countingView struct{ loads int }

func (v *countingView) Load(context.Context) error {
	v.loads++
	return nil
}

func TestSession_Mount(t *testing.T) {
	s := NewSession("abc")
	builds := 0
	build := func() (View, error) {
		builds++
		return new(countingView), nil
	}

	v1, fresh, err := s.Mount("express:students", false, build)
	assert.NoError(t, err)
	assert.True(t, fresh)

	v2, fresh, _ := s.Mount("express:students", false, build)
	assert.False(t, fresh)
	assert.Same(t, v1, v2)

	// mounting another view discards the previous one
	v3, fresh, _ := s.Mount("node:students", false, build)
	assert.True(t, fresh)
	assert.NotSame(t, v1, v3)
	_, ok := s.Mounted("express:students")
	assert.False(t, ok)

	v4, fresh, _ := s.Mount("node:students", true, build)
	assert.True(t, fresh)
	assert.NotSame(t, v3, v4)
	assert.Equal(t, 3, builds)

	s.Unmount()
	_, ok = s.Mounted("node:students")
	assert.False(t, ok)
}
