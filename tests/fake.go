package testutil

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolboard/core/school"
)

// Backend is an in-memory school-records REST API, served over HTTP for tests.
// Responses can be forced per request ("METHOD /path") with FailWith and Corrupt.
type Backend struct {
	mu        sync.Mutex
	pkCount   int
	students  map[int]*school.Student
	homeworks map[int]*school.Homework
	links     map[int]map[int]school.StudentHomeworkLink // studentID -> homeworkID -> link
	failures  map[string]int
	corrupt   map[string]bool
	holds     map[string]chan struct{}
	requests  []string

	app *echo.Echo
	srv *httptest.Server
}

func NewBackend() *Backend {
	b := &Backend{
		students:  make(map[int]*school.Student),
		homeworks: make(map[int]*school.Homework),
		links:     make(map[int]map[int]school.StudentHomeworkLink),
		failures:  make(map[string]int),
		corrupt:   make(map[string]bool),
		holds:     make(map[string]chan struct{}),
		app:       echo.New(),
	}
	b.app.HideBanner = true
	b.app.Use(b.intercept)

	api := b.app.Group("/api")
	api.GET("/students", b.listStudents)
	api.POST("/students", b.createStudent)
	api.PATCH("/students/:id", b.updateStudent)
	api.DELETE("/students/:id", b.deleteStudent)
	api.GET("/homeworks", b.listHomeworks)
	api.POST("/homeworks", b.createHomework)
	api.PATCH("/homeworks/:id", b.updateHomework)
	api.DELETE("/homeworks/:id", b.deleteHomework)
	api.GET("/students/:id/homeworks", b.listStudentHomeworks)
	api.POST("/students/:id/homeworks", b.assignHomework)
	api.DELETE("/students/:id/homeworks/:homeworkId", b.unassignHomework)
	return b
}

// Start serves the backend until the test ends and returns its root URL.
func (b *Backend) Start(t *testing.T) string {
	b.srv = httptest.NewServer(b.app)
	t.Cleanup(b.srv.Close)
	return b.srv.URL
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.app.ServeHTTP(w, r)
}

// FailWith makes every `method path` request answer `status` with an error body.
func (b *Backend) FailWith(method, path string, status int) {
	b.mu.Lock()
	b.failures[method+" "+path] = status
	b.mu.Unlock()
}

// Corrupt makes every `method path` request answer 200 with an unparseable body.
func (b *Backend) Corrupt(method, path string) {
	b.mu.Lock()
	b.corrupt[method+" "+path] = true
	b.mu.Unlock()
}

// Hold blocks `method path` requests until the returned func is called.
func (b *Backend) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.holds[method+" "+path] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.holds, method+" "+path)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Reset clears forced responses.
func (b *Backend) Reset() {
	b.mu.Lock()
	b.failures = make(map[string]int)
	b.corrupt = make(map[string]bool)
	b.mu.Unlock()
}

// Requests returns the received requests, eg. "GET /api/students".
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// CountRequests returns how many `method path` requests were received.
func (b *Backend) CountRequests(method, path string) int {
	key := method + " " + path
	var n int
	for _, r := range b.Requests() {
		if r == key {
			n++
		}
	}
	return n
}

func (b *Backend) intercept(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		key := ctx.Request().Method + " " + ctx.Request().URL.Path

		b.mu.Lock()
		b.requests = append(b.requests, key)
		status := b.failures[key]
		corrupt := b.corrupt[key]
		hold := b.holds[key]
		b.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-ctx.Request().Context().Done():
				return ctx.Request().Context().Err()
			}
		}
		if status != 0 {
			return ctx.JSON(status, echo.Map{"error": http.StatusText(status)})
		}
		if corrupt {
			return ctx.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(`{"id": `))
		}
		return next(ctx)
	}
}

func now() null.Time {
	return null.TimeFrom(time.Now().UTC().Truncate(time.Millisecond))
}

func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

var errNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")

// students

// SeedStudent stores a student as if created through the API.
func (b *Backend) SeedStudent(name, email, specialization, year string) school.Student {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pkCount++
	s := school.Student{
		ID:             b.pkCount,
		Name:           name,
		Email:          email,
		Specialization: specialization,
		Year:           year,
		CreatedAt:      now(),
		UpdatedAt:      now(),
	}
	b.students[s.ID] = &s
	return s
}

// Students returns the stored students ordered by id.
func (b *Backend) Students() []school.Student {
	b.mu.Lock()
	defer b.mu.Unlock()
	students := make([]school.Student, 0, len(b.students))
	for _, s := range b.students {
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students
}

func (b *Backend) listStudents(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, b.Students())
}

func (b *Backend) createStudent(ctx echo.Context) error {
	var ns school.NewStudent
	if err := ctx.Bind(&ns); err != nil {
		return err
	}
	if ns.Name == "" || ns.Email == "" || ns.Specialization == "" || ns.Year == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing fields")
	}
	s := b.SeedStudent(ns.Name, ns.Email, ns.Specialization, ns.Year)
	return ctx.JSON(http.StatusCreated, s)
}

func (b *Backend) updateStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var us school.UpdateStudent
	if err = ctx.Bind(&us); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.students[id]
	if !ok {
		return errNotFound
	}
	updated := us.Apply(*s)
	updated.UpdatedAt = now()
	b.students[id] = &updated
	return ctx.JSON(http.StatusOK, updated)
}

func (b *Backend) deleteStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.students[id]; !ok {
		return errNotFound
	}
	delete(b.students, id)
	delete(b.links, id)
	return ctx.NoContent(http.StatusNoContent)
}

// homework

// SeedHomework stores a homework as if created through the API.
func (b *Backend) SeedHomework(subject, title, description string) school.Homework {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pkCount++
	h := school.Homework{
		ID:          b.pkCount,
		Subject:     subject,
		Title:       title,
		Description: description,
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}
	b.homeworks[h.ID] = &h
	return h
}

// Homeworks returns the stored homework ordered by id.
func (b *Backend) Homeworks() []school.Homework {
	b.mu.Lock()
	defer b.mu.Unlock()
	homeworks := make([]school.Homework, 0, len(b.homeworks))
	for _, h := range b.homeworks {
		homeworks = append(homeworks, *h)
	}
	sort.Slice(homeworks, func(i, j int) bool { return homeworks[i].ID < homeworks[j].ID })
	return homeworks
}

func (b *Backend) listHomeworks(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, b.Homeworks())
}

func (b *Backend) createHomework(ctx echo.Context) error {
	var nh school.NewHomework
	if err := ctx.Bind(&nh); err != nil {
		return err
	}
	if nh.Subject == "" || nh.Title == "" || nh.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing fields")
	}
	h := b.SeedHomework(nh.Subject, nh.Title, nh.Description)
	return ctx.JSON(http.StatusCreated, h)
}

func (b *Backend) updateHomework(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var uh school.UpdateHomework
	if err = ctx.Bind(&uh); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.homeworks[id]
	if !ok {
		return errNotFound
	}
	updated := uh.Apply(*h)
	updated.UpdatedAt = now()
	b.homeworks[id] = &updated
	return ctx.JSON(http.StatusOK, updated)
}

func (b *Backend) deleteHomework(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.homeworks[id]; !ok {
		return errNotFound
	}
	delete(b.homeworks, id)
	for _, links := range b.links {
		delete(links, id)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// links

// SeedLink links a stored homework to a stored student.
func (b *Backend) SeedLink(studentID, homeworkID int, grade string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.link(studentID, homeworkID, grade)
}

// link requires b.mu.
func (b *Backend) link(studentID, homeworkID int, grade string) {
	if b.links[studentID] == nil {
		b.links[studentID] = make(map[int]school.StudentHomeworkLink)
	}
	b.links[studentID][homeworkID] = school.StudentHomeworkLink{
		Grade:      grade,
		StudentID:  studentID,
		HomeworkID: homeworkID,
		CreatedAt:  now(),
		UpdatedAt:  now(),
	}
}

// StudentHomeworks returns the homework linked to a student, ordered by homework id.
func (b *Backend) StudentHomeworks(studentID int) []school.AssignedHomework {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := make([]school.AssignedHomework, 0, len(b.links[studentID]))
	for hid, link := range b.links[studentID] {
		if h, ok := b.homeworks[hid]; ok {
			list = append(list, school.AssignedHomework{Homework: *h, Link: link})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (b *Backend) listStudentHomeworks(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	b.mu.Lock()
	_, ok := b.students[id]
	b.mu.Unlock()
	if !ok {
		return errNotFound
	}
	return ctx.JSON(http.StatusOK, b.StudentHomeworks(id))
}

func (b *Backend) assignHomework(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var payload school.LinkPayload
	if err = ctx.Bind(&payload); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.students[id]; !ok {
		return errNotFound
	}
	if _, ok := b.homeworks[payload.HomeworkID]; !ok {
		return errNotFound
	}
	b.link(id, payload.HomeworkID, payload.Grade)
	return ctx.JSON(http.StatusCreated, b.links[id][payload.HomeworkID])
}

func (b *Backend) unassignHomework(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	hid, err := pathID(ctx, "homeworkId")
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.links[id][hid]; !ok {
		return errNotFound
	}
	delete(b.links[id], hid)
	return ctx.NoContent(http.StatusNoContent)
}
