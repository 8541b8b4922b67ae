// Package restapi implements school.Backend over the school-records REST API.
package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/schoolboard/core"
	"github.com/trezcool/schoolboard/core/school"
)

const (
	studentsPath  = "/api/students"
	homeworksPath = "/api/homeworks"
)

type backend struct {
	name    string
	rootURL string
	client  *rest.Client
}

var _ school.Backend = (*backend)(nil) // interface compliance check

// NewBackend returns a school.Backend calling the REST API found at `rootURL`.
// An optional *http.Client may be given (eg. in tests); `timeout` is applied to the default one.
func NewBackend(name, rootURL string, timeout time.Duration, httpClient ...*http.Client) (school.Backend, error) {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(name, "name"),
		vala.StringNotEmpty(rootURL, "rootURL"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "validating backend arguments")
	}

	u, err := url.Parse(rootURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s backend root URL", name)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("%s backend root URL must be http(s): %q", name, rootURL)
	}

	hc := &http.Client{Timeout: timeout}
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	}
	return &backend{
		name:    name,
		rootURL: strings.TrimRight(rootURL, "/"),
		client:  &rest.Client{HTTPClient: hc},
	}, nil
}

func (b *backend) Name() string { return b.name }

// do sends one request and decodes the JSON response into `out` (if not nil).
// Every failure is returned as a *school.BackendError.
func (b *backend) do(ctx context.Context, method rest.Method, path string, body, out interface{}) error {
	op := string(method) + " " + path
	req := rest.Request{
		Method:  method,
		BaseURL: b.rootURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "encoding %s body", op)
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := b.client.SendWithContext(ctx, req)
	if err != nil {
		return &school.BackendError{Kind: school.KindNetwork, Op: op, Err: err}
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return &school.BackendError{Kind: school.KindStatus, Op: op, Status: res.StatusCode, Body: res.Body}
	}
	if out != nil {
		if err = json.Unmarshal([]byte(res.Body), out); err != nil {
			return &school.BackendError{Kind: school.KindDecode, Op: op, Status: res.StatusCode, Err: err}
		}
	}
	return nil
}

func studentPath(id int) string { return fmt.Sprintf("%s/%d", studentsPath, id) }

func homeworkPath(id int) string { return fmt.Sprintf("%s/%d", homeworksPath, id) }

func studentHomeworksPath(studentID int) string { return studentPath(studentID) + "/homeworks" }

// Students

func (b *backend) ListStudents(ctx context.Context) ([]school.Student, error) {
	students := make([]school.Student, 0)
	if err := b.do(ctx, rest.Get, studentsPath, nil, &students); err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	return students, nil
}

func (b *backend) CreateStudent(ctx context.Context, ns school.NewStudent) (school.Student, error) {
	var s school.Student
	if err := b.do(ctx, rest.Post, studentsPath, ns, &s); err != nil {
		return school.Student{}, errors.Wrap(err, "creating student")
	}
	return s, nil
}

func (b *backend) UpdateStudent(ctx context.Context, id int, us school.UpdateStudent) (school.Student, error) {
	var s school.Student
	if err := b.do(ctx, rest.Patch, studentPath(id), us, &s); err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	return s, nil
}

func (b *backend) DeleteStudent(ctx context.Context, id int) error {
	return errors.Wrap(b.do(ctx, rest.Delete, studentPath(id), nil, nil), "deleting student")
}

// Homework

func (b *backend) ListHomeworks(ctx context.Context) ([]school.Homework, error) {
	homeworks := make([]school.Homework, 0)
	if err := b.do(ctx, rest.Get, homeworksPath, nil, &homeworks); err != nil {
		return nil, errors.Wrap(err, "listing homeworks")
	}
	return homeworks, nil
}

func (b *backend) CreateHomework(ctx context.Context, nh school.NewHomework) (school.Homework, error) {
	var h school.Homework
	if err := b.do(ctx, rest.Post, homeworksPath, nh, &h); err != nil {
		return school.Homework{}, errors.Wrap(err, "creating homework")
	}
	return h, nil
}

func (b *backend) UpdateHomework(ctx context.Context, id int, uh school.UpdateHomework) (school.Homework, error) {
	var h school.Homework
	if err := b.do(ctx, rest.Patch, homeworkPath(id), uh, &h); err != nil {
		return school.Homework{}, errors.Wrap(err, "updating homework")
	}
	return h, nil
}

func (b *backend) DeleteHomework(ctx context.Context, id int) error {
	return errors.Wrap(b.do(ctx, rest.Delete, homeworkPath(id), nil, nil), "deleting homework")
}

// Student's homework

func (b *backend) ListStudentHomeworks(ctx context.Context, studentID int) ([]school.AssignedHomework, error) {
	homeworks := make([]school.AssignedHomework, 0)
	if err := b.do(ctx, rest.Get, studentHomeworksPath(studentID), nil, &homeworks); err != nil {
		return nil, errors.Wrap(err, "listing student homeworks")
	}
	return homeworks, nil
}

func (b *backend) AssignHomework(ctx context.Context, studentID int, link school.LinkPayload) error {
	return errors.Wrap(b.do(ctx, rest.Post, studentHomeworksPath(studentID), link, nil), "assigning homework")
}

func (b *backend) UnassignHomework(ctx context.Context, studentID, homeworkID int) error {
	path := fmt.Sprintf("%s/%d", studentHomeworksPath(studentID), homeworkID)
	return errors.Wrap(b.do(ctx, rest.Delete, path, nil, nil), "unassigning homework")
}

// NewBackends returns one school.Backend per configured backend root, keyed by name.
func NewBackends(confs []core.BackendConfig, timeout time.Duration) (map[string]school.Backend, error) {
	backends := make(map[string]school.Backend, len(confs))
	for _, bc := range confs {
		b, err := NewBackend(bc.Name, bc.URL, timeout)
		if err != nil {
			return nil, err
		}
		backends[bc.Name] = b
	}
	return backends, nil
}
