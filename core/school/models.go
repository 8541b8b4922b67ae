package school

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolboard/core"
)

type Student struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Specialization string    `json:"specialization"`
	Year           string    `json:"year"`
	CreatedAt      null.Time `json:"createdAt"`
	UpdatedAt      null.Time `json:"updatedAt"`
}

type Homework struct {
	ID          int       `json:"id"`
	Subject     string    `json:"subject"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   null.Time `json:"createdAt"`
	UpdatedAt   null.Time `json:"updatedAt"`
}

// StudentHomeworkLink joins a Student and a Homework with a grade.
// It is identified by the (StudentID, HomeworkID) pair.
type StudentHomeworkLink struct {
	Grade      string    `json:"grade"`
	StudentID  int       `json:"StudentId"`
	HomeworkID int       `json:"HomeworkId"`
	CreatedAt  null.Time `json:"createdAt"`
	UpdatedAt  null.Time `json:"updatedAt"`
}

// AssignedHomework is a Homework as listed for a given Student, embedding its link attributes.
type AssignedHomework struct {
	Homework
	Link StudentHomeworkLink `json:"StudentHomework"`
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name           string `json:"name" form:"name" validate:"required"`
	Email          string `json:"email" form:"email" validate:"required,email"`
	Specialization string `json:"specialization" form:"specialization" validate:"required"`
	Year           string `json:"year" form:"year" validate:"required,numeric"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Specialization = core.CleanString(ns.Specialization)
	ns.Year = core.CleanString(ns.Year)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Empty fields are left untouched by the backend.
type UpdateStudent struct {
	Name           string `json:"name,omitempty" form:"name"`
	Email          string `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	Specialization string `json:"specialization,omitempty" form:"specialization"`
	Year           string `json:"year,omitempty" form:"year" validate:"omitempty,numeric"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Specialization = core.CleanString(us.Specialization)
	us.Year = core.CleanString(us.Year)
	return validate.Struct(us)
}

// Apply returns a copy of `s` with the set fields of `us`.
func (us UpdateStudent) Apply(s Student) Student {
	if us.Name != "" {
		s.Name = us.Name
	}
	if us.Email != "" {
		s.Email = us.Email
	}
	if us.Specialization != "" {
		s.Specialization = us.Specialization
	}
	if us.Year != "" {
		s.Year = us.Year
	}
	return s
}

// NewHomework contains information needed to create a new Homework.
type NewHomework struct {
	Subject     string `json:"subject" form:"subject" validate:"required"`
	Title       string `json:"title" form:"title" validate:"required"`
	Description string `json:"description" form:"description" validate:"required"`
}

func (nh *NewHomework) Validate(validate *validator.Validate) error {
	nh.Subject = core.CleanString(nh.Subject)
	nh.Title = core.CleanString(nh.Title)
	nh.Description = core.CleanString(nh.Description)
	return validate.Struct(nh)
}

// UpdateHomework defines what information may be provided to modify an existing Homework.
type UpdateHomework struct {
	Subject     string `json:"subject,omitempty" form:"subject"`
	Title       string `json:"title,omitempty" form:"title"`
	Description string `json:"description,omitempty" form:"description"`
}

func (uh *UpdateHomework) Validate(validate *validator.Validate) error {
	uh.Subject = core.CleanString(uh.Subject)
	uh.Title = core.CleanString(uh.Title)
	uh.Description = core.CleanString(uh.Description)
	return validate.Struct(uh)
}

func (uh UpdateHomework) Apply(h Homework) Homework {
	if uh.Subject != "" {
		h.Subject = uh.Subject
	}
	if uh.Title != "" {
		h.Title = uh.Title
	}
	if uh.Description != "" {
		h.Description = uh.Description
	}
	return h
}

// NewLink is the form used to link a Homework to a Student with a grade.
type NewLink struct {
	HomeworkID string `json:"homeworkId" form:"homeworkId" validate:"required"`
	Grade      string `json:"grade" form:"grade" validate:"required"`
}

func (nl *NewLink) Validate(validate *validator.Validate) error {
	nl.HomeworkID = core.CleanString(nl.HomeworkID)
	nl.Grade = core.CleanString(nl.Grade)
	if err := validate.Struct(nl); err != nil {
		return err
	}
	if _, err := core.ParseID(nl.HomeworkID); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "homeworkId", Error: errInvalidHomework})
	}
	return nil
}

var errInvalidHomework = "select a homework from the list"

// Payload returns the request body of the nested link creation endpoint.
// NewLink must have been validated.
func (nl NewLink) Payload() LinkPayload {
	id, _ := strconv.Atoi(nl.HomeworkID)
	return LinkPayload{HomeworkID: id, Grade: nl.Grade}
}

type LinkPayload struct {
	HomeworkID int    `json:"homeworkId"`
	Grade      string `json:"grade"`
}

// Label is how a Homework is shown in selection lists, eg. "Essay (History)".
func (h Homework) Label() string {
	return h.Title + " (" + h.Subject + ")"
}
