package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/schoolboard/core/school"
)

const cmdTimeout = 10 * time.Second

// ping lists the students of every backend (or only `name`) concurrently.
func (cli *commandLine) ping(name string) error {
	names := cli.backendNames()
	if name != "" {
		b, err := cli.backend(name)
		if err != nil {
			return err
		}
		names = []string{b.Name()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	counts := make([]int, len(names))
	errs := make([]error, len(names))
	var g errgroup.Group
	for i, n := range names {
		i, b := i, cli.backends[n]
		g.Go(func() error {
			students, err := b.ListStudents(ctx)
			counts[i], errs[i] = len(students), err
			return err
		})
	}
	err := g.Wait()

	for i, n := range names {
		if errs[i] != nil {
			fmt.Fprintf(cli.out, "%s: FAIL (%v)\n", n, errs[i])
		} else {
			fmt.Fprintf(cli.out, "%s: ok (%d students)\n", n, counts[i])
		}
	}
	return err
}

func (cli *commandLine) listStudents(name string) error {
	b, err := cli.backend(name)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	students, err := b.ListStudents(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		rows = append(rows, []string{fmt.Sprint(s.ID), s.Name, s.Email, s.Specialization, s.Year})
	}
	cli.printTable([]string{"ID", "NAME", "EMAIL", "SPECIALIZATION", "YEAR"}, rows, "No students found.")
	return nil
}

func (cli *commandLine) listHomeworks(name string) error {
	b, err := cli.backend(name)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	homeworks, err := b.ListHomeworks(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(homeworks))
	for _, h := range homeworks {
		rows = append(rows, []string{fmt.Sprint(h.ID), h.Subject, h.Title, h.Description})
	}
	cli.printTable([]string{"ID", "SUBJECT", "TITLE", "DESCRIPTION"}, rows, "No homework found.")
	return nil
}

func (cli *commandLine) listAssignments(name string, studentID int) error {
	b, err := cli.backend(name)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	homeworks, err := b.ListStudentHomeworks(ctx, studentID)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(homeworks))
	for _, h := range homeworks {
		rows = append(rows, []string{fmt.Sprint(h.ID), h.Label(), h.Link.Grade})
	}
	cli.printTable([]string{"ID", "HOMEWORK", "GRADE"}, rows, "No homework assigned to this student.")
	return nil
}

func (cli *commandLine) assign(name string, studentID int, nl school.NewLink) error {
	b, err := cli.backend(name)
	if err != nil {
		return err
	}
	if err := nl.Validate(cli.validate); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	if err := b.AssignHomework(ctx, studentID, nl.Payload()); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Homework added successfully.")
	return nil
}

func (cli *commandLine) unassign(name string, studentID, homeworkID int) error {
	b, err := cli.backend(name)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	if err := b.UnassignHomework(ctx, studentID, homeworkID); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Homework deleted successfully.")
	return nil
}

// printTable prints aligned columns, cutting lines at the terminal's width.
func (cli *commandLine) printTable(header []string, rows [][]string, empty string) {
	if len(rows) == 0 {
		fmt.Fprintln(cli.out, empty)
		return
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()

	width := terminalWidthFunc()
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		line = strings.TrimRight(line, " ")
		if r := []rune(line); width > 3 && len(r) > width {
			line = string(r[:width-3]) + "..."
		}
		fmt.Fprintln(cli.out, line)
	}
}
