package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/schoolboard/core/school"
)

const defaultWidth = 100

var (
	terminalWidthFunc = terminalWidth // mockable

	errHelp           = errors.New("help provided")
	errUnknownBackend = errors.New("unknown backend")
)

type commandLine struct {
	backends map[string]school.Backend
	fallback string // backend used when -backend is not set
	validate *validator.Validate
	out      io.Writer
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  ping [-backend NAME]                                    - check that the backends answer")
	fmt.Fprintln(cli.out, "  students [-backend NAME]                                - list students")
	fmt.Fprintln(cli.out, "  homework [-backend NAME]                                - list homework")
	fmt.Fprintln(cli.out, "  assignments [-backend NAME] -student ID                 - list a student's homework")
	fmt.Fprintln(cli.out, "  assign [-backend NAME] -student ID -homework ID -grade G - assign homework to a student")
	fmt.Fprintln(cli.out, "  unassign [-backend NAME] -student ID -homework ID        - remove homework from a student")
	fmt.Fprintln(cli.out, "Backends: "+strings.Join(cli.backendNames(), ", "))
}

func (cli *commandLine) backendNames() []string {
	names := make([]string, 0, len(cli.backends))
	for name := range cli.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (cli *commandLine) backend(name string) (school.Backend, error) {
	if name == "" {
		name = cli.fallback
	}
	b, ok := cli.backends[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownBackend, name)
	}
	return b, nil
}

func (cli *commandLine) newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs, fs.String("backend", "", "The backend to query: "+strings.Join(cli.backendNames(), ", ")+".")
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	pingCmd, pingBackend := cli.newFlagSet("ping")

	studentsCmd, studentsBackend := cli.newFlagSet("students")

	homeworkCmd, homeworkBackend := cli.newFlagSet("homework")

	assignmentsCmd, assignmentsBackend := cli.newFlagSet("assignments")
	assignmentsStudent := assignmentsCmd.Int("student", 0, "The student's ID.")

	assignCmd, assignBackend := cli.newFlagSet("assign")
	assignStudent := assignCmd.Int("student", 0, "The student's ID.")
	assignHomework := assignCmd.String("homework", "", "The homework's ID.")
	assignGrade := assignCmd.String("grade", "", "The grade given to the student.")

	unassignCmd, unassignBackend := cli.newFlagSet("unassign")
	unassignStudent := unassignCmd.Int("student", 0, "The student's ID.")
	unassignHomework := unassignCmd.Int("homework", 0, "The homework's ID.")

	switch args[1] {
	case "ping":
		if err := parse(pingCmd, args[2:]); err != nil {
			return err
		}
		return cli.ping(*pingBackend)

	case "students":
		if err := parse(studentsCmd, args[2:]); err != nil {
			return err
		}
		return cli.listStudents(*studentsBackend)

	case "homework":
		if err := parse(homeworkCmd, args[2:]); err != nil {
			return err
		}
		return cli.listHomeworks(*homeworkBackend)

	case "assignments":
		if err := parse(assignmentsCmd, args[2:]); err != nil {
			return err
		}
		if *assignmentsStudent <= 0 {
			assignmentsCmd.Usage()
			return errHelp
		}
		return cli.listAssignments(*assignmentsBackend, *assignmentsStudent)

	case "assign":
		if err := parse(assignCmd, args[2:]); err != nil {
			return err
		}
		if *assignStudent <= 0 {
			assignCmd.Usage()
			return errHelp
		}
		return cli.assign(*assignBackend, *assignStudent, school.NewLink{HomeworkID: *assignHomework, Grade: *assignGrade})

	case "unassign":
		if err := parse(unassignCmd, args[2:]); err != nil {
			return err
		}
		if *unassignStudent <= 0 || *unassignHomework <= 0 {
			unassignCmd.Usage()
			return errHelp
		}
		return cli.unassign(*unassignBackend, *unassignStudent, *unassignHomework)

	default:
		cli.printUsage()
		return errHelp
	}
}
