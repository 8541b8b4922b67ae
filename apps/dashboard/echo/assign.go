package echodash

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolboard/core/school"
	"github.com/trezcool/schoolboard/core/views"
)

const assignmentView = "assign-homework"

type assignmentPages struct {
	s *server
}

func registerAssignmentRoutes(g *echo.Group, s *server) {
	p := assignmentPages{s: s}

	g.GET("", p.show)
	g.POST("/students/:id/open", p.openModal)
	g.POST("/close", p.closeModal)
	g.POST("/links", p.addLink)
	g.POST("/links/:homeworkId/delete", p.removeLink)
}

func (p assignmentPages) assignment(ctx echo.Context, remount bool) (*views.Assignment, error) {
	view, err := p.s.mount(ctx, assignmentView, remount, func(deps views.Deps) (views.View, error) {
		return views.NewAssignment(deps)
	})
	if err != nil {
		return nil, err
	}
	a, ok := view.(*views.Assignment)
	if !ok {
		return nil, errors.Errorf("unexpected %T view", view)
	}
	return a, nil
}

// Handlers

func (p assignmentPages) show(ctx echo.Context) error {
	a, err := p.assignment(ctx, ctx.QueryParam("reload") != "")
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "assign", p.s.newPage(ctx, viewURL(ctx, assignmentView), a.Snapshot()))
}

func (p assignmentPages) openModal(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	a, err := p.assignment(ctx, false)
	if err != nil {
		return err
	}
	_ = a.Open(ctx.Request().Context(), id)
	return redirectTo(ctx, assignmentView)
}

func (p assignmentPages) closeModal(ctx echo.Context) error {
	a, err := p.assignment(ctx, false)
	if err != nil {
		return err
	}
	a.Close(ctx.Request().Context())
	return redirectTo(ctx, assignmentView)
}

func (p assignmentPages) addLink(ctx echo.Context) error {
	var data school.NewLink
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLink")
	}
	a, err := p.assignment(ctx, false)
	if err != nil {
		return err
	}
	_ = a.AddLink(ctx.Request().Context(), data)
	return redirectTo(ctx, assignmentView)
}

func (p assignmentPages) removeLink(ctx echo.Context) error {
	hid, err := pathID(ctx, "homeworkId")
	if err != nil {
		return err
	}
	a, err := p.assignment(ctx, false)
	if err != nil {
		return err
	}
	_ = a.RemoveLink(ctx.Request().Context(), hid)
	return redirectTo(ctx, assignmentView)
}
