package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kanrihq/kanri-backend/internal/apperr"
	"github.com/kanrihq/kanri-backend/internal/repository"
	"github.com/kanrihq/kanri-backend/internal/response"
)

// MemberHandler exposes the admin member-management endpoints: paginated
// listing with keyword search, detail lookup and soft delete.
type MemberHandler struct {
	Members *repository.MemberRepo
}

func NewMemberHandler(members *repository.MemberRepo) *MemberHandler {
	return &MemberHandler{Members: members}
}

// pageResponse is the pagination envelope around a page of members.
type pageResponse struct {
	Content       []memberResponse `json:"content"`
	Page          int              `json:"page"`
	Size          int              `json:"size"`
	TotalElements int64            `json:"totalElements"`
	TotalPages    int              `json:"totalPages"`
	First         bool             `json:"first"`
	Last          bool             `json:"last"`
	HasNext       bool             `json:"hasNext"`
	HasPrevious   bool             `json:"hasPrevious"`
}

// List returns a page of members. Query params: keyword (matches username,
// email or full name), page (zero-based, default 0), size (default 10,
// capped at 100).
func (h *MemberHandler) List(c echo.Context) error {
	page := queryInt(c, "page", 0)
	size := queryInt(c, "size", 10)
	if size > 100 {
		size = 100
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pg, err := h.Members.PagedSearch(ctx, c.QueryParam("keyword"), page, size)
	if err != nil {
		return err
	}

	content := make([]memberResponse, 0, len(pg.Content))
	for _, m := range pg.Content {
		content = append(content, toMemberResponse(m))
	}
	return response.OK(c, "ok", pageResponse{
		Content:       content,
		Page:          pg.Page,
		Size:          pg.Size,
		TotalElements: pg.TotalElements,
		TotalPages:    pg.TotalPages,
		First:         pg.First,
		Last:          pg.Last,
		HasNext:       pg.HasNext,
		HasPrevious:   pg.HasPrevious,
	})
}

// Get returns one member by id.
func (h *MemberHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return apperr.ErrMemberNotFound
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Members.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrMemberNotFound
	}
	if err != nil {
		return err
	}
	return response.OK(c, "ok", toMemberResponse(m))
}

// Delete soft-deletes a member: the account is deactivated and stamped,
// never physically removed.
func (h *MemberHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return apperr.ErrMemberNotFound
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Members.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrMemberNotFound
		}
		return err
	}
	return response.OK(c, "member deleted", nil)
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
