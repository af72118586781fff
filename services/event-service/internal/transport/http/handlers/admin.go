package handlers

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/catalog"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/validate"
)

type AdminHandler struct {
	events  *event.Service
	catalog *catalog.Service
}

func NewAdminHandler(events *event.Service, cat *catalog.Service) *AdminHandler {
	return &AdminHandler{events: events, catalog: cat}
}

// SearchEvents: GET /admin/events
func (h *AdminHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	users, err := queryUUIDs(q, "users")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	categories, err := queryUUIDs(q, "categories")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	var states []domain.EventState
	for _, s := range queryList(q, "states") {
		st, err := domain.ParseEventState(s)
		if err != nil {
			response.Err(w, r, err)
			return
		}
		states = append(states, st)
	}
	start, err := queryTime(q, "rangeStart")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	end, err := queryTime(q, "rangeEnd")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	page, err := queryPage(q)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	views, err := h.events.AdminSearch(r.Context(), event.AdminQuery{
		Users:      users,
		States:     states,
		Categories: categories,
		RangeStart: start,
		RangeEnd:   end,
		Page:       page,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventFulls(views))
}

// PatchEvent: PATCH /admin/events/{eventId}
func (h *AdminHandler) PatchEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "eventId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	var req dto.UpdateEventReq
	if err := validate.Body(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	patch, err := toPatchCmd(req)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	cmd := event.AdminPatchCmd{PatchCmd: patch}
	if req.StateAction != nil {
		a, err := domain.ParseAdminStateAction(*req.StateAction)
		if err != nil {
			response.Err(w, r, err)
			return
		}
		cmd.StateAction = &a
	}

	v, err := h.events.PatchByAdmin(r.Context(), id, cmd)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventFull(*v))
}

// CreateUser: POST /admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.NewUserReq
	if err := validate.Body(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	u, err := h.catalog.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, dto.ToUser(u))
}

// ListUsers: GET /admin/users?ids=&from=&size=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids, err := queryUUIDs(q, "ids")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	page, err := queryPage(q)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	users, err := h.catalog.ListUsers(r.Context(), ids, page)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	out := make([]dto.UserDto, 0, len(users))
	for _, u := range users {
		out = append(out, dto.ToUser(u))
	}
	response.Data(w, http.StatusOK, out)
}

// DeleteUser: DELETE /admin/users/{userId}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if err := h.catalog.DeleteUser(r.Context(), id); err != nil {
		response.Err(w, r, err)
		return
	}
	response.NoContent(w)
}

// CreateCategory: POST /admin/categories
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req dto.CategoryReq
	if err := validate.Body(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	c, err := h.catalog.CreateCategory(r.Context(), req.Name)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, dto.ToCategory(c))
}

// RenameCategory: PATCH /admin/categories/{catId}
func (h *AdminHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "catId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	var req dto.CategoryReq
	if err := validate.Body(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	c, err := h.catalog.RenameCategory(r.Context(), id, req.Name)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToCategory(c))
}

// DeleteCategory: DELETE /admin/categories/{catId}
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "catId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		response.Err(w, r, err)
		return
	}
	response.NoContent(w)
}
