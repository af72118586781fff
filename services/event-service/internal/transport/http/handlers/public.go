package handlers

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/catalog"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/response"
)

type PublicHandler struct {
	events  *event.Service
	catalog *catalog.Service
}

func NewPublicHandler(events *event.Service, cat *catalog.Service) *PublicHandler {
	return &PublicHandler{events: events, catalog: cat}
}

// SearchEvents: GET /events
func (h *PublicHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	categories, err := queryUUIDs(q, "categories")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	paid, err := queryBool(q, "paid")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	onlyAvailable, err := queryBool(q, "onlyAvailable")
	if err != nil {
		response.Err(w, r, err)
		return
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
	sortMode, err := event.ParseSortMode(q.Get("sort"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	page, err := queryPage(q)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	query := event.PublicQuery{
		Text:       q.Get("text"),
		Categories: categories,
		Paid:       paid,
		RangeStart: start,
		RangeEnd:   end,
		Sort:       sortMode,
		Page:       page,
	}
	if onlyAvailable != nil {
		query.OnlyAvailable = *onlyAvailable
	}

	views, err := h.events.PublicSearch(r.Context(), query, event.Visit{IP: clientIP(r), URI: r.URL.Path})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventShorts(views))
}

// GetEvent: GET /events/{id}
func (h *PublicHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	v, err := h.events.PublicEvent(r.Context(), id, event.Visit{IP: clientIP(r)})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventFull(*v))
}

// ListCategories: GET /categories
func (h *PublicHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r.URL.Query())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	cats, err := h.catalog.ListCategories(r.Context(), page)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	out := make([]dto.CategoryDto, 0, len(cats))
	for _, c := range cats {
		out = append(out, dto.ToCategory(c))
	}
	response.Data(w, http.StatusOK, out)
}

// GetCategory: GET /categories/{catId}
func (h *PublicHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "catId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	c, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToCategory(c))
}
