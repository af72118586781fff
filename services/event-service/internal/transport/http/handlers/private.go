package handlers

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/request"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/validate"
)

// PrivateHandler serves /users/{userId}/...; the router has already checked
// that the caller may act as userId.
type PrivateHandler struct {
	events   *event.Service
	requests *request.Service
}

func NewPrivateHandler(events *event.Service, requests *request.Service) *PrivateHandler {
	return &PrivateHandler{events: events, requests: requests}
}

func (h *PrivateHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	page, err := queryPage(r.URL.Query())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	views, err := h.events.OwnerEvents(r.Context(), userID, page)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventShorts(views))
}

func (h *PrivateHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	var req dto.NewEventReq
	if err := validate.Body(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	date, err := dto.ParseTime(req.EventDate)
	if err != nil {
		response.Err(w, r, invalidParam("eventDate", "must match "+domain.DateTimeLayout))
		return
	}

	cmd := event.CreateCmd{
		Title:             req.Title,
		Annotation:        req.Annotation,
		Description:       req.Description,
		CategoryID:        canonicalID(req.Category),
		Location:          event.LocationInput{Lat: *req.Location.Lat, Lon: *req.Location.Lon},
		RequestModeration: true,
		EventDate:         date,
	}
	if req.Paid != nil {
		cmd.Paid = *req.Paid
	}
	if req.ParticipantLimit != nil {
		cmd.ParticipantLimit = *req.ParticipantLimit
	}
	if req.RequestModeration != nil {
		cmd.RequestModeration = *req.RequestModeration
	}

	v, err := h.events.Create(r.Context(), userID, cmd)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, dto.ToEventFull(*v))
}

func (h *PrivateHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := userAndEvent(w, r)
	if !ok {
		return
	}
	v, err := h.events.OwnerEvent(r.Context(), userID, eventID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventFull(*v))
}

func (h *PrivateHandler) PatchEvent(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := userAndEvent(w, r)
	if !ok {
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
	cmd := event.OwnerPatchCmd{PatchCmd: patch}
	if req.StateAction != nil {
		a, err := domain.ParseOwnerStateAction(*req.StateAction)
		if err != nil {
			response.Err(w, r, err)
			return
		}
		cmd.StateAction = &a
	}

	v, err := h.events.PatchByOwner(r.Context(), userID, eventID, cmd)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToEventFull(*v))
}

func (h *PrivateHandler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := userAndEvent(w, r)
	if !ok {
		return
	}
	reqs, err := h.requests.ListForEvent(r.Context(), userID, eventID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToRequests(reqs))
}

func (h *PrivateHandler) ModerateRequests(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := userAndEvent(w, r)
	if !ok {
		return
	}
	var req dto.RequestStatusUpdateReq
	if err := validate.Body(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	status, err := domain.ParseModerationStatus(req.Status)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	res, err := h.requests.Moderate(r.Context(), userID, eventID, request.ModerateCmd{
		RequestIDs: canonicalIDs(req.RequestIDs),
		Status:     status,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToModerationResult(res))
}

func (h *PrivateHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	reqs, err := h.requests.ListOwn(r.Context(), userID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToRequests(reqs))
}

// CreateRequest: POST /users/{userId}/requests?eventId=
func (h *PrivateHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	eventID, ok := validate.CanonicalUUID(r.URL.Query().Get("eventId"))
	if !ok {
		response.Err(w, r, invalidParam("eventId", "must be uuid"))
		return
	}
	req, err := h.requests.Create(r.Context(), userID, eventID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, dto.ToRequest(req))
}

// CancelRequest: PATCH /users/{userId}/requests/{requestId}/cancel
func (h *PrivateHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	requestID, err := pathID(r, "requestId")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	req, err := h.requests.Cancel(r.Context(), userID, requestID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToRequest(req))
}

func userAndEvent(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID, err := pathID(r, "userId")
	if err != nil {
		response.Err(w, r, err)
		return "", "", false
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		response.Err(w, r, err)
		return "", "", false
	}
	return userID, eventID, true
}
