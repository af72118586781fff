package handlers

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/baechuer/real-time-ressys/pkg/requestctx"
)

type errorDetail struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, msg string, meta map[string]string) {
	render.Status(r, status)
	render.JSON(w, r, errorBody{Error: errorDetail{
		Code:      code,
		Message:   msg,
		Meta:      meta,
		RequestID: requestctx.GetRequestID(r.Context()),
	}})
}

func badRequest(w http.ResponseWriter, r *http.Request, field, msg string) {
	fail(w, r, http.StatusBadRequest, "validation_error", "invalid request", map[string]string{field: msg})
}
