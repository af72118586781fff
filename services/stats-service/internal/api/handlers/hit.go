package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/baechuer/real-time-ressys/pkg/logger"
	"github.com/baechuer/real-time-ressys/services/stats-service/internal/domain"
)

var hitsRecorded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stats_service",
		Name:      "hits_recorded_total",
		Help:      "Hits stored, by app",
	},
	[]string{"app"},
)

type HitStore interface {
	Save(ctx context.Context, h domain.Hit) (domain.Hit, error)
	Stats(ctx context.Context, q domain.StatsQuery) ([]domain.ViewStats, error)
}

type HitHandler struct {
	store    HitStore
	validate *validator.Validate
}

func NewHitHandler(store HitStore) *HitHandler {
	return &HitHandler{store: store, validate: validator.New(validator.WithRequiredStructEnabled())}
}

type hitRequest struct {
	App       string `json:"app" validate:"required,max=64"`
	URI       string `json:"uri" validate:"required,max=512"`
	IP        string `json:"ip" validate:"required,ip"`
	Timestamp string `json:"timestamp" validate:"required,datetime=2006-01-02 15:04:05"`
}

type hitResponse struct {
	ID        int64  `json:"id"`
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

// Hit: POST /hit
func (h *HitHandler) Hit(w http.ResponseWriter, r *http.Request) {
	var req hitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "body", "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			badRequest(w, r, strings.ToLower(ve[0].Field()), "failed on "+ve[0].Tag())
			return
		}
		badRequest(w, r, "body", err.Error())
		return
	}
	ts, err := domain.ParseTime(req.Timestamp)
	if err != nil {
		badRequest(w, r, "timestamp", "must match "+domain.DateTimeLayout)
		return
	}

	saved, err := h.store.Save(r.Context(), domain.Hit{App: req.App, URI: req.URI, IP: req.IP, Timestamp: ts})
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Str("uri", req.URI).Msg("save hit failed")
		fail(w, r, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	hitsRecorded.WithLabelValues(saved.App).Inc()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, hitResponse{
		ID:        saved.ID,
		App:       saved.App,
		URI:       saved.URI,
		IP:        saved.IP,
		Timestamp: saved.Timestamp.UTC().Format(domain.DateTimeLayout),
	})
}

// Stats: GET /stats?start=&end=&uris=&unique=
// The body is a bare JSON array.
func (h *HitHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := domain.ParseTime(q.Get("start"))
	if err != nil {
		badRequest(w, r, "start", "required, format "+domain.DateTimeLayout)
		return
	}
	end, err := domain.ParseTime(q.Get("end"))
	if err != nil {
		badRequest(w, r, "end", "required, format "+domain.DateTimeLayout)
		return
	}

	query := domain.StatsQuery{Start: start, End: end}
	if v := q.Get("unique"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, r, "unique", "must be a boolean")
			return
		}
		query.Unique = b
	}
	for _, raw := range q["uris"] {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				query.URIs = append(query.URIs, u)
			}
		}
	}
	if err := query.Validate(); err != nil {
		badRequest(w, r, "end", err.Error())
		return
	}

	stats, err := h.store.Stats(r.Context(), query)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("query stats failed")
		fail(w, r, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	if stats == nil {
		stats = []domain.ViewStats{}
	}
	render.JSON(w, r, stats)
}
