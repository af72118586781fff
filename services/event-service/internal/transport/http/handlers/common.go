package handlers

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/validate"
)

func invalidParam(name, msg string) error {
	return domain.ErrValidationMeta("invalid param", map[string]string{name: msg})
}

func pathID(r *http.Request, name string) (string, error) {
	id, ok := validate.CanonicalUUID(chi.URLParam(r, name))
	if !ok {
		return "", invalidParam(name, "must be uuid")
	}
	return id, nil
}

// queryList accepts both repeated params and comma separated values.
func queryList(q url.Values, name string) []string {
	var out []string
	for _, raw := range q[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func queryUUIDs(q url.Values, name string) ([]string, error) {
	ids := queryList(q, name)
	for i, raw := range ids {
		id, ok := validate.CanonicalUUID(raw)
		if !ok {
			return nil, invalidParam(name, "must be a list of uuids")
		}
		ids[i] = id
	}
	return ids, nil
}

// canonicalID normalizes a body id that already passed the "id" tag.
func canonicalID(raw string) string {
	if id, ok := validate.CanonicalUUID(raw); ok {
		return id
	}
	return raw
}

func canonicalIDs(ids []string) []string {
	out := make([]string, len(ids))
	for i, raw := range ids {
		out[i] = canonicalID(raw)
	}
	return out
}

func queryInt(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidParam(name, "must be an integer")
	}
	return n, nil
}

func queryBool(q url.Values, name string) (*bool, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, invalidParam(name, "must be true or false")
	}
	return &b, nil
}

func queryTime(q url.Values, name string) (*time.Time, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	t, err := dto.ParseTime(v)
	if err != nil {
		return nil, invalidParam(name, "must match "+domain.DateTimeLayout)
	}
	return &t, nil
}

// queryPage reads from (>= 0, default 0) and size (> 0, default 10).
func queryPage(q url.Values) (domain.Page, error) {
	from, err := queryInt(q, "from", 0)
	if err != nil {
		return domain.Page{}, err
	}
	if from < 0 {
		return domain.Page{}, invalidParam("from", "must be >= 0")
	}
	size, err := queryInt(q, "size", domain.DefaultPageSize)
	if err != nil {
		return domain.Page{}, err
	}
	if size <= 0 {
		return domain.Page{}, invalidParam("size", "must be > 0")
	}
	return domain.Page{From: from, Size: size}.Normalize(), nil
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func toPatchCmd(req dto.UpdateEventReq) (event.PatchCmd, error) {
	cmd := event.PatchCmd{
		Title:             req.Title,
		Annotation:        req.Annotation,
		Description:       req.Description,
		Paid:              req.Paid,
		ParticipantLimit:  req.ParticipantLimit,
		RequestModeration: req.RequestModeration,
	}
	if req.Category != nil {
		id := canonicalID(*req.Category)
		cmd.CategoryID = &id
	}
	if req.EventDate != nil {
		t, err := dto.ParseTime(*req.EventDate)
		if err != nil {
			return event.PatchCmd{}, invalidParam("eventDate", "must match "+domain.DateTimeLayout)
		}
		cmd.EventDate = &t
	}
	if req.Location != nil {
		cmd.Location = &event.LocationInput{Lat: *req.Location.Lat, Lon: *req.Location.Lon}
	}
	return cmd, nil
}
