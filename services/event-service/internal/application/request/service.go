package request

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/audit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var moderatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ewm_requests_moderated_total",
		Help: "Participation requests moved out of PENDING by moderation, by outcome",
	},
	[]string{"outcome"}, // confirmed | rejected | cascade_rejected
)

type Service struct {
	tx       ports.TxRunner
	requests ports.RequestReader
	events   ports.EventReader
	users    ports.Users
	clock    ports.Clock
	audit    *audit.Logger
}

func New(tx ports.TxRunner, requests ports.RequestReader, events ports.EventReader, users ports.Users, clock ports.Clock, al *audit.Logger) *Service {
	if al == nil {
		al = audit.Default()
	}
	return &Service{tx: tx, requests: requests, events: events, users: users, clock: clock, audit: al}
}

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// RequestPayload is the body of request.created and request.canceled.
type RequestPayload struct {
	RequestID   string `json:"request_id"`
	EventID     string `json:"event_id"`
	RequesterID string `json:"requester_id"`
	Status      string `json:"status"`
}

// ModeratedPayload is the body of request.moderated.
type ModeratedPayload struct {
	EventID   string   `json:"event_id"`
	Confirmed []string `json:"confirmed"`
	Rejected  []string `json:"rejected"`
}
