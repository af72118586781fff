package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/pkg/logger"
	"github.com/baechuer/real-time-ressys/pkg/requestctx"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

var (
	ErrTimeout     = errors.New("stats_timeout")
	ErrUnavailable = errors.New("stats_unavailable")
)

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stats server responded %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL string
	// ReadTimeout bounds GET /stats, WriteTimeout bounds POST /hit.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client talks to the stats service over its HTTP contract.
type Client struct {
	base string
	http *http.Client
	cfg  Config
}

var _ ports.StatsClient = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		// per-request timeouts come from the context
		http: &http.Client{},
		cfg:  cfg,
	}
}

type hitDTO struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

type viewStatDTO struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

func (c *Client) AddHit(ctx context.Context, h ports.Hit) error {
	body, err := json.Marshal(hitDTO{
		App:       h.App,
		URI:       h.URI,
		IP:        h.IP,
		Timestamp: h.Timestamp.UTC().Format(domain.DateTimeLayout),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/hit", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req, c.cfg.WriteTimeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(resp)
	}
	return nil
}

func (c *Client) ViewCounts(ctx context.Context, start, end time.Time, uris []string, unique bool) ([]ports.ViewStat, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(domain.DateTimeLayout))
	q.Set("end", end.UTC().Format(domain.DateTimeLayout))
	for _, u := range uris {
		q.Add("uris", u)
	}
	q.Set("unique", strconv.FormatBool(unique))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/stats?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, req, c.cfg.ReadTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var dtos []viewStatDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	out := make([]ports.ViewStat, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, ports.ViewStat{App: d.App, URI: d.URI, Hits: d.Hits})
	}
	return out, nil
}

// do propagates the request id and bounds the call. The caller must
// close the body of a non-nil response.
func (c *Client) do(ctx context.Context, req *http.Request, timeout time.Duration) (*http.Response, error) {
	if rid := requestctx.GetRequestID(ctx); rid != "" {
		req.Header.Set(requestctx.HeaderRequestID, rid)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := c.http.Do(req)
	log := logger.Ctx(ctx).With().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start)).
		Logger()

	if err != nil {
		cancel()
		log.Warn().Err(err).Msg("stats_request_failed")
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrTimeout
		}
		return nil, ErrUnavailable
	}
	log.Debug().Int("status", resp.StatusCode).Msg("stats_request_completed")

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// cancelOnClose releases the per-request timeout once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
