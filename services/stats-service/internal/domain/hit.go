package domain

import (
	"errors"
	"time"
)

// DateTimeLayout is the wire format for every timestamp the service accepts or returns.
const DateTimeLayout = "2006-01-02 15:04:05"

var ErrInvalidRange = errors.New("start must not be after end")

// Hit is one recorded request to a uri of some app.
type Hit struct {
	ID        int64
	App       string
	URI       string
	IP        string
	Timestamp time.Time
}

// ViewStats is the number of hits for one (app, uri) pair.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

// StatsQuery selects hits in [Start, End]. Empty URIs means every uri.
// Unique counts distinct ips instead of raw hits.
type StatsQuery struct {
	Start  time.Time
	End    time.Time
	URIs   []string
	Unique bool
}

func (q StatsQuery) Validate() error {
	if q.Start.After(q.End) {
		return ErrInvalidRange
	}
	return nil
}

func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(DateTimeLayout, s, time.UTC)
}
