package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baechuer/real-time-ressys/services/stats-service/internal/domain"
)

type HitRepo struct {
	pool *pgxpool.Pool
}

func NewHitRepo(pool *pgxpool.Pool) *HitRepo {
	return &HitRepo{pool: pool}
}

func (r *HitRepo) Save(ctx context.Context, h domain.Hit) (domain.Hit, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO hits (app, uri, ip, created)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, h.App, h.URI, h.IP, h.Timestamp.UTC()).Scan(&h.ID)
	if err != nil {
		return domain.Hit{}, fmt.Errorf("insert hit: %w", err)
	}
	return h, nil
}

// Stats groups hits in [q.Start, q.End] by (app, uri), most viewed first.
func (r *HitRepo) Stats(ctx context.Context, q domain.StatsQuery) ([]domain.ViewStats, error) {
	count := "COUNT(*)"
	if q.Unique {
		count = "COUNT(DISTINCT ip)"
	}
	args := []any{q.Start.UTC(), q.End.UTC()}
	where := "created BETWEEN $1 AND $2"
	if len(q.URIs) > 0 {
		args = append(args, q.URIs)
		where += " AND uri = ANY($3)"
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT app, uri, %s AS hits
		FROM hits
		WHERE %s
		GROUP BY app, uri
		ORDER BY hits DESC, uri
	`, count, where), args...)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	out := []domain.ViewStats{}
	for rows.Next() {
		var s domain.ViewStats
		if err := rows.Scan(&s.App, &s.URI, &s.Hits); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
