package postgres

import (
	"context"

	"github.com/frahmantamala/permission-management/internal"
	permissionDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/permission"
	"github.com/jmoiron/sqlx"
)

const statsSelect = `
SELECT
	COUNT(*) AS total,
	COUNT(CASE WHEN status = 'pending' THEN 1 END) AS pending,
	COUNT(CASE WHEN status = 'approved' THEN 1 END) AS approved,
	COUNT(CASE WHEN status = 'rejected' THEN 1 END) AS rejected
FROM permission_requests`

// StatsReader runs the aggregate queries with sqlx. Rebind adapts the
// placeholders to the driver behind the pool.
type StatsReader struct {
	db *sqlx.DB
}

func NewStatsReader(db *sqlx.DB) *StatsReader {
	return &StatsReader{db: db}
}

// Stats counts every request, or only requesterID's when it is set.
func (s *StatsReader) Stats(ctx context.Context, requesterID *int64) (*permissionDatamodel.Stats, error) {
	var stats permissionDatamodel.Stats
	var err error
	if requesterID != nil {
		err = s.db.GetContext(ctx, &stats, s.db.Rebind(statsSelect+" WHERE requester_id = ?"), *requesterID)
	} else {
		err = s.db.GetContext(ctx, &stats, statsSelect)
	}
	if err != nil {
		return nil, internal.NewInternalError("failed to compute permission stats", err)
	}
	return &stats, nil
}
