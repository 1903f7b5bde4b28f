package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

// Querier is the slice of a pgx pool the DAOs need.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const selectLocks = `SELECT DISTINCT a.target, a.policy, a.type, a.qname
FROM yada_a11n a
WHERE a.target = $1
ORDER BY a.policy, a.qname`

const insertLock = `INSERT INTO yada_a11n (target, policy, type, qname)
SELECT $1::text, $2::text, $3::text, $4::text
WHERE NOT EXISTS (
    SELECT 1 FROM yada_a11n
    WHERE target = $1 AND policy = $2 AND type = $3 AND qname = $4
)`

const deleteLock = `DELETE FROM yada_a11n
WHERE target = $1 AND policy = $2 AND type = $3 AND qname = $4`

// LockDAO reads policy records from the yada_a11n table.
type LockDAO struct {
	DB Querier
}

func NewLockDAO(db Querier) *LockDAO {
	return &LockDAO{DB: db}
}

// PolicyRecords returns every record whose target equals target exactly.
func (dao *LockDAO) PolicyRecords(ctx context.Context, target string) ([]pdp_model.PolicyRecord, error) {
	start := time.Now()

	rows, err := dao.DB.Query(ctx, selectLocks, target)
	if err != nil {
		return nil, fmt.Errorf("failed to query locks for %q: %w", target, err)
	}
	defer rows.Close()

	var records []pdp_model.PolicyRecord
	for rows.Next() {
		var t, code, typ, ref string
		if err := rows.Scan(&t, &code, &typ, &ref); err != nil {
			return nil, fmt.Errorf("failed to scan lock row: %w", err)
		}
		if r, ok := newRecord(t, code, typ, ref); ok {
			records = append(records, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read locks for %q: %w", target, err)
	}

	logger.Debug("Locks retrieved",
		zap.String("target", target),
		zap.Int("count", len(records)),
		zap.Duration("duration", time.Since(start)))
	return records, nil
}

// AddLock stores r unless an identical row exists.
func (dao *LockDAO) AddLock(ctx context.Context, r pdp_model.PolicyRecord) error {
	if _, err := dao.DB.Exec(ctx, insertLock, r.Target, string(r.Code), string(r.Type), r.Ref); err != nil {
		return fmt.Errorf("failed to add lock on %q: %w", r.Target, err)
	}
	logger.Info("Lock added",
		zap.String("target", r.Target),
		zap.String("policy", string(r.Code)),
		zap.String("qname", r.Ref))
	return nil
}

// RemoveLock deletes every row equal to r and reports whether any existed.
func (dao *LockDAO) RemoveLock(ctx context.Context, r pdp_model.PolicyRecord) (bool, error) {
	tag, err := dao.DB.Exec(ctx, deleteLock, r.Target, string(r.Code), string(r.Type), r.Ref)
	if err != nil {
		return false, fmt.Errorf("failed to remove lock on %q: %w", r.Target, err)
	}
	return tag.RowsAffected() > 0, nil
}
