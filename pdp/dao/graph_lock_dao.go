package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	echo_neo4j "github.com/dev-mohitbeniwal/echo/gatekeeper/model/neo4j"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

// CypherRunner runs Cypher in read or write transactions and returns every
// record.
type CypherRunner interface {
	Read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
	Write(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
}

// GraphLockDAO reads policy records stored as
// (:Target {name})-[:LOCKED_BY]->(:A11N {policy, type, qname}).
type GraphLockDAO struct {
	Runner CypherRunner
}

func NewGraphLockDAO(runner CypherRunner) *GraphLockDAO {
	return &GraphLockDAO{Runner: runner}
}

var selectGraphLocks = `
MATCH (t:` + echo_neo4j.LabelTarget + ` {` + echo_neo4j.AttrName + `: $target})-[:` + echo_neo4j.RelLockedBy + `]->(l:` + echo_neo4j.LabelA11N + `)
RETURN DISTINCT t.` + echo_neo4j.AttrName + ` AS target,
       l.` + echo_neo4j.AttrPolicy + ` AS policy,
       l.` + echo_neo4j.AttrType + ` AS type,
       l.` + echo_neo4j.AttrQName + ` AS qname
ORDER BY policy, qname`

var mergeGraphLock = `
MERGE (t:` + echo_neo4j.LabelTarget + ` {` + echo_neo4j.AttrName + `: $target})
MERGE (t)-[:` + echo_neo4j.RelLockedBy + `]->(l:` + echo_neo4j.LabelA11N + ` {` +
	echo_neo4j.AttrPolicy + `: $policy, ` +
	echo_neo4j.AttrType + `: $type, ` +
	echo_neo4j.AttrQName + `: $qname})
RETURN l.` + echo_neo4j.AttrPolicy + ` AS policy`

var deleteGraphLock = `
MATCH (:` + echo_neo4j.LabelTarget + ` {` + echo_neo4j.AttrName + `: $target})-[:` + echo_neo4j.RelLockedBy + `]->(l:` + echo_neo4j.LabelA11N + ` {` +
	echo_neo4j.AttrPolicy + `: $policy, ` +
	echo_neo4j.AttrType + `: $type, ` +
	echo_neo4j.AttrQName + `: $qname})
WITH l
DETACH DELETE l
RETURN count(*) AS removed`

func (dao *GraphLockDAO) PolicyRecords(ctx context.Context, target string) ([]pdp_model.PolicyRecord, error) {
	start := time.Now()

	result, err := dao.Runner.Read(ctx, selectGraphLocks, map[string]any{"target": target})
	if err != nil {
		return nil, fmt.Errorf("failed to query graph locks for %q: %w", target, err)
	}

	var records []pdp_model.PolicyRecord
	for _, rec := range result {
		t, err := stringValue(rec, "target")
		if err != nil {
			return nil, err
		}
		code, err := stringValue(rec, "policy")
		if err != nil {
			return nil, err
		}
		typ, err := stringValue(rec, "type")
		if err != nil {
			return nil, err
		}
		ref, err := stringValue(rec, "qname")
		if err != nil {
			return nil, err
		}
		if r, ok := newRecord(t, code, typ, ref); ok {
			records = append(records, r)
		}
	}

	logger.Debug("Graph locks retrieved",
		zap.String("target", target),
		zap.Int("count", len(records)),
		zap.Duration("duration", time.Since(start)))
	return records, nil
}

func lockParams(r pdp_model.PolicyRecord) map[string]any {
	return map[string]any{
		"target": r.Target,
		"policy": string(r.Code),
		"type":   string(r.Type),
		"qname":  r.Ref,
	}
}

// AddLock links an A11N node equal to r to its target, creating either as
// needed.
func (dao *GraphLockDAO) AddLock(ctx context.Context, r pdp_model.PolicyRecord) error {
	if _, err := dao.Runner.Write(ctx, mergeGraphLock, lockParams(r)); err != nil {
		return fmt.Errorf("failed to add graph lock on %q: %w", r.Target, err)
	}
	logger.Info("Graph lock added",
		zap.String("target", r.Target),
		zap.String("policy", string(r.Code)),
		zap.String("qname", r.Ref))
	return nil
}

// RemoveLock deletes the A11N nodes equal to r under its target.
func (dao *GraphLockDAO) RemoveLock(ctx context.Context, r pdp_model.PolicyRecord) (bool, error) {
	result, err := dao.Runner.Write(ctx, deleteGraphLock, lockParams(r))
	if err != nil {
		return false, fmt.Errorf("failed to remove graph lock on %q: %w", r.Target, err)
	}
	if len(result) == 0 {
		return false, nil
	}
	v, _ := result[0].Get("removed")
	n, _ := v.(int64)
	return n > 0, nil
}

func stringValue(rec *neo4j.Record, key string) (string, error) {
	v, ok := rec.Get(key)
	if !ok {
		return "", fmt.Errorf("lock record has no %q column", key)
	}
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("lock record column %q is %T, not string", key, v)
	}
	return s, nil
}
