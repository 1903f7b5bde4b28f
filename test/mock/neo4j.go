// test/mock/neo4j.go
package mock

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"
)

// MockCypherRunner is a mock implementation of dao.CypherRunner
type MockCypherRunner struct {
	mock.Mock
}

func (m *MockCypherRunner) Read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	args := m.Called(ctx, cypher, params)
	records, _ := args.Get(0).([]*neo4j.Record)
	return records, args.Error(1)
}

func (m *MockCypherRunner) Write(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	args := m.Called(ctx, cypher, params)
	records, _ := args.Get(0).([]*neo4j.Record)
	return records, args.Error(1)
}

// Record builds a neo4j record from alternating key, value pairs.
func Record(kv ...any) *neo4j.Record {
	rec := &neo4j.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		rec.Keys = append(rec.Keys, kv[i].(string))
		rec.Values = append(rec.Values, kv[i+1])
	}
	return rec
}
