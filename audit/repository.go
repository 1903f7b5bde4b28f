// gatekeeper/audit/repository.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type Repository interface {
	LogDecision(ctx context.Context, log DecisionLog) error
	QueryDecisions(ctx context.Context, q DecisionQuery) ([]DecisionLog, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
	index    string
}

// NewElasticsearchRepository creates a repository writing to index at esURL.
func NewElasticsearchRepository(esURL, index string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient, index: index}, nil
}

// Ping checks that the cluster answers.
func (r *ElasticsearchRepository) Ping(ctx context.Context) error {
	res, err := r.esClient.Ping(r.esClient.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.String())
	}
	return nil
}

// LogDecision indexes one decision under its ID.
func (r *ElasticsearchRepository) LogDecision(ctx context.Context, log DecisionLog) error {
	data, err := json.Marshal(log)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: log.ID,
		Body:       bytes.NewReader(data),
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing decision: %s", res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source DecisionLog `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// QueryDecisions searches decisions in a time window, newest first.
func (r *ElasticsearchRepository) QueryDecisions(ctx context.Context, q DecisionQuery) ([]DecisionLog, error) {
	body, err := json.Marshal(buildSearch(q))
	if err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching decisions: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	logs := make([]DecisionLog, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		logs = append(logs, h.Source)
	}
	return logs, nil
}

func buildSearch(q DecisionQuery) map[string]interface{} {
	must := []interface{}{
		map[string]interface{}{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": q.From.Format(time.RFC3339),
					"lte": q.To.Format(time.RFC3339),
				},
			},
		},
	}
	if q.Subject != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"subject": q.Subject}})
	}
	if q.QName != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"qname": q.QName}})
	}
	if q.Allowed != nil {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"allowed": *q.Allowed}})
	}

	size := q.Limit
	if size <= 0 {
		size = 10
	}
	return map[string]interface{}{
		"from": q.Offset,
		"size": size,
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
}
