// gatekeeper/audit/model.go
package audit

import (
	"time"

	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

// DecisionLog is one indexed security decision.
type DecisionLog struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	QName        string    `json:"qname"`
	Subject      string    `json:"subject,omitempty"`
	App          string    `json:"app,omitempty"`
	Allowed      bool      `json:"allowed"`
	Kind         string    `json:"kind,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Policies     []string  `json:"policies,omitempty"`
	RewrittenSQL string    `json:"rewritten_sql,omitempty"`
	DurationMs   float64   `json:"duration_ms"`
}

// DecisionQuery filters QueryDecisions. Empty fields match everything.
type DecisionQuery struct {
	From    time.Time
	To      time.Time
	Subject string
	QName   string
	Allowed *bool
	Limit   int
	Offset  int
}

func FromDecision(id string, d *pdp_model.Decision) DecisionLog {
	policies := make([]string, 0, len(d.Policies))
	for _, p := range d.Policies {
		policies = append(policies, string(p))
	}
	return DecisionLog{
		ID:           id,
		Timestamp:    d.EvaluatedAt,
		QName:        d.QName,
		Subject:      d.Subject,
		App:          d.App,
		Allowed:      d.Allowed,
		Kind:         d.Kind,
		Reason:       d.Reason,
		Policies:     policies,
		RewrittenSQL: d.RewrittenSQL,
		DurationMs:   float64(d.Duration) / float64(time.Millisecond),
	}
}
