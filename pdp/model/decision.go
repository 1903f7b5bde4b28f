package model

import "time"

type Decision struct {
	QName        string        `json:"qname"`
	Subject      string        `json:"subject,omitempty"`
	App          string        `json:"app,omitempty"`
	Allowed      bool          `json:"allowed"`
	Kind         string        `json:"kind,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	Policies     []PolicyCode  `json:"policies,omitempty"`
	// RewrittenSQL is the narrowed statement with the token redacted.
	RewrittenSQL string        `json:"rewritten_sql,omitempty"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
	Duration     time.Duration `json:"duration"`
}
