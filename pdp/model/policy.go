package model

import (
	"fmt"
	"strings"
)

// PolicyType says whether a qualifier or protector result opens or closes access.
type PolicyType string

const (
	Whitelist PolicyType = "whitelist"
	Blacklist PolicyType = "blacklist"
)

func ParsePolicyType(s string) (PolicyType, error) {
	switch PolicyType(strings.TrimSpace(s)) {
	case Whitelist:
		return Whitelist, nil
	case Blacklist:
		return Blacklist, nil
	default:
		return "", fmt.Errorf("unrecognized policy type %q", s)
	}
}

// PolicyCode identifies which evaluator consumes a PolicyRecord.
type PolicyCode string

const (
	CodeAuthorization PolicyCode = "A"
	CodeExecution     PolicyCode = "E"
	CodeContent       PolicyCode = "C"
)

func ParsePolicyCode(s string) (PolicyCode, error) {
	switch PolicyCode(strings.ToUpper(strings.TrimSpace(s))) {
	case CodeAuthorization:
		return CodeAuthorization, nil
	case CodeExecution:
		return CodeExecution, nil
	case CodeContent:
		return CodeContent, nil
	default:
		return "", fmt.Errorf("unrecognized policy code %q", s)
	}
}

// Lock is a qualifier attached to a query or app.
type Lock struct {
	Qualifier string     `json:"qualifier"`
	Type      PolicyType `json:"type"`
}

// PolicyRecord is the uniform shape consumed by the evaluators, whether it was
// flattened from a SecuritySpec or read from the A11N store.
//
// Ref holds the qualifier for A records, the protector qname for E records and
// the predicate template for C records.
type PolicyRecord struct {
	Target string     `json:"target"`
	Code   PolicyCode `json:"policy"`
	Type   PolicyType `json:"type"`
	Ref    string     `json:"qname"`
}

// Locks extracts the authorization locks from a record set.
func Locks(records []PolicyRecord) []Lock {
	var locks []Lock
	for _, r := range records {
		if r.Code == CodeAuthorization {
			locks = append(locks, Lock{Qualifier: r.Ref, Type: r.Type})
		}
	}
	return locks
}

// Filter returns the records carrying the given code, in order.
func Filter(records []PolicyRecord, code PolicyCode) []PolicyRecord {
	var out []PolicyRecord
	for _, r := range records {
		if r.Code == code {
			out = append(out, r)
		}
	}
	return out
}
