package model

import "strings"

// Header is a single request header as received, name case preserved.
type Header struct {
	Name  string
	Value string
}

// Headers keeps request order, which matters for bearer resolution.
type Headers []Header

// Get returns the first value whose name matches exactly.
func (h Headers) Get(name string) (string, bool) {
	for _, hdr := range h {
		if hdr.Name == name {
			return hdr.Value, true
		}
	}
	return "", false
}

// GetFold is Get with a case-insensitive name match.
func (h Headers) GetFold(name string) (string, bool) {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Params carries the primary query's parameters in one of two syntaxes:
// positional values, or named JSON rows.
type Params struct {
	Values []string            `json:"params,omitempty"`
	Rows   []map[string]string `json:"json,omitempty"`
}

func (p Params) IsNamed() bool {
	return len(p.Rows) > 0
}

func (p Params) IsEmpty() bool {
	return len(p.Values) == 0 && len(p.Rows) == 0
}

// SecurityRequest is everything the gatekeeper reads from the inbound request.
type SecurityRequest struct {
	Path    string
	Headers Headers
	Cookies map[string]string
	Params  Params
}

func (r *SecurityRequest) Cookie(name string) (string, bool) {
	if r.Cookies == nil {
		return "", false
	}
	v, ok := r.Cookies[name]
	return v, ok
}
