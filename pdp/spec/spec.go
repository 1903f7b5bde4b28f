package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"

	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

const (
	KeyAuthPathRx     = "auth.path.rx"
	KeyPolicy         = "policy"
	KeyType           = "type"
	KeyQualifier      = "qualifier"
	KeyPredicate      = "predicate"
	KeyProtector      = "protector"
	KeyColumns        = "columns"
	KeyIndexes        = "indexes"
	KeyIndices        = "indices"
	KeyTokenValidator = "token.validator"
)

// ValidatorHMAC is the only token validator this service ships.
const ValidatorHMAC = "hmac"

var ErrInvalidSpec = errors.New("invalid security spec")

// SecuritySpec is the validated security configuration of one query.
type SecuritySpec struct {
	Type           pdp_model.PolicyType
	Qualifiers     []string
	Protector      string
	Predicate      string
	TokenValidator string
	Policy         string
	PathRx         *regexp.Regexp

	bindings Bindings
	raw      json.RawMessage
}

type document struct {
	AuthPathRx     string            `json:"auth.path.rx"`
	Policy         string            `json:"policy"`
	Type           string            `json:"type"`
	Qualifier      []string          `json:"qualifier"`
	Predicate      string            `json:"predicate"`
	Protector      string            `json:"protector"`
	Columns        []string          `json:"columns"`
	Indexes        []json.RawMessage `json:"indexes"`
	Indices        []json.RawMessage `json:"indices"`
	TokenValidator string            `json:"token.validator"`
}

// Parse validates raw against the closed key set and the policy rules, and
// returns the typed spec. Every failure wraps ErrInvalidSpec.
func Parse(raw []byte) (*SecuritySpec, error) {
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := schema.Validate(generic); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSpec, ve.Error())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	s := &SecuritySpec{
		Qualifiers:     doc.Qualifier,
		Protector:      doc.Protector,
		Predicate:      doc.Predicate,
		TokenValidator: doc.TokenValidator,
		Policy:         doc.Policy,
		raw:            append(json.RawMessage(nil), raw...),
	}

	if doc.Type != "" {
		t, err := pdp_model.ParsePolicyType(doc.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		s.Type = t
	}

	if s.TokenValidator != "" && s.TokenValidator != ValidatorHMAC {
		return nil, fmt.Errorf("%w: unsupported token validator %q", ErrInvalidSpec, s.TokenValidator)
	}

	if doc.AuthPathRx != "" {
		rx, err := regexp.Compile(doc.AuthPathRx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, KeyAuthPathRx, err)
		}
		s.PathRx = rx
	}

	indexes, err := indexStrings(doc.Indexes, doc.Indices)
	if err != nil {
		return nil, err
	}
	b, err := NewBindings(doc.Columns, indexes, doc.Predicate)
	if err != nil {
		return nil, err
	}
	s.bindings = b

	return s, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(raw string) *SecuritySpec {
	s, err := Parse([]byte(raw))
	if err != nil {
		panic(err)
	}
	return s
}

func indexStrings(indexes, indices []json.RawMessage) ([]string, error) {
	if len(indexes) > 0 && len(indices) > 0 {
		return nil, fmt.Errorf("%w: %q and %q are mutually exclusive", ErrInvalidSpec, KeyIndexes, KeyIndices)
	}
	list := indexes
	if len(list) == 0 {
		list = indices
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n int
		if err := json.Unmarshal(item, &n); err != nil {
			return nil, fmt.Errorf("%w: invalid index %s", ErrInvalidSpec, string(item))
		}
		out = append(out, strconv.Itoa(n))
	}
	return out, nil
}

func (s *SecuritySpec) HasAuthorization() bool { return len(s.Qualifiers) > 0 }
func (s *SecuritySpec) HasExecution() bool     { return s.Protector != "" }
func (s *SecuritySpec) HasContent() bool       { return s.Predicate != "" }

// Bindings returns the parameter wiring declared by the spec.
func (s *SecuritySpec) Bindings() Bindings {
	return s.bindings
}

// PathAllowed applies auth.path.rx. A spec without it allows every path.
func (s *SecuritySpec) PathAllowed(path string) bool {
	if s.PathRx == nil {
		return true
	}
	return s.PathRx.MatchString(path)
}

// Records flattens the spec into the uniform record shape, authorization
// records first.
func (s *SecuritySpec) Records(target string) []pdp_model.PolicyRecord {
	var records []pdp_model.PolicyRecord
	for _, q := range s.Qualifiers {
		records = append(records, pdp_model.PolicyRecord{Target: target, Code: pdp_model.CodeAuthorization, Type: s.Type, Ref: q})
	}
	if s.HasExecution() {
		records = append(records, pdp_model.PolicyRecord{Target: target, Code: pdp_model.CodeExecution, Type: s.Type, Ref: s.Protector})
	}
	if s.HasContent() {
		records = append(records, pdp_model.PolicyRecord{Target: target, Code: pdp_model.CodeContent, Type: s.Type, Ref: s.Predicate})
	}
	return records
}

// MarshalJSON returns the document the spec was parsed from, unchanged.
func (s *SecuritySpec) MarshalJSON() ([]byte, error) {
	if len(s.raw) == 0 {
		return []byte("{}"), nil
	}
	return s.raw, nil
}

func (s *SecuritySpec) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
