// gatekeeper/util/validation_util.go

package util

import (
	"fmt"
	"strings"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateQueryRequest(req model.QueryRequest) error {
	if strings.TrimSpace(req.QName) == "" {
		return fmt.Errorf("qname cannot be empty")
	}
	if len(req.Params) > 0 && len(req.JSON) > 0 {
		return fmt.Errorf("params and json are mutually exclusive")
	}
	for i, row := range req.JSON {
		if len(row) == 0 {
			return fmt.Errorf("json row %d is empty", i)
		}
	}
	return nil
}

func (v *ValidationUtil) ValidateLogin(req model.LoginRequest) error {
	if strings.TrimSpace(req.Username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if req.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	return nil
}

// ValidateLock checks a legacy lock before it is stored. A and E locks need a
// reference: the qualifier and the protector qname respectively.
func (v *ValidationUtil) ValidateLock(r pdp_model.PolicyRecord) error {
	if strings.TrimSpace(r.Target) == "" {
		return fmt.Errorf("target cannot be empty")
	}
	if _, err := pdp_model.ParsePolicyCode(string(r.Code)); err != nil {
		return err
	}
	if _, err := pdp_model.ParsePolicyType(string(r.Type)); err != nil {
		return err
	}
	if r.Code != pdp_model.CodeContent && strings.TrimSpace(r.Ref) == "" {
		return fmt.Errorf("%s lock needs a qname", r.Code)
	}
	return nil
}
