package dao

import (
	"strings"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

// newRecord normalizes one stored row. Rows with an unknown policy code are
// skipped; an unknown type is kept so the evaluator can reject it.
func newRecord(target, code, typ, ref string) (pdp_model.PolicyRecord, bool) {
	c, err := pdp_model.ParsePolicyCode(code)
	if err != nil {
		logger.Warn("Skipping policy record", zap.String("target", target), zap.Error(err))
		return pdp_model.PolicyRecord{}, false
	}
	return pdp_model.PolicyRecord{
		Target: target,
		Code:   c,
		Type:   pdp_model.PolicyType(strings.ToLower(strings.TrimSpace(typ))),
		Ref:    strings.TrimSpace(ref),
	}, true
}
