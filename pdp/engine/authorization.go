package engine

import (
	"crypto/subtle"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

// lockSet is the outcome of partitioning a query's locks: qualifiers that open
// access, and whether any blacklist lock was present.
type lockSet struct {
	allow       map[string]struct{}
	blacklisted bool
}

func partition(locks []pdp_model.Lock) lockSet {
	white := make(map[string]struct{})
	black := make(map[string]struct{})
	for _, l := range locks {
		switch l.Type {
		case pdp_model.Whitelist:
			white[l.Qualifier] = struct{}{}
		case pdp_model.Blacklist:
			black[l.Qualifier] = struct{}{}
		}
	}

	allow := make(map[string]struct{}, len(white))
	for q := range white {
		if _, denied := black[q]; !denied {
			allow[q] = struct{}{}
		}
	}
	return lockSet{allow: allow, blacklisted: len(black) > 0}
}

func (s lockSet) opens(keys []string) bool {
	if len(s.allow) == 0 {
		return true
	}
	for _, k := range keys {
		if _, ok := s.allow[k]; ok {
			return true
		}
	}
	return false
}

// Authorize decides whether identity may run a query guarded by locks, for the
// grants it holds in app. syncToken is the value the request presented.
//
// A grant for app is always required. Blacklisted qualifiers never open
// access, and a blacklist lock keeps the grant requirement even when nothing
// is left in the allow set.
func Authorize(identity *model.Identity, locks []pdp_model.Lock, syncToken, app string) error {
	if identity == nil {
		return sec_errors.NewSecurityError(sec_errors.KindIdentity, "no identity", nil)
	}
	if syncToken == "" || subtle.ConstantTimeCompare([]byte(syncToken), []byte(identity.SyncToken)) != 1 {
		return sec_errors.NewSecurityError(sec_errors.KindSyncToken, "synchronizer token mismatch", nil)
	}

	for _, l := range locks {
		if l.Type != pdp_model.Whitelist && l.Type != pdp_model.Blacklist {
			return sec_errors.NewSecurityError(sec_errors.KindConfiguration, "lock "+l.Qualifier+" has unrecognized type "+string(l.Type), nil)
		}
	}

	set := partition(locks)
	keys := identity.KeysFor(app)
	if len(keys) == 0 {
		reason := "no grant for app " + app
		if set.blacklisted {
			reason += " (required by blacklist lock)"
		}
		return sec_errors.NewSecurityError(sec_errors.KindGrant, reason, nil)
	}
	if !set.opens(keys) {
		return sec_errors.NewSecurityError(sec_errors.KindGrant, "grants for app "+app+" do not open any lock", nil)
	}
	return nil
}
