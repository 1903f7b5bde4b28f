// gatekeeper/model/identity.go
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Grant is the set of capability keys a subject holds for one application.
type Grant struct {
	App  string   `json:"app"`
	Keys []string `json:"keys"`
}

// UnmarshalJSON accepts keys either as plain strings or as {"key": "..."}
// objects, the shape older identity documents were written in.
func (g *Grant) UnmarshalJSON(data []byte) error {
	var raw struct {
		App  string            `json:"app"`
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	keys := make([]string, 0, len(raw.Keys))
	for _, k := range raw.Keys {
		var s string
		if err := json.Unmarshal(k, &s); err == nil {
			keys = append(keys, s)
			continue
		}
		var obj struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(k, &obj); err != nil {
			return fmt.Errorf("grant %q: unsupported key %s", raw.App, string(k))
		}
		keys = append(keys, obj.Key)
	}

	g.App = raw.App
	g.Keys = keys
	return nil
}

// Identity is the resolved subject behind a bearer token. It is validated
// before it enters the identity cache and is never mutated afterwards.
type Identity struct {
	Subject   string    `json:"sub"`
	IssuedAt  time.Time `json:"iat"`
	SyncToken string    `json:"X-CSRF-Token"`
	Grants    []Grant   `json:"grants"`
}

func (i *Identity) Validate() error {
	if i == nil {
		return errors.New("identity is nil")
	}
	if i.Subject == "" {
		return errors.New("identity subject cannot be empty")
	}
	if i.SyncToken == "" {
		return errors.New("identity sync token cannot be empty")
	}
	for n, g := range i.Grants {
		if g.App == "" {
			return fmt.Errorf("grant %d has no app", n)
		}
	}
	return nil
}

// KeysFor returns every key granted for app, without duplicates.
func (i *Identity) KeysFor(app string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, g := range i.Grants {
		if g.App != app {
			continue
		}
		for _, k := range g.Keys {
			if _, ok := seen[k]; ok || k == "" {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}
