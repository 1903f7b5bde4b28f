package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityUnmarshalLegacyGrants(t *testing.T) {
	doc := `{
		"sub": "alice",
		"iat": "2024-06-01T10:00:00Z",
		"X-CSRF-Token": "sync-1",
		"grants": [
			{"app": "YADA", "keys": [{"key": "admin"}, {"key": "reader"}]},
			{"app": "YADA", "keys": ["reader", "writer"]},
			{"app": "OTHER", "keys": ["x"]}
		]
	}`

	var id Identity
	require.NoError(t, json.Unmarshal([]byte(doc), &id))
	require.NoError(t, id.Validate())

	assert.Equal(t, "alice", id.Subject)
	assert.Equal(t, "sync-1", id.SyncToken)
	assert.Equal(t, []string{"admin", "reader", "writer"}, id.KeysFor("YADA"))
	assert.Equal(t, []string{"x"}, id.KeysFor("OTHER"))
	assert.Empty(t, id.KeysFor("NONE"))
}

func TestIdentityUnmarshalRejectsUnknownKeyShape(t *testing.T) {
	var id Identity
	err := json.Unmarshal([]byte(`{"sub":"a","grants":[{"app":"A","keys":[42]}]}`), &id)
	assert.Error(t, err)
}

func TestIdentityValidate(t *testing.T) {
	cases := []struct {
		name string
		id   *Identity
		ok   bool
	}{
		{"Nil", nil, false},
		{"NoSubject", &Identity{SyncToken: "s"}, false},
		{"NoSyncToken", &Identity{Subject: "a"}, false},
		{"GrantWithoutApp", &Identity{Subject: "a", SyncToken: "s", Grants: []Grant{{Keys: []string{"k"}}}}, false},
		{"Valid", &Identity{Subject: "a", SyncToken: "s", Grants: []Grant{{App: "YADA"}}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.id.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
