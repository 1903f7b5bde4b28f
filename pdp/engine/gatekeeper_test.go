package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/audit"
	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/cache"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/spec"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/sqlast"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/token"
)

const testSecret = "engine-test-secret-engine-test-secret"

type mockProtector struct {
	mock.Mock
}

func (m *mockProtector) CountRows(ctx context.Context, qname string, params pdp_model.Params) (int, error) {
	args := m.Called(ctx, qname, params)
	return args.Int(0), args.Error(1)
}

type mockLockSource struct {
	mock.Mock
}

func (m *mockLockSource) PolicyRecords(ctx context.Context, target string) ([]pdp_model.PolicyRecord, error) {
	args := m.Called(ctx, target)
	records, _ := args.Get(0).([]pdp_model.PolicyRecord)
	return records, args.Error(1)
}

type recordingPublisher struct {
	mu        sync.Mutex
	decisions []*pdp_model.Decision
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if eventType == EventSecurityDecision {
		p.decisions = append(p.decisions, payload.(*pdp_model.Decision))
	}
}

type fixture struct {
	gk        *Gatekeeper
	tokens    *token.Resolver
	store     *cache.Store
	protector *mockProtector
	events    *recordingPublisher
}

func newFixture(t *testing.T, locks LockSource) *fixture {
	t.Helper()
	tokens, err := token.NewResolver(testSecret, "yada", "")
	require.NoError(t, err)

	f := &fixture{
		tokens:    tokens,
		store:     cache.NewStore(cache.NewIdentityCache(time.Hour), nil),
		protector: new(mockProtector),
		events:    &recordingPublisher{},
	}
	f.gk = NewGatekeeper(tokens, f.store, locks, f.protector, sqlast.NewCockroachParser(), f.events)
	return f
}

// login issues a token for sub and caches its identity with the given keys.
func (f *fixture) login(t *testing.T, sub string, keys ...string) string {
	t.Helper()
	tok, err := f.tokens.Issue(sub, time.Now(), time.Hour)
	require.NoError(t, err)
	id := &model.Identity{Subject: sub, SyncToken: "sync-" + sub, IssuedAt: time.Now()}
	if len(keys) > 0 {
		id.Grants = []model.Grant{{App: "YADA", Keys: keys}}
	}
	require.NoError(t, f.store.Put(context.Background(), tok, id, 0))
	return tok
}

func request(tok, sync string) *pdp_model.SecurityRequest {
	req := &pdp_model.SecurityRequest{Path: "/api/v1/query"}
	if tok != "" {
		req.Headers = append(req.Headers, pdp_model.Header{Name: "Authorization", Value: "Bearer " + tok})
	}
	if sync != "" {
		req.Headers = append(req.Headers, pdp_model.Header{Name: "X-CSRF-Token", Value: sync})
	}
	return req
}

func query(rawSpec string) *model.Query {
	q := &model.Query{QName: "YADA select docs", App: "YADA", SQL: "SELECT id, title FROM docs WHERE x = 1"}
	if rawSpec != "" {
		q.Security = spec.MustParse(rawSpec)
	}
	return q
}

func TestEvaluateRequiresToken(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.gk.Evaluate(context.Background(), query(`{"type":"whitelist","qualifier":["admin"]}`), request("", ""))
	assertKind(t, err, sec_errors.KindToken)
	assert.ErrorIs(t, err, sec_errors.ErrUnauthorized)
	assert.ErrorIs(t, err, token.ErrNoToken)
}

func TestEvaluateRejectsUncachedToken(t *testing.T) {
	f := newFixture(t, nil)
	tok, err := f.tokens.Issue("mallory", time.Now(), time.Hour)
	require.NoError(t, err)

	_, err = f.gk.Evaluate(context.Background(), query(`{"type":"whitelist","qualifier":["admin"]}`), request(tok, "sync-mallory"))
	assertKind(t, err, sec_errors.KindIdentity)
}

func TestEvaluateRejectsForgedToken(t *testing.T) {
	f := newFixture(t, nil)
	other, err := token.NewResolver("some-other-secret-some-other-secret", "yada", "")
	require.NoError(t, err)
	tok, err := other.Issue("alice", time.Now(), time.Hour)
	require.NoError(t, err)

	// even a cached identity does not rescue a token with a bad signature
	require.NoError(t, f.store.Put(context.Background(), tok, &model.Identity{Subject: "alice", SyncToken: "s"}, 0))

	_, err = f.gk.Evaluate(context.Background(), query(""), request(tok, "s"))
	assertKind(t, err, sec_errors.KindToken)
}

func TestEvaluateIsIdempotentWithinTTL(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "admin")
	raw := `{"type":"whitelist","qualifier":["admin"]}`

	first, err := f.gk.Evaluate(context.Background(), query(raw), request(tok, "sync-alice"))
	require.NoError(t, err)
	second, err := f.gk.Evaluate(context.Background(), query(raw), request(tok, "sync-alice"))
	require.NoError(t, err)

	assert.True(t, first.Allowed)
	assert.Equal(t, first.Allowed, second.Allowed)
	assert.Equal(t, first.Subject, second.Subject)
	assert.Equal(t, []pdp_model.PolicyCode{pdp_model.CodeAuthorization}, second.Policies)
	assert.Len(t, f.events.decisions, 2)
}

func TestEvaluateWhitelistFlip(t *testing.T) {
	f := newFixture(t, nil)
	raw := `{"type":"whitelist","qualifier":["role"]}`

	withRole := f.login(t, "alice", "role")
	_, err := f.gk.Evaluate(context.Background(), query(raw), request(withRole, "sync-alice"))
	assert.NoError(t, err)

	withoutRole := f.login(t, "bob", "other")
	d, err := f.gk.Evaluate(context.Background(), query(raw), request(withoutRole, "sync-bob"))
	assertKind(t, err, sec_errors.KindGrant)
	assert.False(t, d.Allowed)
}

func TestEvaluateSyncTokenMismatch(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "admin")

	_, err := f.gk.Evaluate(context.Background(), query(`{"type":"whitelist","qualifier":["admin"]}`), request(tok, "sync-bob"))
	assertKind(t, err, sec_errors.KindSyncToken)
}

func TestEvaluatePathRegex(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "admin")
	q := query(`{"auth.path.rx":"^/internal/"}`)

	_, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
	assertKind(t, err, sec_errors.KindPath)
}

func TestEvaluateExecutionPolicy(t *testing.T) {
	cases := []struct {
		name    string
		typ     string
		rows    int
		allowed bool
	}{
		{"WhitelistNoRows", "whitelist", 0, false},
		{"WhitelistRows", "whitelist", 1, true},
		{"BlacklistNoRows", "blacklist", 0, true},
		{"BlacklistRows", "blacklist", 3, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			tok := f.login(t, "alice", "reader")
			q := query(`{"type":"` + tc.typ + `","protector":"YADA check owner","indexes":["0"]}`)
			req := request(tok, "sync-alice")
			req.Params = pdp_model.Params{Values: []string{"doc-7"}}

			f.protector.On("CountRows", mock.Anything, "YADA check owner", pdp_model.Params{Values: []string{"doc-7"}}).
				Return(tc.rows, nil).Once()

			_, err := f.gk.Evaluate(context.Background(), q, req)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assertKind(t, err, sec_errors.KindProtector)
			}
			f.protector.AssertExpectations(t)
		})
	}
}

func TestEvaluateExecutionDefaultsToToken(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "reader")
	// index 1 is past the single live parameter, so the caller's token is bound
	q := query(`{"type":"whitelist","protector":"p","indexes":["0","1","getLoggedUser()"]}`)
	req := request(tok, "sync-alice")
	req.Params = pdp_model.Params{Values: []string{"doc-7"}}

	f.protector.On("CountRows", mock.Anything, "p", pdp_model.Params{Values: []string{"doc-7", tok, "alice"}}).Return(1, nil).Once()

	_, err := f.gk.Evaluate(context.Background(), q, req)
	require.NoError(t, err)
	f.protector.AssertExpectations(t)
}

func TestEvaluateExecutionNamedParams(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "reader")
	q := query(`{"type":"whitelist","protector":"p","columns":["docid","owner:getLoggedUser()"]}`)
	req := request(tok, "sync-alice")
	req.Params = pdp_model.Params{Rows: []map[string]string{{"docid": "7", "owner": "forged"}}}

	expected := pdp_model.Params{Rows: []map[string]string{{"docid": "7", "owner": "alice"}}}
	f.protector.On("CountRows", mock.Anything, "p", expected).Return(1, nil).Once()

	_, err := f.gk.Evaluate(context.Background(), q, req)
	require.NoError(t, err)
	f.protector.AssertExpectations(t)

	t.Run("MissingColumn", func(t *testing.T) {
		req := request(tok, "sync-alice")
		req.Params = pdp_model.Params{Rows: []map[string]string{{"title": "x"}}}
		_, err := f.gk.Evaluate(context.Background(), q, req)
		assertKind(t, err, sec_errors.KindInjection)
	})
}

func TestEvaluateExecutionIncompatibleParams(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "reader")

	positional := query(`{"type":"whitelist","protector":"p","indexes":["0"]}`)
	req := request(tok, "sync-alice")
	req.Params = pdp_model.Params{Rows: []map[string]string{{"docid": "7"}}}
	_, err := f.gk.Evaluate(context.Background(), positional, req)
	assertKind(t, err, sec_errors.KindIncompatible)

	named := query(`{"type":"whitelist","protector":"p","columns":["docid"]}`)
	req = request(tok, "sync-alice")
	req.Params = pdp_model.Params{Values: []string{"7"}}
	_, err = f.gk.Evaluate(context.Background(), named, req)
	assertKind(t, err, sec_errors.KindIncompatible)

	f.protector.AssertNotCalled(t, "CountRows", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluateExecutionProtectorFailure(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "reader")
	q := query(`{"type":"blacklist","protector":"p"}`)

	f.protector.On("CountRows", mock.Anything, "p", pdp_model.Params{}).Return(0, errors.New("connection reset")).Once()

	_, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
	assertKind(t, err, sec_errors.KindProtector)
}

func TestEvaluateContentPolicy(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "reader")
	q := query(`{"type":"whitelist","predicate":"field = getQLoggedUser()"}`)
	template := q.SQL

	d, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
	require.NoError(t, err)

	assert.Regexp(t, `WHERE \(?x = 1\)? AND \(?field = 'alice'\)?`, q.SQL)
	assert.Equal(t, q.SQL, d.RewrittenSQL)
	assert.Contains(t, d.Policies, pdp_model.CodeContent)
	assert.Equal(t, "SELECT id, title FROM docs WHERE x = 1", template)
}

func TestEvaluateContentPolicyToken(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "reader")
	q := query(`{"type":"whitelist","predicate":"field = getQToken()"}`)

	d, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "field = '"+tok+"'")

	t.Run("RecordedWithoutToken", func(t *testing.T) {
		assert.NotContains(t, d.RewrittenSQL, tok)
		assert.Contains(t, d.RewrittenSQL, "field = '"+logger.Redact(tok)+"'")

		log := audit.FromDecision("d-1", d)
		assert.NotContains(t, log.RewrittenSQL, tok)
		require.Len(t, f.events.decisions, 1)
		assert.NotContains(t, f.events.decisions[0].RewrittenSQL, tok)
	})
}

func TestEvaluateContentPolicyUnquotedToken(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "reader")
	q := query(`{"type":"whitelist","predicate":"field = getToken()"}`)

	_, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
	assertKind(t, err, sec_errors.KindPredicate)
	assert.Equal(t, "SELECT id, title FROM docs WHERE x = 1", q.SQL)
}

func TestEvaluateContentPolicyHeaderCannotWidenFilter(t *testing.T) {
	for name, value := range map[string]string{
		"Disjunction": "0 OR true",
		"Subquery":    "org_id OR EXISTS (SELECT 1 FROM yada_user)",
		"ColumnName":  "org_id",
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, nil)
			tok := f.login(t, "alice", "reader")
			q := query(`{"type":"whitelist","predicate":"org_id = getHeader(X-Org)"}`)
			req := request(tok, "sync-alice")
			req.Headers = append(req.Headers, pdp_model.Header{Name: "X-Org", Value: value})

			_, err := f.gk.Evaluate(context.Background(), q, req)
			assertKind(t, err, sec_errors.KindPredicate)
			assert.Equal(t, "SELECT id, title FROM docs WHERE x = 1", q.SQL)
		})
	}

	t.Run("NumericValue", func(t *testing.T) {
		f := newFixture(t, nil)
		tok := f.login(t, "alice", "reader")
		q := query(`{"type":"whitelist","predicate":"org_id = getHeader(X-Org)"}`)
		req := request(tok, "sync-alice")
		req.Headers = append(req.Headers, pdp_model.Header{Name: "X-Org", Value: "42"})

		_, err := f.gk.Evaluate(context.Background(), q, req)
		require.NoError(t, err)
		assert.Regexp(t, `AND \(?org_id = 42\)?$`, q.SQL)
	})

	t.Run("QuotedHeaderStaysLiteral", func(t *testing.T) {
		f := newFixture(t, nil)
		tok := f.login(t, "alice", "reader")
		q := query(`{"type":"whitelist","predicate":"org_id = getQHeader(X-Org)"}`)
		req := request(tok, "sync-alice")
		req.Headers = append(req.Headers, pdp_model.Header{Name: "X-Org", Value: "0' OR true --"})

		_, err := f.gk.Evaluate(context.Background(), q, req)
		require.NoError(t, err)
		assert.Regexp(t, `AND \(?org_id = e?'0(\\'|'') OR true --'\)?$`, q.SQL)
	})

	t.Run("HeaderNameIsCaseSensitive", func(t *testing.T) {
		f := newFixture(t, nil)
		tok := f.login(t, "alice", "reader")
		q := query(`{"type":"whitelist","predicate":"org_id = getQHeader(X-Org)"}`)
		req := request(tok, "sync-alice")
		req.Headers = append(req.Headers, pdp_model.Header{Name: "x-org", Value: "acme"})

		_, err := f.gk.Evaluate(context.Background(), q, req)
		assertKind(t, err, sec_errors.KindInjection)
	})
}

func TestEvaluateContentPolicyMissingCookie(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "reader")
	q := query(`{"type":"whitelist","predicate":"tenant = getQCookie(tenant)"}`)
	original := q.SQL

	_, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
	assertKind(t, err, sec_errors.KindInjection)
	assert.Equal(t, original, q.SQL)
}

func TestEvaluateContentPolicyUnsupportedStatement(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "reader")
	q := query(`{"type":"whitelist","predicate":"field = getQLoggedUser()"}`)
	q.SQL = "SELECT id FROM a UNION SELECT id FROM b"

	_, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
	assertKind(t, err, sec_errors.KindPredicate)
}

func TestEvaluateLegacyLockSource(t *testing.T) {
	locks := new(mockLockSource)
	f := newFixture(t, locks)
	tok := f.login(t, "alice", "admin")

	q := &model.Query{
		QName:     "YADA select docs",
		App:       "YADA",
		SQL:       "SELECT id FROM docs",
		Protected: true,
		Args: map[string]string{
			spec.ArgExecutionIndexes: "getLoggedUser()",
			spec.ArgContentPredicate: "owner = getQLoggedUser()",
		},
	}
	locks.On("PolicyRecords", mock.Anything, "YADA select docs").Return([]pdp_model.PolicyRecord{
		{Target: q.QName, Code: pdp_model.CodeAuthorization, Type: pdp_model.Whitelist, Ref: "admin"},
		{Target: q.QName, Code: pdp_model.CodeExecution, Type: pdp_model.Whitelist, Ref: "YADA check"},
		{Target: q.QName, Code: pdp_model.CodeContent, Type: pdp_model.Whitelist, Ref: "YADA select docs"},
	}, nil).Once()
	locks.On("PolicyRecords", mock.Anything, "YADA").Return([]pdp_model.PolicyRecord{
		{Target: "YADA", Code: pdp_model.CodeAuthorization, Type: pdp_model.Whitelist, Ref: "admin"},
	}, nil).Once()
	f.protector.On("CountRows", mock.Anything, "YADA check", pdp_model.Params{Values: []string{"alice"}}).Return(1, nil).Once()

	d, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
	require.NoError(t, err)
	assert.Equal(t, []pdp_model.PolicyCode{pdp_model.CodeAuthorization, pdp_model.CodeExecution, pdp_model.CodeContent}, d.Policies)
	assert.Contains(t, q.SQL, "owner = 'alice'")

	locks.AssertExpectations(t)
	f.protector.AssertExpectations(t)
}

func TestEvaluateLegacyLockSourceFailures(t *testing.T) {
	t.Run("StoreError", func(t *testing.T) {
		locks := new(mockLockSource)
		f := newFixture(t, locks)
		tok := f.login(t, "alice", "admin")
		locks.On("PolicyRecords", mock.Anything, "q").Return(nil, errors.New("relation yada_a11n does not exist")).Once()

		_, err := f.gk.Evaluate(context.Background(), &model.Query{QName: "q", App: "YADA", Protected: true}, request(tok, "sync-alice"))
		assertKind(t, err, sec_errors.KindConfiguration)
	})

	t.Run("UnknownAccessorInArgs", func(t *testing.T) {
		locks := new(mockLockSource)
		f := newFixture(t, locks)
		tok := f.login(t, "alice", "admin")
		locks.On("PolicyRecords", mock.Anything, mock.Anything).Return([]pdp_model.PolicyRecord{}, nil)

		q := &model.Query{QName: "q", App: "YADA", Protected: true, Args: map[string]string{spec.ArgContentPredicate: "a = getQPassword()"}}
		_, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
		assertKind(t, err, sec_errors.KindConfiguration)
	})

	t.Run("ProtectedWithoutLockSource", func(t *testing.T) {
		f := newFixture(t, nil)
		tok := f.login(t, "alice", "admin")
		q := &model.Query{
			QName:     "q",
			App:       "YADA",
			SQL:       "SELECT id FROM docs WHERE x = 1",
			Protected: true,
			Args: map[string]string{
				spec.ArgContentPredicate:  "owner = getQLoggedUser()",
				spec.ArgExecutionIndexes: "getBogus()",
			},
		}

		d, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
		assertKind(t, err, sec_errors.KindConfiguration)
		assert.False(t, d.Allowed)
		assert.Equal(t, "SELECT id FROM docs WHERE x = 1", q.SQL)
	})

	t.Run("ContentLockWithoutPredicate", func(t *testing.T) {
		locks := new(mockLockSource)
		f := newFixture(t, locks)
		tok := f.login(t, "alice", "admin")
		locks.On("PolicyRecords", mock.Anything, "q").Return([]pdp_model.PolicyRecord{
			{Target: "q", Code: pdp_model.CodeContent, Type: pdp_model.Whitelist, Ref: "q"},
		}, nil)
		locks.On("PolicyRecords", mock.Anything, "YADA").Return([]pdp_model.PolicyRecord{}, nil)

		_, err := f.gk.Evaluate(context.Background(), &model.Query{QName: "q", App: "YADA", Protected: true}, request(tok, "sync-alice"))
		assertKind(t, err, sec_errors.KindConfiguration)
	})
}

func TestEvaluateSourceAppOverride(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "admin")
	q := query(`{"type":"whitelist","qualifier":["admin"]}`)
	q.App = "REPORTS"
	q.SourceApp = "YADA"

	d, err := f.gk.Evaluate(context.Background(), q, request(tok, "sync-alice"))
	require.NoError(t, err)
	assert.Equal(t, "YADA", d.App)
}

func TestEvaluatePublishesDenials(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.login(t, "alice", "reader")

	_, err := f.gk.Evaluate(context.Background(), query(`{"type":"whitelist","qualifier":["admin"]}`), request(tok, "sync-alice"))
	require.Error(t, err)

	require.Len(t, f.events.decisions, 1)
	d := f.events.decisions[0]
	assert.False(t, d.Allowed)
	assert.Equal(t, string(sec_errors.KindGrant), d.Kind)
	assert.Equal(t, "alice", d.Subject)
}
