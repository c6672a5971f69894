package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracecheck/tracecheck/internal/expect"
)

func TestCheckHermeticity_ResourceRequired(t *testing.T) {
	good := span("a", "", "run", 0, 100)
	good.Resource = map[string]string{"env": "hermetic"}
	tr := mustBuild(t, good)

	assert.Empty(t, checkHermeticity(tr, &expect.HermeticitySpec{
		Resource: map[string]string{"env": "hermetic"},
	}))

	bad := span("b", "", "run", 0, 100)
	bad.Resource = map[string]string{"env": "staging"}
	tr = mustBuild(t, bad)

	violations := checkHermeticity(tr, &expect.HermeticitySpec{
		Resource: map[string]string{"env": "hermetic"},
	})
	require.Len(t, violations, 1)
	assert.Equal(t, "resource", violations[0].Rule)
	assert.Equal(t, `env="staging"`, violations[0].Actual)

	// Missing entirely is its own message.
	tr = mustBuild(t, span("c", "", "run", 0, 100))
	violations = checkHermeticity(tr, &expect.HermeticitySpec{
		Resource: map[string]string{"env": "hermetic"},
	})
	require.Len(t, violations, 1)
	assert.Equal(t, "attribute missing", violations[0].Actual)
}

func TestCheckHermeticity_ForbiddenKeys(t *testing.T) {
	s := span("a", "", "run", 0, 100)
	s.Attributes = map[string]string{"db.connection_string": "postgres://prod/app"}
	tr := mustBuild(t, s)

	violations := checkHermeticity(tr, &expect.HermeticitySpec{
		ForbiddenKeys: []string{"db.connection_string"},
	})
	require.Len(t, violations, 1)
	assert.Equal(t, "forbidden_key", violations[0].Rule)
	assert.Equal(t, "a", violations[0].SpanID)
}

func TestCheckHermeticity_ExternalPeer(t *testing.T) {
	s := span("a", "", "fetch", 0, 100)
	s.Attributes = map[string]string{"net.peer.name": "api.example.com"}
	tr := mustBuild(t, s)

	violations := checkHermeticity(tr, &expect.HermeticitySpec{NoExternalPeers: true})
	require.Len(t, violations, 1)
	assert.Equal(t, "external_peer", violations[0].Rule)
	assert.Contains(t, violations[0].Actual, "api.example.com")
}

func TestCheckHermeticity_LoopbackAlwaysAllowed(t *testing.T) {
	for _, peer := range []string{
		"localhost",
		"localhost:5432",
		"app.localhost",
		"127.0.0.1",
		"127.0.0.1:8080",
		"[::1]:9000",
		"0.0.0.0",
		"http://localhost:8080/healthz",
	} {
		s := span("a", "", "call", 0, 100)
		s.Attributes = map[string]string{"server.address": peer}
		tr := mustBuild(t, s)

		assert.Empty(t, checkHermeticity(tr, &expect.HermeticitySpec{NoExternalPeers: true}),
			"peer %q should be hermetic", peer)
	}
}

func TestCheckHermeticity_AllowList(t *testing.T) {
	s := span("a", "", "query", 0, 100)
	s.Attributes = map[string]string{"server.address": "fixture-db:5432"}
	tr := mustBuild(t, s)

	violations := checkHermeticity(tr, &expect.HermeticitySpec{NoExternalPeers: true})
	require.Len(t, violations, 1)

	assert.Empty(t, checkHermeticity(tr, &expect.HermeticitySpec{
		NoExternalPeers: true,
		AllowedPeers:    []string{"fixture-db"},
	}))
}

func TestCheckHermeticity_URLPeer(t *testing.T) {
	s := span("a", "", "fetch", 0, 100)
	s.Attributes = map[string]string{"url.full": "https://api.example.com/v1/items?page=2"}
	tr := mustBuild(t, s)

	violations := checkHermeticity(tr, &expect.HermeticitySpec{NoExternalPeers: true})
	require.Len(t, violations, 1)
	assert.Equal(t, "external_peer", violations[0].Rule)
}
