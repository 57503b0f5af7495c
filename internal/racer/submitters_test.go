package racer

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/sniper/internal/config"
)

func submitterConfig(name string, enabled bool, priority uint32, endpoint string) config.SubmitterConfig {
	return config.SubmitterConfig{
		Name:        name,
		Enabled:     enabled,
		Endpoint:    endpoint,
		Priority:    priority,
		TipLamports: 1000,
	}
}

func TestNewRegistry_FiltersDisabledAndSortsByPriority(t *testing.T) {
	cfg := config.SubmissionConfig{
		Submitters: []config.SubmitterConfig{
			submitterConfig("temporal", true, 3, "https://temporal.example"),
			submitterConfig("jito", true, 1, "https://jito.example"),
			submitterConfig("zeroslot", false, 0, "https://zeroslot.example"),
			submitterConfig("node1", true, 2, "https://node1.example"),
		},
	}

	submitters, err := NewRegistry(cfg)
	require.NoError(t, err)
	require.Len(t, submitters, 3)

	assert.Equal(t, "jito", submitters[0].Name)
	assert.Equal(t, "node1", submitters[1].Name)
	assert.Equal(t, "temporal", submitters[2].Name)
}

func TestNewRegistry_UnknownBackendErrors(t *testing.T) {
	cfg := config.SubmissionConfig{
		Submitters: []config.SubmitterConfig{
			submitterConfig("not-a-real-vendor", true, 1, "https://example.com"),
		},
	}

	_, err := NewRegistry(cfg)
	assert.Error(t, err)
}

func TestNewRegistry_MissingEndpointErrors(t *testing.T) {
	cfg := config.SubmissionConfig{
		Submitters: []config.SubmitterConfig{
			submitterConfig("jito", true, 1, ""),
		},
	}

	_, err := NewRegistry(cfg)
	assert.Error(t, err)
}

func TestNewRegistry_NoEnabledSubmittersReturnsEmpty(t *testing.T) {
	cfg := config.SubmissionConfig{
		Submitters: []config.SubmitterConfig{
			submitterConfig("jito", false, 1, "https://jito.example"),
		},
	}

	submitters, err := NewRegistry(cfg)
	require.NoError(t, err)
	assert.Empty(t, submitters)
}

func TestSubmitter_NextTipAccountRotatesRoundRobin(t *testing.T) {
	cfg := config.SubmissionConfig{
		Submitters: []config.SubmitterConfig{
			submitterConfig("astralane", true, 1, "https://astralane.example"),
		},
	}
	submitters, err := NewRegistry(cfg)
	require.NoError(t, err)
	require.Len(t, submitters, 1)

	s := submitters[0]
	pool := tipAccountPools[BackendAstralane]
	require.Len(t, pool, 3)

	seen := make([]solana.PublicKey, 0, len(pool)*2)
	for i := 0; i < len(pool)*2; i++ {
		seen = append(seen, s.NextTipAccount())
	}

	for i, addr := range pool {
		expected := solana.MustPublicKeyFromBase58(addr)
		assert.Equal(t, expected, seen[i])
		assert.Equal(t, expected, seen[i+len(pool)])
	}
}

func TestAllTipInstructions_TrimsToMaxTipsByPriority(t *testing.T) {
	cfg := config.SubmissionConfig{
		Submitters: []config.SubmitterConfig{
			submitterConfig("jito", true, 1, "https://jito.example"),
			submitterConfig("temporal", true, 2, "https://temporal.example"),
			submitterConfig("node1", true, 3, "https://node1.example"),
		},
	}
	submitters, err := NewRegistry(cfg)
	require.NoError(t, err)
	require.Len(t, submitters, 3)

	payer := solana.NewWallet().PublicKey()
	kept, dropped := AllTipInstructions(submitters, payer, 2)

	assert.Len(t, kept, 2)
	assert.Equal(t, []string{"node1"}, dropped)
}

func TestAllTipInstructions_NoTrimWhenUnderLimit(t *testing.T) {
	cfg := config.SubmissionConfig{
		Submitters: []config.SubmitterConfig{
			submitterConfig("jito", true, 1, "https://jito.example"),
		},
	}
	submitters, err := NewRegistry(cfg)
	require.NoError(t, err)

	payer := solana.NewWallet().PublicKey()
	kept, dropped := AllTipInstructions(submitters, payer, 4)

	assert.Len(t, kept, 1)
	assert.Empty(t, dropped)
}
