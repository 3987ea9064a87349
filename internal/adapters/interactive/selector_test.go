package interactive

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/wallet-deployer/internal/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

func TestFuzzySearch(t *testing.T) {
	items := []string{"Registry [uups-proxy]", "LazyWalletRegistry [uups-proxy]", "ESIMWalletFactory [uups-proxy]"}
	search := createFuzzySearchFunc(items)

	tests := []struct {
		input string
		index int
		want  bool
	}{
		{"", 0, true},
		{"registry", 0, true},
		{"registry", 2, false},
		{"lwr", 1, true},
		{"esimf", 2, true},
		{"zzz", 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, search(tt.input, tt.index), "search(%q, %d)", tt.input, tt.index)
	}
}

func TestNonInteractive(t *testing.T) {
	cfg := &config.RuntimeConfig{NonInteractive: true}
	ctx := context.Background()

	units := []*models.UnitRecord{
		{Name: "Registry", Address: common.HexToAddress("0x01")},
		{Name: "LazyWalletRegistry", Address: common.HexToAddress("0x02")},
	}

	_, err := NewSelectorAdapter(cfg).SelectUnit(ctx, units, "pick")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Registry, LazyWalletRegistry")

	_, err = NewSelectorAdapter(cfg).SelectUnit(ctx, nil, "pick")
	assert.ErrorContains(t, err, "no units")

	ok, err := NewConfirmerAdapter(cfg).Confirm(ctx, "deploy to mainnet?")
	require.NoError(t, err)
	assert.True(t, ok)
}
