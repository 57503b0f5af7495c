package eventsource

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/sniper/internal/domain"
)

func accountKeyTable(n int) ([]solana.PublicKey, []uint16) {
	keys := make([]solana.PublicKey, n)
	indices := make([]uint16, n)
	for i := 0; i < n; i++ {
		keys[i] = solana.NewWallet().PublicKey()
		indices[i] = uint16(i)
	}
	return keys, indices
}

func TestExtractAccounts_Buy(t *testing.T) {
	keys, indices := accountKeyTable(16)
	data := append(append([]byte{}, buyIxDiscriminator[:]...), 0, 0, 0, 0) // trailing args irrelevant

	out, ok := extractAccounts(keys, data, indices)
	require.True(t, ok)
	assert.Equal(t, keys[2], out.Mint)
	assert.Equal(t, keys[3], out.BondingCurve)
	assert.Equal(t, keys[4], out.AssociatedBondingCurve)
	assert.Equal(t, keys[5], out.AssociatedUser)
	assert.Equal(t, keys[9], out.CreatorVault)
	assert.Equal(t, keys[12], out.GlobalVolumeAccumulator)
	assert.Equal(t, keys[13], out.UserVolumeAccumulator)
}

func TestExtractAccounts_Buy_TooFewAccountsFails(t *testing.T) {
	keys, indices := accountKeyTable(10)
	data := append([]byte{}, buyIxDiscriminator[:]...)

	_, ok := extractAccounts(keys, data, indices)
	assert.False(t, ok)
}

func TestExtractAccounts_Sell(t *testing.T) {
	keys, indices := accountKeyTable(14)
	data := append([]byte{}, sellIxDiscriminator[:]...)

	out, ok := extractAccounts(keys, data, indices)
	require.True(t, ok)
	assert.Equal(t, keys[2], out.Mint)
	assert.Equal(t, keys[3], out.BondingCurve)
	assert.Equal(t, keys[4], out.AssociatedBondingCurve)
	assert.Equal(t, keys[5], out.AssociatedUser)
	assert.Equal(t, keys[8], out.CreatorVault)
}

func TestExtractAccounts_Sell_TooFewAccountsFails(t *testing.T) {
	keys, indices := accountKeyTable(5)
	data := append([]byte{}, sellIxDiscriminator[:]...)

	_, ok := extractAccounts(keys, data, indices)
	assert.False(t, ok)
}

func TestExtractAccounts_Create(t *testing.T) {
	keys, indices := accountKeyTable(11)
	data := append([]byte{}, createIxDiscriminator[:]...)

	out, ok := extractAccounts(keys, data, indices)
	require.True(t, ok)
	assert.Equal(t, keys[0], out.Mint)
	assert.Equal(t, keys[2], out.BondingCurve)
	assert.Equal(t, keys[3], out.AssociatedBondingCurve)
}

func TestExtractAccounts_Migrate(t *testing.T) {
	keys, indices := accountKeyTable(20)
	data := append([]byte{}, migrateIxDiscriminator[:]...)

	out, ok := extractAccounts(keys, data, indices)
	require.True(t, ok)
	assert.Equal(t, keys[2], out.Mint)
	assert.Equal(t, keys[3], out.BondingCurve)
	assert.Equal(t, keys[4], out.AssociatedBondingCurve)
	assert.Equal(t, keys[14], out.AssociatedUser)
}

func TestExtractAccounts_UnknownDiscriminatorFails(t *testing.T) {
	keys, indices := accountKeyTable(20)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	_, ok := extractAccounts(keys, data, indices)
	assert.False(t, ok)
}

func TestExtractAccounts_ShortInstructionDataFails(t *testing.T) {
	keys, indices := accountKeyTable(20)
	_, ok := extractAccounts(keys, []byte{1, 2, 3}, indices)
	assert.False(t, ok)
}

func TestEnrichTrade_FlagsMintMismatch(t *testing.T) {
	tradeMint := solana.NewWallet().PublicKey()
	resolvedMint := solana.NewWallet().PublicKey()
	trade := &domain.TradeEvent{Mint: tradeMint}

	enrichTrade(trade, instructionAccounts{Mint: resolvedMint, BondingCurve: solana.NewWallet().PublicKey()})

	assert.True(t, trade.MintMismatch)
}

func TestEnrichTrade_CopiesResolvedAccounts(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	trade := &domain.TradeEvent{Mint: mint}
	accounts := instructionAccounts{
		Mint:                    mint,
		BondingCurve:            solana.NewWallet().PublicKey(),
		AssociatedBondingCurve:  solana.NewWallet().PublicKey(),
		AssociatedUser:          solana.NewWallet().PublicKey(),
		CreatorVault:            solana.NewWallet().PublicKey(),
		GlobalVolumeAccumulator: solana.NewWallet().PublicKey(),
		UserVolumeAccumulator:   solana.NewWallet().PublicKey(),
	}

	enrichTrade(trade, accounts)

	assert.False(t, trade.MintMismatch)
	assert.Equal(t, accounts.BondingCurve, trade.BondingCurve)
	assert.Equal(t, accounts.AssociatedBondingCurve, trade.AssociatedBondingCurve)
	assert.Equal(t, accounts.AssociatedUser, trade.AssociatedUser)
	assert.Equal(t, accounts.CreatorVault, trade.CreatorVault)
	assert.Equal(t, accounts.GlobalVolumeAccumulator, trade.GlobalVolumeAccumulator)
	assert.Equal(t, accounts.UserVolumeAccumulator, trade.UserVolumeAccumulator)
}
