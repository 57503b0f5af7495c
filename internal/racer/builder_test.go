package racer

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
)

func testVenue() config.VenueConfig {
	return config.VenueConfig{
		FeeRecipient: solana.NewWallet().PublicKey(),
		FeeConfig:    solana.NewWallet().PublicKey(),
		FeeProgram:   solana.NewWallet().PublicKey(),
	}
}

func testSubmission() config.SubmissionConfig {
	return config.SubmissionConfig{
		ComputeUnitLimit:         200000,
		PriorityFeeMicroLamports: 50000,
		MaxTips:                  4,
	}
}

func TestBuilder_Buy_InstructionOrderAndAccounts(t *testing.T) {
	venue := testVenue()
	submission := testSubmission()
	b := NewBuilder(venue, submission)

	payer := solana.NewWallet().PublicKey()
	params := BuyParams{
		Payer:                  payer,
		Mint:                   solana.NewWallet().PublicKey(),
		BondingCurve:           solana.NewWallet().PublicKey(),
		AssociatedBondingCurve: solana.NewWallet().PublicKey(),
		Creator:                solana.NewWallet().PublicKey(),
		TokenProgram:           domain.TokenProgramID,
		UserTokenAccount:       solana.NewWallet().PublicKey(),
		TokenAmount:            1_000_000,
		MaxSolCost:             2_000_000_000,
	}

	ixs, err := b.Buy(params, nil)
	require.NoError(t, err)

	// [compute-unit-limit, compute-unit-price, ATA idempotent, trade]
	require.Len(t, ixs, 4)
	assert.Equal(t, computeBudgetProgramID, ixs[0].ProgramID())
	assert.Equal(t, computeBudgetProgramID, ixs[1].ProgramID())
	assert.Equal(t, domain.AssociatedTokenProgramID, ixs[2].ProgramID())

	trade := ixs[3]
	assert.Equal(t, domain.PumpFunProgramID, trade.ProgramID())

	accounts := trade.Accounts()
	require.Len(t, accounts, 16)

	assert.True(t, accounts[1].IsWritable) // fee_recipient
	assert.False(t, accounts[1].IsSigner)
	assert.True(t, accounts[3].IsWritable) // bonding_curve
	assert.True(t, accounts[4].IsWritable) // associated_bonding_curve
	assert.True(t, accounts[5].IsWritable) // user_token_account
	assert.True(t, accounts[6].IsWritable) // payer
	assert.True(t, accounts[6].IsSigner)
	assert.Equal(t, payer, accounts[6].PublicKey)
	assert.True(t, accounts[9].IsWritable)  // creator_vault
	assert.Equal(t, domain.PumpFunProgramID, accounts[11].PublicKey)
	assert.True(t, accounts[12].IsWritable) // global_volume_accumulator
	assert.True(t, accounts[13].IsWritable) // user_volume_accumulator
	assert.False(t, accounts[14].IsWritable) // fee_config
	assert.False(t, accounts[15].IsWritable) // fee_program

	data, err := trade.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, buyDiscriminator[:], data[:8])
}

func TestBuilder_Sell_AccountOrderSwapsCreatorVaultAndTokenProgram(t *testing.T) {
	venue := testVenue()
	submission := testSubmission()
	b := NewBuilder(venue, submission)

	payer := solana.NewWallet().PublicKey()
	creatorVault := solana.NewWallet().PublicKey()
	params := SellParams{
		Payer:                  payer,
		Mint:                   solana.NewWallet().PublicKey(),
		BondingCurve:           solana.NewWallet().PublicKey(),
		AssociatedBondingCurve: solana.NewWallet().PublicKey(),
		CreatorVault:           creatorVault,
		TokenProgram:           domain.TokenProgramID,
		UserTokenAccount:       solana.NewWallet().PublicKey(),
		TokenAmount:            1_000_000,
		MinSolOutput:           500_000_000,
	}

	ixs, err := b.Sell(params, nil)
	require.NoError(t, err)
	require.Len(t, ixs, 4)

	trade := ixs[3]
	accounts := trade.Accounts()
	require.Len(t, accounts, 14)

	// Sell swaps positions 8/9 relative to Buy: creator_vault then token_program.
	assert.Equal(t, creatorVault, accounts[8].PublicKey)
	assert.True(t, accounts[8].IsWritable)
	assert.Equal(t, domain.TokenProgramID, accounts[9].PublicKey)
	assert.False(t, accounts[9].IsWritable)

	data, err := trade.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, sellDiscriminator[:], data[:8])
}

func TestBuilder_Assemble_IncludesPriorityFeeTipAndSubmitterTips(t *testing.T) {
	venue := testVenue()
	submission := testSubmission()
	submission.PriorityFeeTipLamports = 10000
	submission.PriorityFeeTipAddress = solana.NewWallet().PublicKey()
	b := NewBuilder(venue, submission)

	payer := solana.NewWallet().PublicKey()
	params := BuyParams{
		Payer:                  payer,
		Mint:                   solana.NewWallet().PublicKey(),
		BondingCurve:           solana.NewWallet().PublicKey(),
		AssociatedBondingCurve: solana.NewWallet().PublicKey(),
		Creator:                solana.NewWallet().PublicKey(),
		TokenProgram:           domain.TokenProgramID,
		UserTokenAccount:       solana.NewWallet().PublicKey(),
		TokenAmount:            1,
		MaxSolCost:             1,
	}

	cfg := config.SubmissionConfig{
		Submitters: []config.SubmitterConfig{
			submitterConfig("jito", true, 1, "https://jito.example"),
			submitterConfig("node1", true, 2, "https://node1.example"),
		},
	}
	submitters, err := NewRegistry(cfg)
	require.NoError(t, err)

	ixs, err := b.Buy(params, submitters)
	require.NoError(t, err)

	// base 4 + priority-fee tip + 2 submitter tips = 7
	require.Len(t, ixs, 7)
	assert.Equal(t, systemProgramID, ixs[4].ProgramID())
	assert.Equal(t, systemProgramID, ixs[5].ProgramID())
	assert.Equal(t, systemProgramID, ixs[6].ProgramID())
}

func TestBuilder_Assemble_SkipsPriorityFeeTipWhenZero(t *testing.T) {
	venue := testVenue()
	submission := testSubmission()
	submission.PriorityFeeTipLamports = 0
	b := NewBuilder(venue, submission)

	params := BuyParams{
		Payer:                  solana.NewWallet().PublicKey(),
		Mint:                   solana.NewWallet().PublicKey(),
		BondingCurve:           solana.NewWallet().PublicKey(),
		AssociatedBondingCurve: solana.NewWallet().PublicKey(),
		Creator:                solana.NewWallet().PublicKey(),
		TokenProgram:           domain.TokenProgramID,
		UserTokenAccount:       solana.NewWallet().PublicKey(),
		TokenAmount:            1,
		MaxSolCost:             1,
	}

	ixs, err := b.Buy(params, nil)
	require.NoError(t, err)
	require.Len(t, ixs, 4)
}
