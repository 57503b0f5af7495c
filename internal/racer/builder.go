package racer

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
)

// Buy/Sell instruction discriminators, the first 8 bytes of every venue
// program instruction's data (spec.md §6). Duplicated rather than imported
// from internal/eventsource's unexported equivalents: that package decodes
// instructions, this one builds them, and importing decode-side constants
// into the build path would invert the pipeline's dependency direction for
// two constants.
var (
	buyDiscriminator  = [8]byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellDiscriminator = [8]byte{51, 230, 133, 164, 1, 127, 131, 173}
)

const computeBudgetProgramIDStr = "ComputeBudget111111111111111111111111111111"

var (
	computeBudgetProgramID = solana.MustPublicKeyFromBase58(computeBudgetProgramIDStr)
	systemProgramID        = solana.SystemProgramID
)

// ComputeBudget instruction variant indices (solana_compute_budget_interface).
const (
	computeBudgetSetUnitLimit uint8 = 2
	computeBudgetSetUnitPrice uint8 = 3
)

// setComputeUnitLimit builds ComputeBudgetInstruction::set_compute_unit_limit.
func setComputeUnitLimit(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = computeBudgetSetUnitLimit
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.NewInstruction(computeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// setComputeUnitPrice builds ComputeBudgetInstruction::set_compute_unit_price
// (microLamports per compute unit).
func setComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = computeBudgetSetUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solana.NewInstruction(computeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// createATAIdempotent builds the Associated Token Account program's
// CreateIdempotent instruction (data = [1]): a no-op if the account already
// exists, so building it unconditionally is always safe and avoids an
// extra RPC round trip to check existence first (lightspeed_buy.rs's
// build_buy_instructions_with_all_tips does the same).
func createATAIdempotent(payer, owner, mint, ata, tokenProgram solana.PublicKey) solana.Instruction {
	accounts := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(ata).WRITE(),
		solana.Meta(owner),
		solana.Meta(mint),
		solana.Meta(systemProgramID),
		solana.Meta(tokenProgram),
	}
	return solana.NewInstruction(domain.AssociatedTokenProgramID, accounts, []byte{1})
}

// BuyParams is everything the builder needs to assemble a buy transaction.
type BuyParams struct {
	Payer                  solana.PublicKey
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	Creator                solana.PublicKey
	TokenProgram           solana.PublicKey
	UserTokenAccount       solana.PublicKey
	TokenAmount            uint64
	MaxSolCost             uint64
}

// SellParams is everything the builder needs to assemble a sell
// transaction. CloseTokenAccount is accepted for parity with
// position.SellParams but this venue program has no separate close-account
// instruction of its own; the trade instruction's creator_vault path
// already drains the position fully when TokenAmount equals the held
// balance.
type SellParams struct {
	Payer                  solana.PublicKey
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	CreatorVault           solana.PublicKey
	TokenProgram           solana.PublicKey
	UserTokenAccount       solana.PublicKey
	TokenAmount            uint64
	MinSolOutput           uint64
}

// Builder assembles the full instruction vector for a buy or sell in the
// exact build order spec.md §4.6 mandates: [compute-unit-limit,
// compute-unit-price, create-ATA-idempotent, venue trade instruction,
// priority-fee tip transfer, Σ submitter tip transfers].
type Builder struct {
	venue      config.VenueConfig
	submission config.SubmissionConfig
}

// NewBuilder constructs a Builder from the venue and submission config.
func NewBuilder(venue config.VenueConfig, submission config.SubmissionConfig) *Builder {
	return &Builder{venue: venue, submission: submission}
}

// Buy assembles the full buy instruction vector. submitters must already
// be priority-sorted (NewRegistry guarantees this).
func (b *Builder) Buy(p BuyParams, submitters []*Submitter) ([]solana.Instruction, error) {
	global, err := domain.DeriveGlobal()
	if err != nil {
		return nil, err
	}
	eventAuthority, err := domain.DeriveEventAuthority()
	if err != nil {
		return nil, err
	}
	globalVolumeAccumulator, err := domain.DeriveGlobalVolumeAccumulator()
	if err != nil {
		return nil, err
	}
	userVolumeAccumulator, err := domain.DeriveUserVolumeAccumulator(p.Payer)
	if err != nil {
		return nil, err
	}
	creatorVault, err := domain.DeriveCreatorVault(p.Creator)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 24)
	data = append(data, buyDiscriminator[:]...)
	data = binary.LittleEndian.AppendUint64(data, p.TokenAmount)
	data = binary.LittleEndian.AppendUint64(data, p.MaxSolCost)

	accounts := solana.AccountMetaSlice{
		solana.Meta(global),                             // 0
		solana.Meta(b.venue.FeeRecipient).WRITE(),        // 1
		solana.Meta(p.Mint),                              // 2
		solana.Meta(p.BondingCurve).WRITE(),               // 3
		solana.Meta(p.AssociatedBondingCurve).WRITE(),     // 4
		solana.Meta(p.UserTokenAccount).WRITE(),           // 5
		solana.Meta(p.Payer).WRITE().SIGNER(),             // 6
		solana.Meta(systemProgramID),                      // 7
		solana.Meta(p.TokenProgram),                       // 8
		solana.Meta(creatorVault).WRITE(),                 // 9
		solana.Meta(eventAuthority),                       // 10
		solana.Meta(domain.PumpFunProgramID),              // 11
		solana.Meta(globalVolumeAccumulator).WRITE(),      // 12
		solana.Meta(userVolumeAccumulator).WRITE(),        // 13
		solana.Meta(b.venue.FeeConfig),                    // 14
		solana.Meta(b.venue.FeeProgram),                   // 15
	}

	trade := solana.NewInstruction(domain.PumpFunProgramID, accounts, data)
	ata := createATAIdempotent(p.Payer, p.Payer, p.Mint, p.UserTokenAccount, p.TokenProgram)

	return b.assemble(p.Payer, ata, trade, submitters), nil
}

// Sell assembles the full sell instruction vector.
func (b *Builder) Sell(p SellParams, submitters []*Submitter) ([]solana.Instruction, error) {
	global, err := domain.DeriveGlobal()
	if err != nil {
		return nil, err
	}
	eventAuthority, err := domain.DeriveEventAuthority()
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 24)
	data = append(data, sellDiscriminator[:]...)
	data = binary.LittleEndian.AppendUint64(data, p.TokenAmount)
	data = binary.LittleEndian.AppendUint64(data, p.MinSolOutput)

	// Sell's account ordering swaps positions 8/9 relative to Buy:
	// creator_vault comes before token_program, not after (spec.md §6).
	accounts := solana.AccountMetaSlice{
		solana.Meta(global),                         // 0
		solana.Meta(b.venue.FeeRecipient).WRITE(),    // 1
		solana.Meta(p.Mint),                          // 2
		solana.Meta(p.BondingCurve).WRITE(),           // 3
		solana.Meta(p.AssociatedBondingCurve).WRITE(), // 4
		solana.Meta(p.UserTokenAccount).WRITE(),       // 5
		solana.Meta(p.Payer).WRITE().SIGNER(),         // 6
		solana.Meta(systemProgramID),                  // 7
		solana.Meta(p.CreatorVault).WRITE(),           // 8
		solana.Meta(p.TokenProgram),                   // 9
		solana.Meta(eventAuthority),                   // 10
		solana.Meta(domain.PumpFunProgramID),          // 11
		solana.Meta(b.venue.FeeConfig),                // 12
		solana.Meta(b.venue.FeeProgram),               // 13
	}

	trade := solana.NewInstruction(domain.PumpFunProgramID, accounts, data)
	ata := createATAIdempotent(p.Payer, p.Payer, p.Mint, p.UserTokenAccount, p.TokenProgram)

	return b.assemble(p.Payer, ata, trade, submitters), nil
}

// assemble puts the compute-budget pair, the ATA instruction, the trade
// instruction, the standalone priority-fee tip, and the submitter tips in
// the exact order spec.md §4.6 mandates.
func (b *Builder) assemble(payer solana.PublicKey, ata, trade solana.Instruction, submitters []*Submitter) []solana.Instruction {
	ixs := make([]solana.Instruction, 0, 5+len(submitters))
	ixs = append(ixs,
		setComputeUnitLimit(b.submission.ComputeUnitLimit),
		setComputeUnitPrice(b.submission.PriorityFeeMicroLamports),
		ata,
		trade,
	)
	if b.submission.PriorityFeeTipLamports > 0 {
		ixs = append(ixs, system.NewTransferInstruction(
			b.submission.PriorityFeeTipLamports,
			payer,
			b.submission.PriorityFeeTipAddress,
		).Build())
	}

	tips, _ := AllTipInstructions(submitters, payer, b.submission.MaxTips)
	ixs = append(ixs, tips...)
	return ixs
}
