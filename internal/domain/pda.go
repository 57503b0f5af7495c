package domain

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Well-known program IDs, grounded on position.rs's cached statics.
var (
	PumpFunProgramID          = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	TokenProgramID            = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID        = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	AssociatedTokenProgramID  = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// DeriveBondingCurve derives the bonding-curve PDA for a mint:
// seeds ["bonding-curve", mint].
func DeriveBondingCurve(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), mint.Bytes()},
		PumpFunProgramID,
	)
	return pda, err
}

// DeriveCreatorVault derives the creator-vault PDA: seeds ["creator-vault", creator].
func DeriveCreatorVault(creator solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("creator-vault"), creator.Bytes()},
		PumpFunProgramID,
	)
	return pda, err
}

// DeriveUserVolumeAccumulator derives the PDA seeded
// ["user_volume_accumulator", user] — underscore, not hyphen, per spec.md §4.6.
func DeriveUserVolumeAccumulator(user solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("user_volume_accumulator"), user.Bytes()},
		PumpFunProgramID,
	)
	return pda, err
}

// DeriveGlobalVolumeAccumulator derives the PDA seeded ["global_volume_accumulator"].
func DeriveGlobalVolumeAccumulator() (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("global_volume_accumulator")},
		PumpFunProgramID,
	)
	return pda, err
}

// DeriveGlobal derives the program's Global config PDA: seeds ["global"].
func DeriveGlobal() (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("global")},
		PumpFunProgramID,
	)
	return pda, err
}

// DeriveEventAuthority derives the Anchor CPI-event-logging PDA: seeds
// ["__event_authority"], the fixed account every Buy/Sell instruction
// carries per spec.md §6's account orderings.
func DeriveEventAuthority() (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("__event_authority")},
		PumpFunProgramID,
	)
	return pda, err
}

// DeriveATA derives the associated-token-account PDA for the given wallet,
// mint and token-program owner: seeds [wallet, token_program, mint] under
// the associated-token-account program.
func DeriveATA(wallet, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{wallet.Bytes(), tokenProgram.Bytes(), mint.Bytes()},
		AssociatedTokenProgramID,
	)
	return pda, err
}

// DetectTokenProgram reads the mint account's owner to distinguish the
// legacy SPL token program from Token-2022, falling back to legacy with a
// reported error on an unrecognized owner (position.rs's detect_token_program).
func DetectTokenProgram(ctx context.Context, client *rpc.Client, mint solana.PublicKey) (solana.PublicKey, error) {
	info, err := client.GetAccountInfo(ctx, mint)
	if err != nil {
		return TokenProgramID, fmt.Errorf("read mint account: %w", err)
	}
	if info == nil || info.Value == nil {
		return TokenProgramID, fmt.Errorf("mint account %s not found", mint)
	}
	owner := info.Value.Owner
	switch owner {
	case TokenProgramID:
		return TokenProgramID, nil
	case Token2022ProgramID:
		return Token2022ProgramID, nil
	default:
		return TokenProgramID, fmt.Errorf("unrecognized token program owner %s for mint %s, defaulting to legacy", owner, mint)
	}
}

// DeriveAssociatedBondingCurve derives the bonding curve's own ATA for mint
// (the bonding curve PDA is the ATA "owner", not the trader's wallet — the
// distinction position.rs flags explicitly as a prior bug fix).
func DeriveAssociatedBondingCurve(ctx context.Context, client *rpc.Client, bondingCurve, mint solana.PublicKey) (solana.PublicKey, error) {
	tokenProgram, err := DetectTokenProgram(ctx, client, mint)
	if err != nil {
		// DetectTokenProgram returns the legacy program alongside every error
		// (read failure, missing account, unrecognized owner), so derivation
		// proceeds with that default.
		if tokenProgram == (solana.PublicKey{}) {
			return solana.PublicKey{}, err
		}
	}
	return DeriveATA(bondingCurve, mint, tokenProgram)
}

// BondingCurveAccount is the decoded 73-byte BondingCurve account (spec.md §6).
type BondingCurveAccount struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TotalSupply          uint64
	Complete             bool
	Creator              solana.PublicKey
}

const bondingCurveAccountSize = 8*5 + 1 + 32

// DecodeBondingCurveAccount decodes the raw 73-byte BondingCurve account
// layout (grpc/parser.rs's bonding_curve_decode): five little-endian u64
// reserve/supply fields, a bool, then the 32-byte creator pubkey, with no
// leading discriminator.
func DecodeBondingCurveAccount(data []byte) (*BondingCurveAccount, error) {
	if len(data) < bondingCurveAccountSize {
		return nil, fmt.Errorf("bonding curve account too short: got %d want >= %d", len(data), bondingCurveAccountSize)
	}
	off := 0
	readU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
		return v
	}
	bc := &BondingCurveAccount{}
	bc.VirtualTokenReserves = readU64()
	bc.VirtualSolReserves = readU64()
	bc.RealTokenReserves = readU64()
	bc.RealSolReserves = readU64()
	bc.TotalSupply = readU64()
	bc.Complete = data[off] != 0
	off++
	copy(bc.Creator[:], data[off:off+32])
	return bc, nil
}
