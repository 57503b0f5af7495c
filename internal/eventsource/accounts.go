package eventsource

import (
	"github.com/gagliardetto/solana-go"

	"github.com/ai-agentic-browser/sniper/internal/domain"
)

// instructionAccounts resolves a venue instruction's account set from its
// account-index list and the transaction's flattened account-keys table,
// grounded on the original source's extract_pumpfun_accounts.
type instructionAccounts struct {
	Mint                    solana.PublicKey
	BondingCurve            solana.PublicKey
	AssociatedBondingCurve  solana.PublicKey
	AssociatedUser          solana.PublicKey
	CreatorVault            solana.PublicKey
	GlobalVolumeAccumulator solana.PublicKey
	UserVolumeAccumulator   solana.PublicKey
}

// extractAccounts maps a venue instruction's account indices onto the
// transaction's account-keys table per spec.md §6's 16-account Buy / 14-
// account Sell orderings, and reads the mint and curve accounts of Create
// and Migrate instructions. Returns false if the instruction discriminator
// is none of these four or the account list is too short for that layout.
func extractAccounts(accountKeys []solana.PublicKey, instructionData []byte, accountIndices []uint16) (instructionAccounts, bool) {
	var out instructionAccounts
	if len(instructionData) < 8 {
		return out, false
	}
	var disc [8]byte
	copy(disc[:], instructionData[:8])

	get := func(idx int) (solana.PublicKey, bool) {
		if idx < 0 || idx >= len(accountIndices) {
			return solana.PublicKey{}, false
		}
		keyIdx := int(accountIndices[idx])
		if keyIdx < 0 || keyIdx >= len(accountKeys) {
			return solana.PublicKey{}, false
		}
		return accountKeys[keyIdx], true
	}

	switch disc {
	case buyIxDiscriminator:
		// 0:global 1:fee_recipient 2:mint 3:bonding_curve
		// 4:associated_bonding_curve 5:user_token_account 6:payer
		// 7:system_program 8:token_program 9:creator_vault
		// 10:event_authority 11:program 12:global_volume_accumulator
		// 13:user_volume_accumulator 14:fee_config 15:fee_program
		if len(accountIndices) < 16 {
			return out, false
		}
		var ok bool
		if out.Mint, ok = get(2); !ok {
			return out, false
		}
		out.BondingCurve, _ = get(3)
		out.AssociatedBondingCurve, _ = get(4)
		out.AssociatedUser, _ = get(5)
		out.CreatorVault, _ = get(9)
		out.GlobalVolumeAccumulator, _ = get(12)
		out.UserVolumeAccumulator, _ = get(13)
		return out, true

	case sellIxDiscriminator:
		// 0:global 1:fee_recipient 2:mint 3:bonding_curve
		// 4:associated_bonding_curve 5:user_token_account 6:payer
		// 7:system_program 8:creator_vault 9:token_program
		// 10:event_authority 11:program 12:fee_config 13:fee_program
		if len(accountIndices) < 14 {
			return out, false
		}
		var ok bool
		if out.Mint, ok = get(2); !ok {
			return out, false
		}
		out.BondingCurve, _ = get(3)
		out.AssociatedBondingCurve, _ = get(4)
		out.AssociatedUser, _ = get(5)
		out.CreatorVault, _ = get(8)
		return out, true

	case createIxDiscriminator:
		// 0:mint 1:mint_authority 2:bonding_curve 3:associated_bonding_curve
		// 4:global ...
		if len(accountIndices) < 11 {
			return out, false
		}
		var ok bool
		if out.Mint, ok = get(0); !ok {
			return out, false
		}
		out.BondingCurve, _ = get(2)
		out.AssociatedBondingCurve, _ = get(3)
		return out, true

	case migrateIxDiscriminator:
		// 0:global 1:withdraw_authority 2:mint 3:bonding_curve
		// 4:associated_bonding_curve ... 14:user_token_account
		if len(accountIndices) < 20 {
			return out, false
		}
		var ok bool
		if out.Mint, ok = get(2); !ok {
			return out, false
		}
		out.BondingCurve, _ = get(3)
		out.AssociatedBondingCurve, _ = get(4)
		out.AssociatedUser, _ = get(14)
		return out, true
	}

	return out, false
}

// enrichTrade fills in the resolved PDA account set on a decoded trade from
// the carrying instruction, flagging a mint mismatch rather than silently
// trusting the instruction accounts belong to this trade's mint.
func enrichTrade(trade *domain.TradeEvent, accounts instructionAccounts) {
	if accounts.Mint != trade.Mint {
		trade.MintMismatch = true
	}
	trade.BondingCurve = accounts.BondingCurve
	trade.AssociatedBondingCurve = accounts.AssociatedBondingCurve
	trade.AssociatedUser = accounts.AssociatedUser
	trade.CreatorVault = accounts.CreatorVault
	trade.GlobalVolumeAccumulator = accounts.GlobalVolumeAccumulator
	trade.UserVolumeAccumulator = accounts.UserVolumeAccumulator
}
