package domain

import "math/big"

// Fee basis points: FEE_BASIS_POINTS (protocol) + CREATOR_FEE, for a total of
// 125 bps (1.25%), grounded on executor/builder.rs's estimate_sell_sol_amount
// and spec.md §4.6/§8's "total_fee_bps is 125 (95 base + 30 creator)".
const (
	BaseFeeBasisPoints    uint64 = 95
	CreatorFeeBasisPoints uint64 = 30
	TotalFeeBasisPoints          = BaseFeeBasisPoints + CreatorFeeBasisPoints
	basisPointsDenominator uint64 = 10000
)

// BuyAmounts is the exact result of spec.md §4.6/§8's buy-side formula.
type BuyAmounts struct {
	InputSolAfterFee uint64
	TokensOut        uint64
	MaxSolCost       uint64
}

// ComputeBuyAmounts computes, with the exact integer arithmetic the spec
// requires:
//
//	input_sol_after_fee = sol * 10000 / (10000 + total_fee_bps)
//	tokens_out = min(real_token_reserves, input_sol_after_fee * v_tok / (v_sol + input_sol_after_fee))
//	max_sol_cost = sol * (10000 + slippage_bps) / 10000
func ComputeBuyAmounts(solLamports, virtualSolReserves, virtualTokenReserves, realTokenReserves, slippageBps uint64) BuyAmounts {
	sol := new(big.Int).SetUint64(solLamports)
	denom := new(big.Int).SetUint64(basisPointsDenominator + TotalFeeBasisPoints)
	inputAfterFee := new(big.Int).Mul(sol, new(big.Int).SetUint64(basisPointsDenominator))
	inputAfterFee.Div(inputAfterFee, denom)

	vSol := new(big.Int).SetUint64(virtualSolReserves)
	vTok := new(big.Int).SetUint64(virtualTokenReserves)

	numerator := new(big.Int).Mul(inputAfterFee, vTok)
	denominator := new(big.Int).Add(vSol, inputAfterFee)

	var tokensOut *big.Int
	if denominator.Sign() == 0 {
		tokensOut = big.NewInt(0)
	} else {
		tokensOut = new(big.Int).Div(numerator, denominator)
	}

	realTok := new(big.Int).SetUint64(realTokenReserves)
	if tokensOut.Cmp(realTok) > 0 {
		tokensOut = realTok
	}

	maxSolCost := new(big.Int).Mul(sol, new(big.Int).SetUint64(basisPointsDenominator+slippageBps))
	maxSolCost.Div(maxSolCost, new(big.Int).SetUint64(basisPointsDenominator))

	return BuyAmounts{
		InputSolAfterFee: inputAfterFee.Uint64(),
		TokensOut:        tokensOut.Uint64(),
		MaxSolCost:       maxSolCost.Uint64(),
	}
}

// EstimateBuyTokenAmount replicates executor/builder.rs's
// estimate_buy_token_amount exactly (constant-product quote, pre-fee,
// used for fallback estimation when on-chain balance cannot be read).
func EstimateBuyTokenAmount(virtualTokenReserves, virtualSolReserves, solAmount uint64) uint64 {
	if solAmount == 0 || virtualSolReserves == 0 || virtualTokenReserves == 0 {
		return 0
	}
	n := new(big.Int).Mul(new(big.Int).SetUint64(virtualSolReserves), new(big.Int).SetUint64(virtualTokenReserves))
	i := new(big.Int).Add(new(big.Int).SetUint64(virtualSolReserves), new(big.Int).SetUint64(solAmount))
	r := new(big.Int).Div(n, i)
	r.Add(r, big.NewInt(1))
	s := new(big.Int).Sub(new(big.Int).SetUint64(virtualTokenReserves), r)
	if s.Sign() < 0 {
		return 0
	}
	maxU64 := new(big.Int).SetUint64(^uint64(0))
	if s.Cmp(maxU64) > 0 {
		return ^uint64(0)
	}
	return s.Uint64()
}

// EstimateSellSolAmount replicates executor/builder.rs's
// estimate_sell_sol_amount exactly, including the 125 bps total fee.
func EstimateSellSolAmount(virtualTokenReserves, virtualSolReserves, tokenAmount uint64) uint64 {
	if tokenAmount == 0 || virtualSolReserves == 0 || virtualTokenReserves == 0 {
		return 0
	}
	n := new(big.Int).Mul(new(big.Int).SetUint64(tokenAmount), new(big.Int).SetUint64(virtualSolReserves))
	denom := new(big.Int).Add(new(big.Int).SetUint64(virtualTokenReserves), new(big.Int).SetUint64(tokenAmount))
	n.Div(n, denom)

	a := new(big.Int).Mul(n, new(big.Int).SetUint64(TotalFeeBasisPoints))
	a.Div(a, new(big.Int).SetUint64(basisPointsDenominator))

	result := new(big.Int).Sub(n, a)
	if result.Sign() < 0 {
		result.SetUint64(0)
	}
	maxU64 := new(big.Int).SetUint64(^uint64(0))
	if result.Cmp(maxU64) > 0 {
		return ^uint64(0)
	}
	return result.Uint64()
}
