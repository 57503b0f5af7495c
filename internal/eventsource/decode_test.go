package eventsource

import (
	"encoding/base64"
	"encoding/binary"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/sniper/internal/domain"
)

func appendU64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendPubkey(buf []byte, pk solana.PublicKey) []byte {
	return append(buf, pk[:]...)
}

func appendBorshString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, []byte(s)...)
}

func buildTradePayload(mint, user, feeRecipient, creator solana.PublicKey, solAmount uint64, isBuy bool, ts time.Time) []byte {
	buf := make([]byte, 0, tradeEventPayloadSize)
	buf = appendPubkey(buf, mint)
	buf = appendU64(buf, solAmount)
	buf = appendU64(buf, 5_000_000) // token amount
	buf = appendBool(buf, isBuy)
	buf = appendPubkey(buf, user)
	buf = appendU64(buf, uint64(ts.Unix()))
	buf = appendU64(buf, 30_000_000_000) // virtual sol reserves
	buf = appendU64(buf, 1_000_000_000_000) // virtual token reserves
	buf = appendU64(buf, 800_000_000) // real sol reserves
	buf = appendU64(buf, 900_000_000_000) // real token reserves
	buf = appendPubkey(buf, feeRecipient)
	buf = appendU64(buf, 100) // fee basis points
	buf = appendU64(buf, 1000) // fee
	buf = appendPubkey(buf, creator)
	buf = appendU64(buf, 50) // creator fee bps
	buf = appendU64(buf, 500) // creator fee
	buf = appendBool(buf, true) // track volume
	buf = appendU64(buf, 0) // total unclaimed
	buf = appendU64(buf, 0) // total claimed
	buf = appendU64(buf, 123) // current sol volume
	buf = appendU64(buf, uint64(ts.Unix())) // last update
	return buf
}

func TestDecodeTrade_RoundTripsAllFields(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	feeRecipient := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	ts := time.Unix(1_700_000_000, 0).UTC()

	payload := buildTradePayload(mint, user, feeRecipient, creator, 2_000_000_000, true, ts)
	require.Len(t, payload, tradeEventPayloadSize)

	ev, err := DecodeTrade(payload, "sig1")
	require.NoError(t, err)
	assert.Equal(t, mint, ev.Mint)
	assert.Equal(t, user, ev.User)
	assert.Equal(t, uint64(2_000_000_000), ev.SolAmount)
	assert.True(t, ev.IsBuy)
	assert.Equal(t, uint64(30_000_000_000), ev.VirtualSolReserves)
	assert.Equal(t, uint64(1_000_000_000_000), ev.VirtualTokenReserves)
	assert.Equal(t, feeRecipient, ev.FeeRecipient)
	assert.Equal(t, creator, ev.Creator)
	assert.Equal(t, ts, ev.Timestamp)
	assert.Equal(t, "sig1", ev.Signature)
}

func TestDecodeTrade_TooShortPayloadErrors(t *testing.T) {
	_, err := DecodeTrade(make([]byte, tradeEventPayloadSize-1), "sig")
	assert.Error(t, err)
}

func TestDecodeCreate_RoundTrips(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	bondingCurve := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	ts := time.Unix(1_700_000_100, 0).UTC()

	buf := make([]byte, 0, createEventPayloadMin)
	buf = appendBorshString(buf, "DogWifHat")
	buf = appendBorshString(buf, "DWH")
	buf = appendBorshString(buf, "https://example.com/dwh.json")
	buf = appendPubkey(buf, mint)
	buf = appendPubkey(buf, bondingCurve)
	buf = appendPubkey(buf, user)
	buf = appendPubkey(buf, creator)
	buf = appendU64(buf, uint64(ts.Unix()))
	buf = appendU64(buf, 1_000_000_000_000) // virtual token reserves
	buf = appendU64(buf, 30_000_000_000)    // virtual sol reserves
	buf = appendU64(buf, 1_000_000_000_000) // real token reserves
	buf = appendU64(buf, 1_000_000_000_000) // total supply

	ev, err := DecodeCreate(buf, "sig2")
	require.NoError(t, err)
	assert.Equal(t, "DogWifHat", ev.Name)
	assert.Equal(t, "DWH", ev.Symbol)
	assert.Equal(t, "https://example.com/dwh.json", ev.URI)
	assert.Equal(t, mint, ev.Mint)
	assert.Equal(t, bondingCurve, ev.BondingCurve)
	assert.Equal(t, creator, ev.Creator)
	assert.Equal(t, uint64(30_000_000_000), ev.VirtualSolReserves)
}

func TestDecodeMigrate_RoundTrips(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	bondingCurve := solana.NewWallet().PublicKey()
	pool := solana.NewWallet().PublicKey()
	ts := time.Unix(1_700_000_200, 0).UTC()

	buf := make([]byte, 0, migrateEventPayloadSize)
	buf = appendPubkey(buf, user)
	buf = appendPubkey(buf, mint)
	buf = appendU64(buf, 500_000_000_000)
	buf = appendU64(buf, 85_000_000_000)
	buf = appendU64(buf, 1_000_000)
	buf = appendPubkey(buf, bondingCurve)
	buf = appendU64(buf, uint64(ts.Unix()))
	buf = appendPubkey(buf, pool)
	require.Len(t, buf, migrateEventPayloadSize)

	ev, err := DecodeMigrate(buf, "sig3")
	require.NoError(t, err)
	assert.Equal(t, user, ev.User)
	assert.Equal(t, mint, ev.Mint)
	assert.Equal(t, bondingCurve, ev.BondingCurve)
	assert.Equal(t, pool, ev.Pool)
	assert.Equal(t, uint64(500_000_000_000), ev.MintAmount)
}

func TestDecodeMigrate_TooShortPayloadErrors(t *testing.T) {
	_, err := DecodeMigrate(make([]byte, migrateEventPayloadSize-1), "sig")
	assert.Error(t, err)
}

func TestDecodeLog_ExtractsTradeEvent(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	feeRecipient := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	payload := buildTradePayload(mint, user, feeRecipient, creator, 1_000_000_000, true, time.Unix(1_700_000_300, 0).UTC())

	data := append(append([]byte{}, tradeEventDiscriminator[:]...), payload...)
	encoded := base64.StdEncoding.EncodeToString(data)

	raw, err := DecodeLog("Program data: "+encoded, "sig4")
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, domain.EventKindTrade, raw.Kind)
	assert.Equal(t, mint, raw.Trade.Mint)
}

func TestDecodeLog_NonEventLogReturnsNilNil(t *testing.T) {
	raw, err := DecodeLog("Program log: some unrelated message", "sig5")
	assert.NoError(t, err)
	assert.Nil(t, raw)
}

func TestDecodeLog_UnknownDiscriminatorReturnsNilNil(t *testing.T) {
	junk := make([]byte, 40)
	encoded := base64.StdEncoding.EncodeToString(junk)
	raw, err := DecodeLog("Program data: "+encoded, "sig6")
	assert.NoError(t, err)
	assert.Nil(t, raw)
}

func TestDecodeLog_MalformedBase64ReturnsNilNil(t *testing.T) {
	raw, err := DecodeLog("Program data: not-valid-base64!!", "sig7")
	assert.NoError(t, err)
	assert.Nil(t, raw)
}
