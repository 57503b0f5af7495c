package eventsource

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/ai-agentic-browser/sniper/internal/domain"
)

// decodeReader is a tiny little-endian cursor over a byte slice, the Go
// equivalent of the Borsh-derived struct decode the venue log payload uses.
type decodeReader struct {
	buf []byte
	off int
	err error
}

func newDecodeReader(buf []byte) *decodeReader {
	return &decodeReader{buf: buf}
}

func (r *decodeReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("decode: need %d bytes at offset %d, have %d", n, r.off, len(r.buf))
		return false
	}
	return true
}

func (r *decodeReader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *decodeReader) boolean() bool {
	return r.u8() != 0
}

func (r *decodeReader) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v
}

func (r *decodeReader) i64() int64 {
	return int64(r.u64())
}

func (r *decodeReader) pubkey() solana.PublicKey {
	if !r.need(32) {
		return solana.PublicKey{}
	}
	var pk solana.PublicKey
	copy(pk[:], r.buf[r.off:r.off+32])
	r.off += 32
	return pk
}

// borshString reads a Borsh-encoded String: a u32 length prefix followed by
// that many UTF-8 bytes.
func (r *decodeReader) borshString() string {
	if !r.need(4) {
		return ""
	}
	n := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	if !r.need(int(n)) {
		return ""
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s
}

func unixToTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

// DecodeTrade decodes a Trade event payload (the bytes after the 16-byte
// discriminator has already been stripped) per spec.md §6's exact byte
// layout.
func DecodeTrade(payload []byte, signature string) (*domain.TradeEvent, error) {
	if len(payload) < tradeEventPayloadSize {
		return nil, fmt.Errorf("trade payload too short: got %d want >= %d", len(payload), tradeEventPayloadSize)
	}
	r := newDecodeReader(payload[:tradeEventPayloadSize])

	ev := &domain.TradeEvent{}
	ev.Mint = r.pubkey()
	ev.SolAmount = r.u64()
	ev.TokenAmount = r.u64()
	ev.IsBuy = r.boolean()
	ev.User = r.pubkey()
	ev.Timestamp = unixToTime(r.i64())
	ev.VirtualSolReserves = r.u64()
	ev.VirtualTokenReserves = r.u64()
	ev.RealSolReserves = r.u64()
	ev.RealTokenReserves = r.u64()
	ev.FeeRecipient = r.pubkey()
	ev.FeeBasisPoints = r.u64()
	ev.Fee = r.u64()
	ev.Creator = r.pubkey()
	ev.CreatorFeeBps = r.u64()
	ev.CreatorFee = r.u64()
	ev.TrackVolume = r.boolean()
	ev.TotalUnclaimed = r.u64()
	ev.TotalClaimed = r.u64()
	ev.CurrentSolVolume = r.u64()
	ev.LastUpdate = unixToTime(r.i64())
	ev.Signature = signature

	if r.err != nil {
		return nil, r.err
	}
	return ev, nil
}

// DecodeCreate decodes a Create event payload.
func DecodeCreate(payload []byte, signature string) (*domain.CreateEvent, error) {
	r := newDecodeReader(payload)

	ev := &domain.CreateEvent{}
	ev.Name = r.borshString()
	ev.Symbol = r.borshString()
	ev.URI = r.borshString()
	ev.Mint = r.pubkey()
	ev.BondingCurve = r.pubkey()
	ev.User = r.pubkey()
	ev.Creator = r.pubkey()
	ev.Timestamp = unixToTime(r.i64())
	ev.VirtualTokenReserves = r.u64()
	ev.VirtualSolReserves = r.u64()
	ev.RealTokenReserves = r.u64()
	ev.TotalSupply = r.u64()
	ev.Signature = signature

	if r.err != nil {
		return nil, r.err
	}
	return ev, nil
}

// DecodeMigrate decodes a Migrate event payload.
func DecodeMigrate(payload []byte, signature string) (*domain.MigrateEvent, error) {
	if len(payload) < migrateEventPayloadSize {
		return nil, fmt.Errorf("migrate payload too short: got %d want >= %d", len(payload), migrateEventPayloadSize)
	}
	r := newDecodeReader(payload[:migrateEventPayloadSize])

	ev := &domain.MigrateEvent{}
	ev.User = r.pubkey()
	ev.Mint = r.pubkey()
	ev.MintAmount = r.u64()
	ev.SolAmount = r.u64()
	ev.PoolFee = r.u64()
	ev.BondingCurve = r.pubkey()
	ev.Timestamp = unixToTime(r.i64())
	ev.Pool = r.pubkey()
	ev.Signature = signature

	if r.err != nil {
		return nil, r.err
	}
	return ev, nil
}

// DecodeLog extracts and decodes a "Program data: <base64>" log line into a
// RawEvent, matching on the 16-byte discriminator prefix. Returns (nil, nil)
// for lines without the marker, with invalid base64, shorter than 16 bytes,
// or with an unrecognized discriminator. A recognized discriminator whose
// payload is too short returns the decoder's error.
func DecodeLog(log, signature string) (*domain.RawEvent, error) {
	const marker = "Program data: "
	idx := strings.Index(log, marker)
	if idx < 0 {
		return nil, nil
	}
	encoded := strings.TrimSpace(log[idx+len(marker):])
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil
	}
	if len(data) < 16 {
		return nil, nil
	}

	var disc [16]byte
	copy(disc[:], data[:16])
	payload := data[16:]

	switch disc {
	case tradeEventDiscriminator:
		trade, err := DecodeTrade(payload, signature)
		if err != nil {
			return nil, err
		}
		return &domain.RawEvent{Kind: domain.EventKindTrade, Trade: trade}, nil
	case createEventDiscriminator:
		create, err := DecodeCreate(payload, signature)
		if err != nil {
			return nil, err
		}
		return &domain.RawEvent{Kind: domain.EventKindCreate, Create: create}, nil
	case migrateEventDiscriminator:
		migrate, err := DecodeMigrate(payload, signature)
		if err != nil {
			return nil, err
		}
		return &domain.RawEvent{Kind: domain.EventKindMigrate, Migrate: migrate}, nil
	default:
		return nil, nil
	}
}
