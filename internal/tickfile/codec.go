// Package tickfile implements the bucket-file binary codec: a flat,
// append-only sequence of length-prefixed records, optionally
// gzip-wrapped, one file per (instrument, stream, date). Framing is
// little-endian via encoding/binary, matching spec.md §4.1/§6
// exactly; JSON collection metadata uses encoding/json, the teacher's
// choice throughout eventlog/scenario.
package tickfile

import (
	"encoding/binary"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/automatedalgo/apex/internal/apexerr"
	"github.com/automatedalgo/apex/internal/domain"
)

// Magic is the 4-byte header every bucket file starts with.
var Magic = [4]byte{'T', 'K', 'B', 'N'}

// Version is the current on-disk format version.
const Version uint16 = 1

// recordType tags the payload that follows the common record prefix.
type recordType uint8

const (
	recordTopOfBook recordType = 1
	recordTrade     recordType = 2
)

// StreamInfo is the per-file header identifying the instrument and
// stream the records belong to.
type StreamInfo struct {
	NativeSymbol string
	ExchangeID   domain.ExchangeID
	Stream       domain.MdStream
}

// encodePayload serializes the type-specific fixed fields of one tick
// event, little-endian, as fixed-point int64 scaled by 1e8 — enough
// precision for any crypto tick size while keeping records fixed-width.
const priceScale = 100_000_000

func encodeDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(priceScale)).Round(0).IntPart()
}

func decodeDecimal(v int64) decimal.Decimal {
	return decimal.NewFromInt(v).Div(decimal.NewFromInt(priceScale))
}

func encodePayload(buf []byte, evt domain.TickEvent) (recordType, []byte) {
	switch evt.Kind {
	case domain.TickTopOfBook:
		tob := evt.TopOfBook
		buf = binary.LittleEndian.AppendUint64(buf, uint64(encodeDecimal(tob.BidPx)))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(encodeDecimal(tob.BidQty)))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(encodeDecimal(tob.AskPx)))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(encodeDecimal(tob.AskQty)))
		return recordTopOfBook, buf
	case domain.TickTrade:
		tr := evt.Trade
		buf = binary.LittleEndian.AppendUint64(buf, uint64(encodeDecimal(tr.Price)))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(encodeDecimal(tr.Qty)))
		buf = append(buf, byte(tr.Aggressor))
		return recordTrade, buf
	default:
		panic(fmt.Sprintf("tickfile: unknown tick kind %d", evt.Kind))
	}
}

func decodePayload(rt recordType, payload []byte) (tob *domain.TopOfBookEvent, trade *domain.TradeEvent, err error) {
	switch rt {
	case recordTopOfBook:
		if len(payload) < 32 {
			return nil, nil, fmt.Errorf("tickfile: short top-of-book payload")
		}
		tob = &domain.TopOfBookEvent{
			BidPx:  decodeDecimal(int64(binary.LittleEndian.Uint64(payload[0:8]))),
			BidQty: decodeDecimal(int64(binary.LittleEndian.Uint64(payload[8:16]))),
			AskPx:  decodeDecimal(int64(binary.LittleEndian.Uint64(payload[16:24]))),
			AskQty: decodeDecimal(int64(binary.LittleEndian.Uint64(payload[24:32]))),
		}
		return tob, nil, nil
	case recordTrade:
		if len(payload) < 17 {
			return nil, nil, fmt.Errorf("tickfile: short trade payload")
		}
		trade = &domain.TradeEvent{
			Price:     decodeDecimal(int64(binary.LittleEndian.Uint64(payload[0:8]))),
			Qty:       decodeDecimal(int64(binary.LittleEndian.Uint64(payload[8:16]))),
			Aggressor: domain.Side(payload[16]),
		}
		return nil, trade, nil
	default:
		return nil, nil, apexerr.NewValidationError("tickfile", "unknown record_type %d", rt)
	}
}
