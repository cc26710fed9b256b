package codec

import (
	"testing"

	"github.com/canframe/godbc"
	"pgregory.net/rapid"
)

// TestEncodeDecode_Identity checks that for any signal and any
// physical value within its encodable range, encode then decode returns
// the same raw bits (the physical value may differ only by float
// rounding introduced by the factor/offset scaling, which this checks via
// the raw integer, not the physical float).
func TestEncodeDecode_Identity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		length := rapid.IntRange(1, 32).Draw(rt, "length")
		unsigned := rapid.Bool().Draw(rt, "unsigned")
		order := godbc.LittleEndian
		if rapid.Bool().Draw(rt, "bigEndian") {
			order = godbc.BigEndian
		}
		startBit := uint16(0)
		if order == godbc.BigEndian {
			startBit = 7
		}

		limits := godbc.DefaultLimits()
		sb := godbc.NewSignalBuilder("S", limits).Bits(startBit, uint16(length)).ByteOrder(order).Scale(1, 0)
		if !unsigned {
			sb = sb.Signed()
		}
		sig, err := sb.Build()
		if err != nil {
			rt.Fatalf("signal build: %v", err)
		}

		dbc := buildMessage(t, 1, 8, sig)

		var raw uint64
		if length >= 64 {
			raw = rapid.Uint64().Draw(rt, "raw")
		} else {
			raw = rapid.Uint64Range(0, (uint64(1)<<uint(length))-1).Draw(rt, "raw")
		}

		physical := float64(raw)
		if !unsigned {
			physical = float64(signExtend(raw, uint16(length), false))
		}

		payload, err := Encode(dbc, 1, map[string]float64{"S": physical})
		if err != nil {
			rt.Fatalf("encode: %v", err)
		}
		out, err := Decode(dbc, 1, payload)
		if err != nil {
			rt.Fatalf("decode: %v", err)
		}
		if len(out) != 1 {
			rt.Fatalf("expected 1 decoded signal, got %d", len(out))
		}
		if out[0].Raw != raw {
			rt.Fatalf("raw mismatch: want %d got %d", raw, out[0].Raw)
		}
	})
}

