// Package codec implements the runtime encode/decode path: turning
// a raw CAN frame payload into physical signal values using a parsed Dbc,
// and packing physical values back into a payload. Codec imports the root
// godbc package for Dbc/Message/Signal; godbc never imports codec, so the
// dependency is one-directional.
package codec

import (
	"math"

	"github.com/canframe/godbc"
)

// DecodedSignal is one signal's value as read off a frame.
type DecodedSignal struct {
	Name     string
	Raw      uint64
	Physical float64
	Unit     string
}

// Decode extracts every currently active signal of message id from
// payload. A signal that is multiplexed but not selected by the frame's
// switch value (plainly or via SG_MUL_VAL_ ranges) is omitted rather than
// erroring: "decode what is present".
func Decode(dbc *godbc.Dbc, id uint32, payload []byte) ([]DecodedSignal, error) {
	msg, ok := dbc.FindMessage(id)
	if !ok {
		return nil, &godbc.Error{Kind: godbc.KindUnknownID, Context: map[string]any{"id": id}}
	}
	if len(payload) < int(msg.Dlc) {
		return nil, &godbc.Error{Kind: godbc.KindShortPayload, Context: map[string]any{
			"expected": int(msg.Dlc), "got": len(payload),
		}}
	}

	switchRaw, haveSwitch, err := decodeSwitchValue(msg, payload)
	if err != nil {
		return nil, err
	}

	var out []DecodedSignal
	for _, s := range msg.Signals() {
		if s.Multiplex.Kind == godbc.MultiplexMultiplexed {
			if !haveSwitch {
				continue
			}
			if !signalActive(dbc, msg.ID, s, switchRaw) {
				continue
			}
		}
		raw, err := extractRaw(payload, s)
		if err != nil {
			return nil, err
		}
		phys, err := rawToPhysical(s, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, DecodedSignal{Name: s.Name, Raw: raw, Physical: phys, Unit: s.Unit})
	}
	return out, nil
}

// Encode packs values (signal name -> physical value) into a payload for
// message id. Only the signals named in values are written; the rest of
// the payload is left zeroed. A multiplexed signal not active under the
// switch value present in values (or defaulting to 0 if the message has
// no switch value supplied) fails with KindMultiplexMismatch.
func Encode(dbc *godbc.Dbc, id uint32, values map[string]float64) ([]byte, error) {
	msg, ok := dbc.FindMessage(id)
	if !ok {
		return nil, &godbc.Error{Kind: godbc.KindUnknownID, Context: map[string]any{"id": id}}
	}
	payload := make([]byte, msg.Dlc)

	var switchRaw uint64
	haveSwitch := false
	if sw := findSwitch(msg); sw != nil {
		haveSwitch = true
		if v, ok := values[sw.Name]; ok {
			raw, err := physicalToRaw(*sw, v)
			if err != nil {
				return nil, err
			}
			switchRaw = raw
			if err := packRaw(payload, *sw, raw); err != nil {
				return nil, err
			}
		}
	}

	for name, v := range values {
		s, ok := msg.Signal(name)
		if !ok {
			return nil, &godbc.Error{Kind: godbc.KindUnknownSignal, Context: map[string]any{"name": name}}
		}
		if s.Multiplex.Kind == godbc.MultiplexSwitch {
			continue // already packed above
		}
		if s.Multiplex.Kind == godbc.MultiplexMultiplexed {
			if !haveSwitch || !signalActive(dbc, msg.ID, s, switchRaw) {
				return nil, &godbc.Error{Kind: godbc.KindMultiplexMismatch, Context: map[string]any{"name": name}}
			}
		}
		raw, err := physicalToRaw(s, v)
		if err != nil {
			return nil, err
		}
		if err := packRaw(payload, s, raw); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func findSwitch(msg godbc.Message) *godbc.Signal {
	for _, s := range msg.Signals() {
		if s.Multiplex.Kind == godbc.MultiplexSwitch {
			s := s
			return &s
		}
	}
	return nil
}

func decodeSwitchValue(msg godbc.Message, payload []byte) (uint64, bool, error) {
	sw := findSwitch(msg)
	if sw == nil {
		return 0, false, nil
	}
	raw, err := extractRaw(payload, *sw)
	if err != nil {
		return 0, false, err
	}
	return raw, true, nil
}

func signalActive(dbc *godbc.Dbc, messageID uint32, s godbc.Signal, switchRaw uint64) bool {
	ranges := dbc.ExtendedMultiplexingFor(messageID, s.Name)
	if len(ranges) > 0 {
		for _, r := range ranges {
			if r.Active(uint32(switchRaw)) {
				return true
			}
		}
		return false
	}
	return switchRaw == uint64(s.Multiplex.Value)
}

// extractRaw reads s's bits out of payload into an unsigned integer with
// bit 0 == the value's LSB, per Signal.Bits' contract.
func extractRaw(payload []byte, s godbc.Signal) (uint64, error) {
	bits, err := s.Bits()
	if err != nil {
		return 0, err
	}
	var raw uint64
	for i, pos := range bits {
		byteIdx, bitIdx := pos/8, pos%8
		if byteIdx < 0 || byteIdx >= len(payload) {
			return 0, &godbc.Error{Kind: godbc.KindShortPayload, Context: map[string]any{
				"expected": byteIdx + 1, "got": len(payload),
			}}
		}
		bit := (payload[byteIdx] >> uint(bitIdx)) & 1
		raw |= uint64(bit) << uint(i)
	}
	return raw, nil
}

// packRaw writes raw's low s.Length bits into payload at s's bit
// positions.
func packRaw(payload []byte, s godbc.Signal, raw uint64) error {
	bits, err := s.Bits()
	if err != nil {
		return err
	}
	for i, pos := range bits {
		byteIdx, bitIdx := pos/8, pos%8
		if byteIdx < 0 || byteIdx >= len(payload) {
			return &godbc.Error{Kind: godbc.KindShortPayload, Context: map[string]any{
				"expected": byteIdx + 1, "got": len(payload),
			}}
		}
		bit := (raw >> uint(i)) & 1
		if bit == 1 {
			payload[byteIdx] |= 1 << uint(bitIdx)
		} else {
			payload[byteIdx] &^= 1 << uint(bitIdx)
		}
	}
	return nil
}

// rawToPhysical interprets raw per s.ValueType/Unsigned and applies
// factor/offset.
func rawToPhysical(s godbc.Signal, raw uint64) (float64, error) {
	switch s.ValueType {
	case godbc.ValueTypeFloat32:
		if s.Length != 32 {
			return 0, &godbc.Error{Kind: godbc.KindUnsupportedValueType, Context: map[string]any{"name": s.Name}}
		}
		f := math.Float32frombits(uint32(raw))
		return float64(f)*s.Factor + s.Offset, nil
	case godbc.ValueTypeFloat64:
		if s.Length != 64 {
			return 0, &godbc.Error{Kind: godbc.KindUnsupportedValueType, Context: map[string]any{"name": s.Name}}
		}
		f := math.Float64frombits(raw)
		return f*s.Factor + s.Offset, nil
	default:
		return float64(signExtend(raw, s.Length, s.Unsigned))*s.Factor + s.Offset, nil
	}
}

// physicalToRaw is the inverse of rawToPhysical, failing with
// KindEncodeRange when the value does not fit the signal's bit width.
func physicalToRaw(s godbc.Signal, physical float64) (uint64, error) {
	unscaled := (physical - s.Offset) / s.Factor

	switch s.ValueType {
	case godbc.ValueTypeFloat32:
		if s.Length != 32 {
			return 0, &godbc.Error{Kind: godbc.KindUnsupportedValueType, Context: map[string]any{"name": s.Name}}
		}
		return uint64(math.Float32bits(float32(unscaled))), nil
	case godbc.ValueTypeFloat64:
		if s.Length != 64 {
			return 0, &godbc.Error{Kind: godbc.KindUnsupportedValueType, Context: map[string]any{"name": s.Name}}
		}
		return math.Float64bits(unscaled), nil
	default:
		iv := int64(math.Round(unscaled))
		return packInteger(iv, s)
	}
}

// signExtend interprets the low `length` bits of raw as a two's
// complement signed integer when !unsigned, otherwise as unsigned.
func signExtend(raw uint64, length uint16, unsigned bool) int64 {
	if unsigned || length == 0 || length >= 64 {
		return int64(raw)
	}
	signBit := uint64(1) << (length - 1)
	if raw&signBit != 0 {
		return int64(raw) - int64(uint64(1)<<length)
	}
	return int64(raw)
}

func packInteger(v int64, s godbc.Signal) (uint64, error) {
	length := s.Length
	if s.Unsigned {
		if v < 0 {
			return 0, encodeRangeErr(s.Name)
		}
		maxVal := uint64(math.MaxUint64)
		if length < 64 {
			maxVal = (uint64(1) << length) - 1
		}
		if uint64(v) > maxVal {
			return 0, encodeRangeErr(s.Name)
		}
		return uint64(v), nil
	}

	var minVal, maxVal int64 = math.MinInt64, math.MaxInt64
	if length < 64 {
		maxVal = (int64(1) << (length - 1)) - 1
		minVal = -(int64(1) << (length - 1))
	}
	if v < minVal || v > maxVal {
		return 0, encodeRangeErr(s.Name)
	}
	mask := uint64(math.MaxUint64)
	if length < 64 {
		mask = (uint64(1) << length) - 1
	}
	return uint64(v) & mask, nil
}

func encodeRangeErr(name string) error {
	return &godbc.Error{Kind: godbc.KindEncodeRange, Context: map[string]any{"name": name}}
}
