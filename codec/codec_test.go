package codec

import (
	"testing"

	"github.com/canframe/godbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMessage(t *testing.T, id uint32, dlc uint8, signals ...godbc.Signal) *godbc.Dbc {
	t.Helper()
	limits := godbc.DefaultLimits()
	mb := godbc.NewMessageBuilder(id, "Msg", limits).Dlc(dlc).Sender("ECU1")
	for _, s := range signals {
		mb = mb.AddSignal(s)
	}
	msg, err := mb.Build()
	require.NoError(t, err)

	b := godbc.NewDbcBuilder(godbc.DefaultOptions())
	require.NoError(t, b.AddMessage(msg))
	dbc, err := b.Build()
	require.NoError(t, err)
	return dbc
}

func mustSignal(t *testing.T, sb *godbc.SignalBuilder) godbc.Signal {
	t.Helper()
	s, err := sb.Build()
	require.NoError(t, err)
	return s
}

// TestDecode_LittleEndian implements scenario S2.
func TestDecode_LittleEndian(t *testing.T) {
	limits := godbc.DefaultLimits()
	sig := mustSignal(t, godbc.NewSignalBuilder("RPM", limits).
		Bits(0, 16).ByteOrder(godbc.LittleEndian).Scale(0.25, 0).Range(0, 16000))

	dbc := buildMessage(t, 100, 8, sig)
	payload := []byte{0x10, 0x27, 0, 0, 0, 0, 0, 0} // 0x2710 = 10000 raw -> 2500 physical

	out, err := Decode(dbc, 100, payload)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(0x2710), out[0].Raw)
	assert.InDelta(t, 2500.0, out[0].Physical, 1e-9)
}

// TestDecode_BigEndian implements scenario S3.
func TestDecode_BigEndian(t *testing.T) {
	limits := godbc.DefaultLimits()
	sig := mustSignal(t, godbc.NewSignalBuilder("Flags", limits).
		Bits(7, 16).ByteOrder(godbc.BigEndian).Scale(1, 0).Range(0, 65535))

	dbc := buildMessage(t, 200, 2, sig)
	payload := []byte{0x12, 0x34}

	out, err := Decode(dbc, 200, payload)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(0x1234), out[0].Raw)
}

// TestDecode_SignedSignExtension implements scenario S4.
func TestDecode_SignedSignExtension(t *testing.T) {
	limits := godbc.DefaultLimits()
	sig := mustSignal(t, godbc.NewSignalBuilder("Temp", limits).
		Bits(0, 8).ByteOrder(godbc.LittleEndian).Signed().Scale(1, -40).Range(-40, 215))

	dbc := buildMessage(t, 300, 1, sig)
	// 0xFF as an 8-bit signed value is -1; physical = -1*1 + (-40) = -41.
	out, err := Decode(dbc, 300, []byte{0xFF})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, -41.0, out[0].Physical, 1e-9)
}

func TestDecode_BasicMultiplexing(t *testing.T) {
	limits := godbc.DefaultLimits()
	mode := mustSignal(t, godbc.NewSignalBuilder("Mode", limits).
		Bits(0, 8).Scale(1, 0).Range(0, 255).Multiplex(godbc.Switch()))
	a := mustSignal(t, godbc.NewSignalBuilder("ValueA", limits).
		Bits(8, 8).Scale(1, 0).Range(0, 255).Multiplex(godbc.Multiplexed(0)))
	bSig := mustSignal(t, godbc.NewSignalBuilder("ValueB", limits).
		Bits(8, 8).Scale(1, 0).Range(0, 255).Multiplex(godbc.Multiplexed(1)))

	dbc := buildMessage(t, 400, 8, mode, a, bSig)

	out, err := Decode(dbc, 400, []byte{0, 42, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	names := map[string]float64{}
	for _, d := range out {
		names[d.Name] = d.Physical
	}
	assert.Equal(t, 42.0, names["ValueA"])
	_, hasB := names["ValueB"]
	assert.False(t, hasB)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	limits := godbc.DefaultLimits()
	sig := mustSignal(t, godbc.NewSignalBuilder("RPM", limits).
		Bits(0, 16).ByteOrder(godbc.LittleEndian).Scale(0.25, 0).Range(0, 16000))
	dbc := buildMessage(t, 100, 8, sig)

	payload, err := Encode(dbc, 100, map[string]float64{"RPM": 2500})
	require.NoError(t, err)

	out, err := Decode(dbc, 100, payload)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 2500.0, out[0].Physical, 1e-9)
}

func TestEncode_UnknownSignal(t *testing.T) {
	limits := godbc.DefaultLimits()
	sig := mustSignal(t, godbc.NewSignalBuilder("RPM", limits).Bits(0, 16).Scale(1, 0))
	dbc := buildMessage(t, 100, 8, sig)

	_, err := Encode(dbc, 100, map[string]float64{"DoesNotExist": 1})
	require.Error(t, err)
	var derr *godbc.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, godbc.KindUnknownSignal, derr.Kind)
}

func TestEncode_RangeError(t *testing.T) {
	limits := godbc.DefaultLimits()
	sig := mustSignal(t, godbc.NewSignalBuilder("Small", limits).Bits(0, 4).Scale(1, 0))
	dbc := buildMessage(t, 100, 8, sig)

	_, err := Encode(dbc, 100, map[string]float64{"Small": 1000})
	require.Error(t, err)
	var derr *godbc.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, godbc.KindEncodeRange, derr.Kind)
}

func TestDecode_UnknownMessageID(t *testing.T) {
	dbc := buildMessage(t, 100, 8, mustSignal(t, godbc.NewSignalBuilder("A", godbc.DefaultLimits()).Bits(0, 8).Scale(1, 0)))
	_, err := Decode(dbc, 999, []byte{0})
	require.Error(t, err)
	var derr *godbc.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, godbc.KindUnknownID, derr.Kind)
}

func TestDecode_ShortPayload(t *testing.T) {
	dbc := buildMessage(t, 100, 8, mustSignal(t, godbc.NewSignalBuilder("A", godbc.DefaultLimits()).Bits(0, 8).Scale(1, 0)))
	_, err := Decode(dbc, 100, []byte{0, 1})
	require.Error(t, err)
	var derr *godbc.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, godbc.KindShortPayload, derr.Kind)
}
