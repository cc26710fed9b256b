package godbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDBC = `VERSION "1.0"

BS_:

BU_: ECU1 ECU2

BO_ 100 EngineData: 8 ECU1
 SG_ RPM : 0|16@1+ (0.25,0) [0|16000] "rpm" ECU2
 SG_ Temp : 16|8@1- (1,-40) [-40|215] "degC" ECU2

VAL_ 100 RPM 0 "Zero" ;
`

func TestParse_Minimal(t *testing.T) {
	dbc, err := Parse([]byte(minimalDBC))
	require.NoError(t, err)

	assert.Equal(t, "1.0", dbc.Version.String())
	assert.True(t, dbc.Nodes.Contains("ECU1"))
	assert.True(t, dbc.Nodes.Contains("ECU2"))

	msg, ok := dbc.FindMessage(100)
	require.True(t, ok)
	assert.Equal(t, "EngineData", msg.Name)
	assert.Equal(t, uint8(8), msg.Dlc)
	assert.Len(t, msg.Signals(), 2)

	rpm, ok := msg.Signal("RPM")
	require.True(t, ok)
	assert.Equal(t, LittleEndian, rpm.ByteOrder)
	assert.True(t, rpm.Unsigned)
	assert.Equal(t, 0.25, rpm.Factor)

	temp, ok := msg.Signal("Temp")
	require.True(t, ok)
	assert.False(t, temp.Unsigned)
	assert.Equal(t, -40.0, temp.Offset)

	vd, ok := dbc.ValueDescriptionsFor(100, "RPM")
	require.True(t, ok)
	label, ok := vd.Label(0)
	assert.True(t, ok)
	assert.Equal(t, "Zero", label)
}

// TestParse_RoundTrip checks that parsing, serializing, and reparsing
// yields the same semantic model.
func TestParse_RoundTrip(t *testing.T) {
	dbc, err := Parse([]byte(minimalDBC))
	require.NoError(t, err)

	text := ToText(dbc)
	dbc2, err := Parse([]byte(text))
	require.NoError(t, err)

	assert.Equal(t, dbc.Version.String(), dbc2.Version.String())
	assert.Equal(t, dbc.Messages.Len(), dbc2.Messages.Len())

	m1, ok1 := dbc.FindMessage(100)
	m2, ok2 := dbc2.FindMessage(100)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, m1.Signals(), m2.Signals())
}

func TestParse_BigEndianSignal(t *testing.T) {
	text := `VERSION ""

BU_: ECU1

BO_ 200 Status: 2 ECU1
 SG_ Flags : 7|16@0+ (1,0) [0|65535] "" ECU1
`
	dbc, err := Parse([]byte(text))
	require.NoError(t, err)
	msg, ok := dbc.FindMessage(200)
	require.True(t, ok)
	s, ok := msg.Signal("Flags")
	require.True(t, ok)
	assert.Equal(t, BigEndian, s.ByteOrder)
}

func TestParse_BasicMultiplexing(t *testing.T) {
	text := `VERSION ""

BU_: ECU1

BO_ 300 Mixed: 8 ECU1
 SG_ Mode M : 0|8@1+ (1,0) [0|255] "" ECU1
 SG_ ValueA m0 : 8|8@1+ (1,0) [0|255] "" ECU1
 SG_ ValueB m1 : 8|8@1+ (1,0) [0|255] "" ECU1
`
	dbc, err := Parse([]byte(text))
	require.NoError(t, err)
	msg, _ := dbc.FindMessage(300)
	mode, _ := msg.Signal("Mode")
	assert.Equal(t, MultiplexSwitch, mode.Multiplex.Kind)
	a, _ := msg.Signal("ValueA")
	assert.Equal(t, MultiplexMultiplexed, a.Multiplex.Kind)
	assert.Equal(t, uint32(0), a.Multiplex.Value)
}

func TestParse_ExtendedMultiplexing(t *testing.T) {
	text := `VERSION ""

BU_: ECU1

BO_ 400 Ext: 8 ECU1
 SG_ Mode M : 0|8@1+ (1,0) [0|255] "" ECU1
 SG_ Wide m0 : 8|16@1+ (1,0) [0|65535] "" ECU1

SG_MUL_VAL_ 400 Wide Mode 0-2,5-5;
`
	dbc, err := Parse([]byte(text))
	require.NoError(t, err)
	entries := dbc.ExtendedMultiplexingFor(400, "Wide")
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Active(1))
	assert.True(t, entries[0].Active(5))
	assert.False(t, entries[0].Active(3))
}

// TestParse_DuplicateMessageID implements scenario S7: duplicate message
// IDs are rejected.
func TestParse_DuplicateMessageID(t *testing.T) {
	text := `VERSION ""

BU_: ECU1

BO_ 500 First: 8 ECU1
 SG_ A : 0|8@1+ (1,0) [0|255] "" ECU1

BO_ 500 Second: 8 ECU1
 SG_ B : 0|8@1+ (1,0) [0|255] "" ECU1
`
	_, err := Parse([]byte(text))
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindDuplicateID, derr.Kind)
}

// TestParse_FactorZeroRejected implements scenario S8.
func TestParse_FactorZeroRejected(t *testing.T) {
	text := `VERSION ""

BU_: ECU1

BO_ 600 Bad: 8 ECU1
 SG_ A : 0|8@1+ (0,0) [0|255] "" ECU1
`
	_, err := Parse([]byte(text))
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindValidation, derr.Kind)
}

func TestParse_UnknownSectionSkipped(t *testing.T) {
	text := `VERSION ""

BU_: ECU1

CM_ BO_ 700 "some description with ; a semicolon inside quotes";

BO_ 700 Commented: 1 ECU1
 SG_ A : 0|8@1+ (1,0) [0|255] "" ECU1
`
	dbc, err := Parse([]byte(text))
	require.NoError(t, err)
	_, ok := dbc.FindMessage(700)
	assert.True(t, ok)
}

func TestParse_SigValType(t *testing.T) {
	text := `VERSION ""

BU_: ECU1

BO_ 800 FloatMsg: 4 ECU1
 SG_ Value : 0|32@1+ (1,0) [0|0] "" ECU1

SIG_VALTYPE_ 800 Value : 1;
`
	dbc, err := Parse([]byte(text))
	require.NoError(t, err)
	msg, _ := dbc.FindMessage(800)
	s, _ := msg.Signal("Value")
	assert.Equal(t, ValueTypeFloat32, s.ValueType)
}
