package godbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNodes(t *testing.T) {
	var testCases = []struct {
		name      string
		given     []string
		expectErr bool
	}{
		{name: "ok, empty", given: nil},
		{name: "ok, unique", given: []string{"ECM", "TCM", "BCM"}},
		{name: "nok, duplicate", given: []string{"ECM", "ECM"}, expectErr: true},
		{name: "nok, reserved broadcast node", given: []string{BroadcastNode}, expectErr: true},
		{name: "nok, bad identifier", given: []string{"1ECM"}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := NewNodes(tc.given, DefaultMaxNameSize, DefaultMaxNodes)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, len(tc.given), n.Len())
		})
	}
}

func TestMessage_IsExtended(t *testing.T) {
	m := Message{ID: EncodeExtendedID(0x123, true)}
	assert.True(t, m.IsExtended())
	assert.Equal(t, uint32(0x123), m.RawID())

	m2 := Message{ID: EncodeExtendedID(0x123, false)}
	assert.False(t, m2.IsExtended())
	assert.Equal(t, uint32(0x123), m2.RawID())
}

func TestMessages_FindByID(t *testing.T) {
	msgs := NewMessages([]Message{
		{ID: 100, Name: "A"},
		{ID: 200, Name: "B"},
	})

	m, ok := msgs.FindByID(200)
	assert.True(t, ok)
	assert.Equal(t, "B", m.Name)

	_, ok = msgs.FindByID(999)
	assert.False(t, ok)

	m, ok = msgs.FindByName("A")
	assert.True(t, ok)
	assert.Equal(t, uint32(100), m.ID)
}

func TestSignal_Bits_LittleEndian(t *testing.T) {
	s := Signal{StartBit: 0, Length: 8, ByteOrder: LittleEndian}
	bits, err := s.Bits()
	assert.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, bits)
}

func TestSignal_Bits_BigEndian(t *testing.T) {
	// Classic Motorola example: start bit 7 (MSB of byte 0), length 16,
	// occupies byte0 and byte1 fully, LSB-first result is byte1 bit0..byte0 bit7.
	s := Signal{StartBit: 7, Length: 16, ByteOrder: BigEndian}
	bits, err := s.Bits()
	assert.NoError(t, err)
	assert.Len(t, bits, 16)
	assert.Equal(t, 8, bits[0]) // LSB: byte1 bit0
	assert.Equal(t, 7, bits[15]) // MSB: byte0 bit7
}

func TestValueDescriptions_Label(t *testing.T) {
	vd, err := NewValueDescriptions([]ValueDescription{
		{Value: 0, Label: "Off"},
		{Value: 1, Label: "On"},
	}, 0)
	assert.NoError(t, err)

	label, ok := vd.Label(1)
	assert.True(t, ok)
	assert.Equal(t, "On", label)

	_, ok = vd.Label(5)
	assert.False(t, ok)
}
