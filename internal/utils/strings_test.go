package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeControlChars_Printable(t *testing.T) {
	assert.Equal(t, "km/h", EscapeControlChars([]byte("km/h")))
}

func TestEscapeControlChars_NamedControlChars(t *testing.T) {
	assert.Equal(t, `a\tb\nc`, EscapeControlChars([]byte("a\tb\nc")))
}

func TestEscapeControlChars_NonPrintableByte(t *testing.T) {
	assert.Equal(t, `RPM\xffx`, EscapeControlChars([]byte{'R', 'P', 'M', 0xff, 'x'}))
}

func TestEscapeControlChars_DelByte(t *testing.T) {
	assert.Equal(t, `\x7f`, EscapeControlChars([]byte{0x7f}))
}
