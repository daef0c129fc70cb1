package obslog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask_Email(t *testing.T) {
	assert.Equal(t, "jd***@example.com", Mask("jdoe@example.com"))
}

func TestMask_ShortLocalPartEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", Mask("a@example.com"))
}

func TestMask_DigitString(t *testing.T) {
	assert.Equal(t, "555****4567", Mask("5551234567"))
}

func TestMask_ShortDigitStringUnmasked(t *testing.T) {
	assert.Equal(t, "123456", Mask("123456"))
}

func TestMask_PlainStringUnchanged(t *testing.T) {
	assert.Equal(t, "running", Mask("running"))
}

func TestLogger_DisabledIsNoop(t *testing.T) {
	l := New(Config{Enabled: false})
	assert.NotPanics(t, func() { l.LogStart("job-1", "owner-1") })
}
