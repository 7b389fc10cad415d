package lcd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/fan-controller/internal/delay"
	"github.com/sweeney/fan-controller/internal/gpio"
)

const ms = time.Millisecond

func TestCursorAddress(t *testing.T) {
	tests := []struct {
		row, col uint8
		want     byte
	}{
		{1, 1, 0x80},
		{1, 12, 0x8B},
		{2, 1, 0xC0},
		{2, 9, 0xC8},
		{2, 16, 0xCF},
		{3, 1, 0xC0}, // any row other than 1 is row 2
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CursorAddress(tt.row, tt.col), "CursorAddress(%d, %d)", tt.row, tt.col)
	}
}

func TestCommandBusSequence(t *testing.T) {
	port := gpio.NewFakePort()
	rec := delay.NewRecorder()
	d := New(port, rec.Delay)

	require.NoError(t, d.Command(0x28))
	assert.Equal(t, []byte{0x00, 0x20, 0x22, 0x20, 0x80, 0x82, 0x80}, port.Writes)
	assert.Equal(t, []time.Duration{2 * ms, 2 * ms, 2 * ms}, rec.Calls())
}

func TestCharSetsRegisterSelect(t *testing.T) {
	port := gpio.NewFakePort()
	d := New(port, delay.NewRecorder().Delay)

	require.NoError(t, d.Char('A'))
	assert.Equal(t, []byte{0x01, 0x41, 0x43, 0x41, 0x11, 0x13, 0x11}, port.Writes)
}

func TestLowerNibblePreserved(t *testing.T) {
	port := gpio.NewFakePort()
	port.Value = 0x0C
	d := New(port, delay.NewRecorder().Delay)

	require.NoError(t, d.Init())
	require.NoError(t, d.WriteString("Hi"))
	require.NoError(t, d.SetCursor(2, 3))

	for i, w := range port.Writes {
		assert.Equal(t, byte(0x0C), w&0x0C, "write %d (0x%02X) disturbed bits 2-3", i, w)
	}
}

func TestInitTiming(t *testing.T) {
	rec := delay.NewRecorder()
	d := New(gpio.NewFakePort(), rec.Delay)

	require.NoError(t, d.Init())

	calls := rec.Calls()
	require.Len(t, calls, 5+4*3+1)
	assert.Equal(t, []time.Duration{50 * ms, 5 * ms, 1 * ms, 1 * ms, 1 * ms}, calls[:5])
	for _, c := range calls[5:] {
		assert.Equal(t, 2*ms, c)
	}
	assert.Equal(t, 84*ms, rec.Total())
}

func TestClearWaits(t *testing.T) {
	rec := delay.NewRecorder()
	d := New(gpio.NewFakePort(), rec.Delay)

	require.NoError(t, d.Clear())
	assert.Equal(t, 4, rec.Count(2*ms), "three strobe delays plus the clear delay")
}

func TestInitDecodedByEmulator(t *testing.T) {
	emu := NewEmulator(16)
	d := New(emu, delay.NewRecorder().Delay)

	require.NoError(t, d.Init())

	assert.True(t, emu.FourBit())
	assert.True(t, emu.TwoLine)
	assert.True(t, emu.DisplayOn)
	assert.False(t, emu.CursorOn)
	assert.Equal(t, 1, emu.Clears)
	assert.Equal(t, []byte{0x30, 0x30, 0x30, 0x20, 0x28, 0x0C, 0x06, 0x01}, emu.Instructions)
	assert.Equal(t, "", emu.Text(1))
	assert.Equal(t, "", emu.Text(2))
}

func TestWriteRows(t *testing.T) {
	emu := NewEmulator(16)
	d := New(emu, delay.NewRecorder().Delay)
	require.NoError(t, d.Init())

	require.NoError(t, d.Print(1, 1, "Temp:25.0C"))
	require.NoError(t, d.Print(1, 12, "T:20"))
	require.NoError(t, d.Print(2, 1, "Fan: ON "))

	assert.Equal(t, "Temp:25.0C T:20 ", emu.Line(1))
	assert.Equal(t, "Fan: ON", emu.Text(2))

	require.NoError(t, d.Print(2, 9, "THRESH!"))
	assert.Equal(t, "Fan: ON THRESH!", emu.Text(2))
	assert.Equal(t, byte(0x4F), emu.Address())
}

func TestClearBlanksDisplay(t *testing.T) {
	emu := NewEmulator(16)
	d := New(emu, delay.NewRecorder().Delay)
	require.NoError(t, d.Init())
	require.NoError(t, d.Print(1, 1, "System Ready"))
	require.Equal(t, "System Ready", emu.Text(1))

	require.NoError(t, d.Clear())
	assert.Equal(t, "", emu.Text(1))
	assert.Equal(t, byte(0), emu.Address())
	assert.Equal(t, 2, emu.Clears)
}

func TestWriteError(t *testing.T) {
	port := gpio.NewFakePort()
	port.WriteError = errors.New("line busy")
	d := New(port, delay.NewRecorder().Delay)

	err := d.WriteString("x")
	require.Error(t, err)
	assert.ErrorIs(t, err, port.WriteError)
	assert.ErrorIs(t, d.Init(), port.WriteError)
}

func TestEmulatorIgnoresWritesWithoutStrobe(t *testing.T) {
	emu := NewEmulator(16)
	require.NoError(t, emu.Write(0xF1))
	require.NoError(t, emu.Write(0x01))

	assert.Equal(t, 0, emu.Strobes)
	assert.Empty(t, emu.Instructions)
}

var _ gpio.Port = (*Emulator)(nil)
