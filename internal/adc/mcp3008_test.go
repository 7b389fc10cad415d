package adc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/sweeney/fan-controller/internal/delay"
)

// spiDevice emulates an MCP3008 on the other end of an SPI port.
type spiDevice struct {
	counts  [8]uint16
	freq    physic.Frequency
	mode    spi.Mode
	bits    int
	written [][]byte
	txErr   error
}

func (d *spiDevice) String() string                     { return "fake-spi" }
func (d *spiDevice) LimitSpeed(f physic.Frequency) error { return nil }
func (d *spiDevice) Duplex() conn.Duplex                 { return conn.Full }
func (d *spiDevice) TxPackets(p []spi.Packet) error      { return errors.New("not implemented") }

func (d *spiDevice) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	d.freq, d.mode, d.bits = f, mode, bits
	return d, nil
}

func (d *spiDevice) Tx(w, r []byte) error {
	if d.txErr != nil {
		return d.txErr
	}
	d.written = append(d.written, append([]byte(nil), w...))
	if len(w) != 3 || w[0] != 0x01 || w[1]&0x80 == 0 {
		return errors.New("unexpected command")
	}
	v := d.counts[(w[1]>>4)&0x07]
	// The first byte and the upper bits of the second are undefined on the wire.
	r[0] = 0xFF
	r[1] = 0xF8 | byte(v>>8)&0x03
	r[2] = byte(v)
	return nil
}

func TestMCP3008Configure(t *testing.T) {
	dev := &spiDevice{}
	m := NewMCP3008(dev)

	require.NoError(t, m.Configure(Config{Clock: 500 * physic.KiloHertz}))
	assert.Equal(t, 500*physic.KiloHertz, dev.freq)
	assert.Equal(t, spi.Mode0, dev.mode)
	assert.Equal(t, 8, dev.bits)
}

func TestMCP3008ConfigureRejectsFastClock(t *testing.T) {
	m := NewMCP3008(&spiDevice{})
	assert.Error(t, m.Configure(Config{Clock: 10 * physic.MegaHertz}))
}

func TestMCP3008Conversion(t *testing.T) {
	dev := &spiDevice{}
	dev.counts[0] = 41
	dev.counts[5] = 1023
	m := NewMCP3008(dev)
	require.NoError(t, m.Configure(Config{}))

	require.NoError(t, m.SelectChannel(5))
	require.NoError(t, m.StartConversion())
	busy, err := m.Busy()
	require.NoError(t, err)
	assert.False(t, busy)
	raw, err := m.Result()
	require.NoError(t, err)
	assert.Equal(t, uint16(1023), raw)
	assert.Equal(t, []byte{0x01, 0xD0, 0x00}, dev.written[0])

	require.NoError(t, m.SelectChannel(0))
	require.NoError(t, m.StartConversion())
	raw, err = m.Result()
	require.NoError(t, err)
	assert.Equal(t, uint16(41), raw)
}

func TestMCP3008ChannelRange(t *testing.T) {
	m := NewMCP3008(&spiDevice{})
	assert.Error(t, m.SelectChannel(8))
}

func TestMCP3008RequiresConfigure(t *testing.T) {
	m := NewMCP3008(&spiDevice{})
	assert.Error(t, m.StartConversion())
}

func TestMCP3008TransferError(t *testing.T) {
	dev := &spiDevice{txErr: errors.New("bus fault")}
	m := NewMCP3008(dev)
	require.NoError(t, m.Configure(Config{}))

	err := m.StartConversion()
	assert.ErrorIs(t, err, dev.txErr)
}

func TestMCP3008WithSampler(t *testing.T) {
	dev := &spiDevice{}
	dev.counts[0] = 512
	s := NewSampler(NewMCP3008(dev), Config{Justify: JustifyLeft}, delay.NewRecorder().Delay)
	require.NoError(t, s.Init())

	temp, err := s.ReadStableTemperature()
	require.NoError(t, err)
	assert.Equal(t, 250.0, temp)
}

func TestMCP3008CloseWithoutOpen(t *testing.T) {
	assert.NoError(t, NewMCP3008(&spiDevice{}).Close())
}

var (
	_ Converter = (*MCP3008)(nil)
	_ Converter = (*FakeConverter)(nil)
)
