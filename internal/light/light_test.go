package light

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/chute.report/internal/classifier"
	"github.com/banshee-data/chute.report/internal/serialport"
)

func newTower(t *testing.T) (*Tower, *serialport.TestableSerialPort) {
	t.Helper()
	port := serialport.NewTestableSerialPort()
	tower, err := NewTower(port)
	require.NoError(t, err)
	return tower, port
}

func TestNewTowerResets(t *testing.T) {
	_, port := newTower(t)
	assert.Equal(t, []byte{0x28, 0x21, 0x22, 0x24}, port.GetWrittenData())
	assert.Equal(t, 4, port.WriteCalls)
}

func TestNewTowerWriteFailure(t *testing.T) {
	port := serialport.NewTestableSerialPort()
	port.WriteError = errors.New("unplugged")
	_, err := NewTower(port)
	assert.Error(t, err)
}

func TestCommands(t *testing.T) {
	cases := map[classifier.Color][]byte{
		classifier.Red:    {0x22, 0x24, 0x11},
		classifier.Green:  {0x21, 0x22, 0x14},
		classifier.Yellow: {0x21, 0x24, 0x12},
		classifier.Blue:   {0x21, 0x24, 0x12},
		classifier.White:  {0x11, 0x12, 0x14},
		classifier.Off:    {0x21, 0x22, 0x24},
		"magenta":         {0x21, 0x22, 0x24},
	}
	for c, want := range cases {
		assert.Equal(t, want, Commands(c), "colour %s", c)
	}
}

func TestSetColor(t *testing.T) {
	tower, port := newTower(t)
	port.WriteBuffer.Reset()

	require.NoError(t, tower.SetColor(classifier.Red))
	require.NoError(t, tower.SetColor(classifier.Green))
	assert.Equal(t, []byte{0x22, 0x24, 0x11, 0x21, 0x22, 0x14}, port.GetWrittenData())
}

func TestCloseTurnsOffOnce(t *testing.T) {
	tower, port := newTower(t)
	require.NoError(t, tower.SetColor(classifier.Red))
	port.WriteBuffer.Reset()

	require.NoError(t, tower.Close())
	require.NoError(t, tower.Close())
	assert.Equal(t, []byte{0x21, 0x22, 0x24}, port.GetWrittenData())
	assert.Equal(t, 1, port.CloseCalls)

	assert.ErrorIs(t, tower.SetColor(classifier.Green), serialport.ErrPortClosed)
}

func TestDisabled(t *testing.T) {
	var l Light = Disabled{}
	assert.NoError(t, l.SetColor(classifier.Red))
	assert.NoError(t, l.Close())
}
