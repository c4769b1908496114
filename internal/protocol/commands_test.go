package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCommand(t *testing.T) {
	t.Parallel()

	t.Run("enable packet layout", func(t *testing.T) {
		t.Parallel()
		buf, err := EncodeCommand("a104")
		require.NoError(t, err)
		require.Len(t, buf, 16)

		want := make([]byte, 16)
		want[0] = 0xA1
		want[1] = 0x04
		want[15] = 0xA5 // (0xA1 + 0x04) mod 256
		assert.Equal(t, want, buf)
	})

	t.Run("disable packet checksum", func(t *testing.T) {
		t.Parallel()
		buf, err := EncodeCommand("a102")
		require.NoError(t, err)
		assert.Equal(t, byte(0xA3), buf[15])
	})

	t.Run("checksum wraps mod 256", func(t *testing.T) {
		t.Parallel()
		buf, err := EncodeCommand("ffff")
		require.NoError(t, err)
		assert.Equal(t, byte(0xFE), buf[15])
	})

	t.Run("full 15-byte payload", func(t *testing.T) {
		t.Parallel()
		buf, err := EncodeCommand("010101010101010101010101010101")
		require.NoError(t, err)
		assert.Equal(t, byte(15), buf[15])
	})

	t.Run("invalid hex", func(t *testing.T) {
		t.Parallel()
		_, err := EncodeCommand("zz")
		assert.Error(t, err)
	})

	t.Run("payload too long", func(t *testing.T) {
		t.Parallel()
		_, err := EncodeCommand("0101010101010101010101010101010101")
		assert.Error(t, err)
	})
}

func TestFixedCommands(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0xA1), CmdEnable[0])
	assert.Equal(t, byte(0x04), CmdEnable[1])
	assert.Equal(t, byte(0x02), CmdDisable[1])
	assert.Len(t, CmdEnable, 16)
	assert.Len(t, CmdDisable, 16)
}
