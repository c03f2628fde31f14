package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PPUStep_NMI(t *testing.T) {
	type testArgs struct {
		ctrl        uint8
		expectedNMI int
	}

	testDo := func(t *testing.T, in testArgs) {
		p := NewPPU()
		p.Write8(0x0, in.ctrl)

		nmis := 0
		for i := 1; i <= 341*242; i++ {
			if p.Step() != StepNMI {
				continue
			}
			nmis++
			assert.Equal(t, 241*341+1, i, "NMI step")
			assert.Equal(t, int16(241), p.Scanline())
			assert.Equal(t, uint16(1), p.Cycle())
		}
		assert.Equal(t, in.expectedNMI, nmis)
		assert.NotZero(t, p.Peek8(0x2)&statusVBlank, "VBlank is set")
	}

	t.Run("nmi enabled", func(t *testing.T) {
		testDo(t, testArgs{ctrl: ctrlNMI, expectedNMI: 1})
	})
	t.Run("nmi disabled", func(t *testing.T) {
		testDo(t, testArgs{ctrl: 0, expectedNMI: 0})
	})
}

func Test_PPUStep_Frame(t *testing.T) {
	p := NewPPU()
	p.Write8(0x0, ctrlNMI)

	// run until the pre-render line of the next frame
	for p.Frame() == 0 {
		p.Step()
	}
	assert.Equal(t, int16(preRenderScanline), p.Scanline())
	assert.Equal(t, uint16(0), p.Cycle())
	assert.Equal(t, uint8(statusVBlank), p.Peek8(0x2)&statusVBlank)

	p.Step()
	assert.Zero(t, p.Peek8(0x2)&statusVBlank, "VBlank cleared on the pre-render line")

	// a full frame is 262 lines, one NMI per frame
	nmis := 0
	for i := 0; i < 262*341; i++ {
		if p.Step() == StepNMI {
			nmis++
		}
	}
	assert.Equal(t, 1, nmis)
	assert.Equal(t, uint64(2), p.Frame())
}

func Test_PPUAddress(t *testing.T) {
	p := NewPPU()

	p.Write8(0x6, 0x21)
	p.Write8(0x6, 0x08)
	assert.Equal(t, uint16(0x2108), p.addr)

	// a status read resets the toggle
	p.Write8(0x6, 0x3f)
	p.Read8(0x2)
	p.Write8(0x6, 0x23)
	p.Write8(0x6, 0xc0)
	assert.Equal(t, uint16(0x23c0), p.addr)

	// scroll shares the toggle
	p.Write8(0x5, 0x10)
	p.Write8(0x6, 0x20)
	assert.Equal(t, uint16(0x1000), p.scroll)
	assert.Equal(t, uint16(0x2320), p.addr)
	assert.Equal(t, uint8(0x20), p.Read8(0x6), "reads return the low byte")
}

func Test_PPUStatusRead(t *testing.T) {
	p := NewPPU()
	p.status = statusVBlank | 0x40
	p.latch = true

	assert.Equal(t, uint8(0xc0), p.Peek8(0x2))
	assert.True(t, p.latch, "peek has no side effects")

	assert.Equal(t, uint8(0xc0), p.Read8(0x2))
	assert.Equal(t, uint8(0x40), p.Read8(0x2))
	assert.False(t, p.latch)
}

func Test_PPUStatusWrite(t *testing.T) {
	p := NewPPU()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrIllegalStatusWrite)
		assert.Zero(t, p.status)
	}()
	// $200A mirrors $2002
	p.Write8(0xa, 0xff)
}

func Test_PPUData(t *testing.T) {
	t.Run("increment by 1", func(t *testing.T) {
		p := NewPPU()
		p.Write8(0x6, 0x20)
		p.Write8(0x6, 0x00)
		p.Write8(0x7, 0xaa)
		p.Write8(0x7, 0xbb)
		assert.Equal(t, uint8(0xaa), p.vram[0x2000])
		assert.Equal(t, uint8(0xbb), p.vram[0x2001])
		assert.Equal(t, uint16(0x2002), p.addr)
	})

	t.Run("increment by 32", func(t *testing.T) {
		p := NewPPU()
		p.Write8(0x0, ctrlIncrement32)
		p.Write8(0x6, 0x20)
		p.Write8(0x6, 0x00)
		p.Write8(0x7, 0xaa)
		p.Write8(0x7, 0xbb)
		assert.Equal(t, uint8(0xaa), p.vram[0x2000])
		assert.Equal(t, uint8(0xbb), p.vram[0x2020])
		assert.Equal(t, uint16(0x2040), p.addr)
	})

	t.Run("buffered reads", func(t *testing.T) {
		p := NewPPU()
		p.LoadPatterns([]uint8{0x11, 0x22, 0x33})
		p.Write8(0x6, 0x00)
		p.Write8(0x6, 0x00)
		assert.Equal(t, uint8(0x00), p.Read8(0x7), "first read returns the stale buffer")
		assert.Equal(t, uint8(0x11), p.Read8(0x7))
		assert.Equal(t, uint8(0x22), p.Peek8(0x7))
		assert.Equal(t, uint8(0x22), p.Read8(0x7))
	})

	t.Run("palette reads are not buffered", func(t *testing.T) {
		p := NewPPU()
		p.Write8(0x6, 0x3f)
		p.Write8(0x6, 0x01)
		p.Write8(0x7, 0x2c)
		p.Write8(0x6, 0x3f)
		p.Write8(0x6, 0x21) // mirror of $3F01
		assert.Equal(t, uint8(0x2c), p.Read8(0x7))
	})

	t.Run("nametable mirror", func(t *testing.T) {
		p := NewPPU()
		p.Write8(0x6, 0x30)
		p.Write8(0x6, 0x05)
		p.Write8(0x7, 0x77)
		assert.Equal(t, uint8(0x77), p.vram[0x2005])
	})
}

func Test_PPUOAM(t *testing.T) {
	p := NewPPU()
	p.Write8(0x3, 0xff)
	p.Write8(0x4, 0x01)
	p.Write8(0x4, 0x02)

	assert.Equal(t, uint8(0x01), p.oam[0xff])
	assert.Equal(t, uint8(0x02), p.oam[0x00], "oamaddr wraps")
	assert.Equal(t, uint8(0x01), p.Read8(0x3))
}

func Test_PPUPatternTables(t *testing.T) {
	p := NewPPU()
	require.Len(t, p.Framebuffer(), ScreenWidth*ScreenHeight*3)
	assert.Nil(t, p.Slice(0))

	// tile 1: first row low plane set, second row high plane set
	chr := make([]uint8, 32)
	chr[16] = 0xff
	chr[16+9] = 0x80
	p.LoadPatterns(chr)
	p.DrawPatternTables()

	pixel := func(x, y int) []uint8 {
		i := (y*ScreenWidth + x) * 3
		return p.Framebuffer()[i : i+3]
	}
	assert.Equal(t, []uint8{0xff, 0xff, 0xff}, pixel(0, 0), "color 0")
	assert.Equal(t, []uint8{0x00, 0x00, 0xff}, pixel(8, 0), "color 1")
	assert.Equal(t, []uint8{0x00, 0xff, 0x00}, pixel(8, 1), "color 2")

	img := p.PatternTable(0)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, patternColors[1], img.RGBAAt(15, 0))
}
