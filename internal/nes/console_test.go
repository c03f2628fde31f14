package nes

import (
	"bytes"
	"context"
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/nevisdale/nescore/internal/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConsole builds a console around a 16 KiB PRG bank
// with the program at $C000 and all vectors pointing to handlers.
func newTestConsole(t *testing.T, program []uint8, nmiHandler []uint8) *Console {
	t.Helper()

	prg := make([]uint8, prgBankSizeBytes)
	copy(prg, program)
	copy(prg[0x1000:], nmiHandler) // $D000
	// NMI $D000, RESET $C000, IRQ $C000
	copy(prg[0x3ffa:], []uint8{0x00, 0xd0, 0x00, 0xc0, 0x00, 0xc0})

	cart, err := NewCartFromPRG(prg, nil)
	require.NoError(t, err)
	c, err := NewConsole(cart)
	require.NoError(t, err)
	return c
}

func Test_ConsoleMemoryMap(t *testing.T) {
	c := newTestConsole(t, nil, nil)

	names := []string{}
	for _, m := range c.Mounts() {
		names = append(names, m.Range.String()+" "+m.Name)
	}
	assert.Equal(t, []string{
		"[$0000-$1FFF] ram",
		"[$2000-$3FFF] ppu",
		"[$4000-$4017] apu/io",
		"[$6000-$FFFF] cart",
	}, names)

	assert.Equal(t, uint16(0xc000), c.Registers().PC)

	// one bank is mirrored into $C000-$FFFF
	v, ok := c.Peek8(0xbffd)
	require.True(t, ok)
	assert.Equal(t, uint8(0xc0), v, "reset vector high byte")

	_, ok = c.Peek8(0x5000)
	assert.False(t, ok, "expansion area is not mapped")
}

func Test_ConsoleStep(t *testing.T) {
	c := newTestConsole(t, []uint8{
		0xa9, 0x07,       // LDA #$07
		0x8d, 0x01, 0x08, // STA $0801
		0xad, 0x01, 0x00, // LDA $0001
	}, nil)

	line, err := c.Step()
	require.NoError(t, err)
	assert.Contains(t, line, "LDA #$07")

	_, err = c.Step()
	require.NoError(t, err)
	_, err = c.Step()
	require.NoError(t, err)

	assert.Equal(t, uint8(0x07), c.Registers().A, "RAM is mirrored")
	assert.Equal(t, uint64(3), c.Steps())
}

func Test_ConsoleNMI(t *testing.T) {
	c := newTestConsole(t, []uint8{
		0xa9, 0x80,       // LDA #$80
		0x8d, 0x00, 0x20, // STA $2000
		0x4c, 0x05, 0xc0, // JMP $C005
	}, []uint8{
		0xe6, 0x10, // INC $10
		0x40,       // RTI
	})

	ctx := context.Background()
	require.NoError(t, c.Run(ctx, map[uint16]bool{0xd000: true}, nil))
	assert.Equal(t, uint16(0xd000), c.Registers().PC)
	assert.Equal(t, uint64(241*341+1), c.Steps(), "NMI raised at scanline 241 cycle 1")

	require.NoError(t, c.Run(ctx, map[uint16]bool{0xc005: true}, nil))
	v, _ := c.Peek8(0x10)
	assert.Equal(t, uint8(1), v)
}

func Test_ConsoleFatalErrors(t *testing.T) {
	t.Run("status write", func(t *testing.T) {
		c := newTestConsole(t, []uint8{0x8d, 0x02, 0x20}, nil) // STA $2002
		_, err := c.Step()
		assert.ErrorIs(t, err, ErrIllegalStatusWrite)
	})

	t.Run("unmapped read", func(t *testing.T) {
		c := newTestConsole(t, []uint8{0xad, 0x00, 0x50}, nil) // LDA $5000
		err := c.Run(context.Background(), nil, nil)
		var oor *bus.OutOfRangeError
		require.True(t, errors.As(err, &oor), "unexpected error %v", err)
		assert.Equal(t, uint16(0x5000), oor.Addr)
	})
}

func Test_ConsoleRunTrace(t *testing.T) {
	c := newTestConsole(t, []uint8{0xe8, 0xe8, 0x02, 0x4c, 0x00, 0xc0}, nil)

	var trace bytes.Buffer
	require.NoError(t, c.Run(context.Background(), map[uint16]bool{0xc000: true}, &trace))

	lines := strings.Split(strings.TrimSpace(trace.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "INX")
	assert.Contains(t, lines[2], "???")
	assert.Contains(t, lines[3], "JMP $C000")
}

func Test_ConsolePause(t *testing.T) {
	c := newTestConsole(t, []uint8{0x4c, 0x00, 0xc0}, nil)

	require.NoError(t, c.RunFrame())
	assert.Equal(t, uint64(1), c.Frame())

	c.TogglePause()
	steps := c.Steps()
	require.NoError(t, c.RunFrame())
	assert.Equal(t, steps, c.Steps(), "paused")

	c.OneStepAndStop()
	require.NoError(t, c.RunFrame())
	assert.Equal(t, steps+1, c.Steps())
	assert.True(t, c.Paused())
}

func Test_ConsoleDump(t *testing.T) {
	c := newTestConsole(t, nil, nil)
	var buf bytes.Buffer
	require.NoError(t, c.Dump(&buf))

	out := buf.String()
	assert.Contains(t, out, "[$2000-$3FFF] ppu\n2000: 00 00 00")
	// 0x2000 + 0x2000 + 0x18 + 0xa000 bytes in rows of 16, plus headers
	assert.Equal(t, 0x200+0x200+2+0xa00+4, strings.Count(out, "\n"))
}

func Test_BusTic_Nestest(t *testing.T) {
	nestestBinFile := os.Getenv("NESTEST_BIN")
	nestestLogFile := os.Getenv("NESTEST_LOG")
	if nestestBinFile == "" || nestestLogFile == "" {
		t.Skip("skipping test because NESTEST_BIN or NESTEST_LOG is not set")
		return
	}

	cart, err := NewCartFromFile(nestestBinFile)
	require.NoError(t, err, "Failed to load nestest rom")

	console, err := NewConsole(cart)
	require.NoError(t, err)
	// nestest (all tests) starts at 0xC000
	console.SetStart(0xc000)

	re := regexp.MustCompile(`([A-F0-9]{4}).+A:([A-F0-9]{2}) X:([A-F0-9]{2}) Y:([A-F0-9]{2}) P:([A-F0-9]{2}) SP:([A-F0-9]{2})`)
	type state struct {
		pc uint16
		// before executing the instruction
		a  uint8
		x  uint8
		y  uint8
		sp uint8
		p  uint8
	}

	parseHex := func(s string, bits int) uint64 {
		v, err := strconv.ParseUint(s, 16, bits)
		require.NoError(t, err)
		return v
	}

	parseLogLine := func(s string) state {
		match := re.FindStringSubmatch(s)
		require.NotNil(t, match, "unexpected log line %q", s)

		// from 1 to skip full match
		return state{
			pc: uint16(parseHex(match[1], 16)),
			a:  uint8(parseHex(match[2], 8)),
			x:  uint8(parseHex(match[3], 8)),
			y:  uint8(parseHex(match[4], 8)),
			p:  uint8(parseHex(match[5], 8)),
			sp: uint8(parseHex(match[6], 8)),
		}
	}

	logFileData, err := os.ReadFile(nestestLogFile)
	require.NoError(t, err, "Failed to open nestest log file")

	var expectedStates []state
	for _, line := range strings.Split(string(logFileData), "\n") {
		if len(line) == 0 {
			continue
		}
		expectedStates = append(expectedStates, parseLogLine(line))
	}

	for i, expectedState := range expectedStates {
		regs := console.Registers()
		actualState := state{
			pc: regs.PC,
			a:  regs.A,
			x:  regs.X,
			y:  regs.Y,
			sp: regs.SP,
			// the log shows the unused bit set
			p: uint8(regs.P) | 0x20,
		}
		if !assert.Equal(t, expectedState, actualState, "failed at instruction %s:%d", nestestLogFile, i) {
			return
		}

		_, err := console.Step()
		require.NoError(t, err, "instruction %d", i)
	}
}
