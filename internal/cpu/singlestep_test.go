package cpu

import (
	"encoding/json"
	"errors"
	"os"
	"path"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test_CPU_SingleStepTest runs the SingleStepTests 6502 suite
// (https://github.com/SingleStepTests/65x02). Decimal mode is
// skipped since this core derives Z and N from the BCD result.
func Test_CPU_SingleStepTest(t *testing.T) {
	t.Parallel()

	type cpuState struct {
		PC uint16 `json:"pc"`
		S  uint8  `json:"s"`
		A  uint8  `json:"a"`
		X  uint8  `json:"x"`
		Y  uint8  `json:"y"`
		P  uint8  `json:"p"`

		// slice of elements where
		// element[0] is address
		// element[1] is value
		RAM [][]uint16 `json:"ram"`
	}

	type testInstance struct {
		Name    string   `json:"name"`
		Initial cpuState `json:"initial"`
		Final   cpuState `json:"final"`

		// slice of elements where
		// element[0] is address
		// element[1] is value
		// element[2] is operation (read/write)
		Cycles [][]any `json:"cycles"`
	}

	dir := os.Getenv("SINGLE_STEP_TEST_DIR")
	if dir == "" {
		t.Skip("skipping test because SINGLE_STEP_TEST_DIR is not set")
		return
	}

	files, err := os.ReadDir(dir)
	require.NoError(t, err)

	// B and U do not exist in the register
	const flagMask = ^uint8(FlagBreak | flagUnused)

	mem := newMemMock(t)
	doTest := func(t *testing.T, test testInstance) {
		if test.Initial.P&uint8(FlagDecimal) != 0 {
			return
		}

		mem.reset()
		for _, addrVal := range test.Initial.RAM {
			mem.set(addrVal[0], uint8(addrVal[1]))
		}
		for _, cyc := range test.Cycles {
			op := cyc[2].(string)
			addr := uint16(cyc[0].(float64))
			data := uint8(cyc[1].(float64))
			mem.allow(op, addr, data)
		}

		c := New(mem)
		c.SetRegisters(Registers{
			PC: test.Initial.PC,
			SP: test.Initial.S,
			A:  test.Initial.A,
			X:  test.Initial.X,
			Y:  test.Initial.Y,
			P:  Flags(test.Initial.P),
		})

		_, err := c.Step()
		if errors.Is(err, ErrAddressSpaceExhausted) {
			return
		}
		require.NoError(t, err, test.Name)

		regs := c.Registers()
		require.Equal(t, test.Final.PC, regs.PC, "%s: PC", test.Name)
		require.Equal(t, test.Final.S, regs.SP, "%s: S", test.Name)
		require.Equal(t, test.Final.A, regs.A, "%s: A", test.Name)
		require.Equal(t, test.Final.X, regs.X, "%s: X", test.Name)
		require.Equal(t, test.Final.Y, regs.Y, "%s: Y", test.Name)
		require.Equal(t, test.Final.P&flagMask, uint8(regs.P)&flagMask, "%s: P", test.Name)

		for _, addrVal := range test.Final.RAM {
			mem.mustBe(addrVal[0], uint8(addrVal[1]))
		}
	}

	var tests []testInstance
	for _, file := range files {
		opcodeStr := path.Base(file.Name())[:2]
		opcode, err := strconv.ParseUint(opcodeStr, 16, 8)
		if err != nil {
			t.Fatalf("failed to parse opcode from file name %s: %v", file.Name(), err)
		}

		fileData, err := os.ReadFile(path.Join(dir, file.Name()))
		require.NoError(t, err, "failed to read file %s", file.Name())

		tests = tests[:0]
		err = json.Unmarshal(fileData, &tests)
		require.NoError(t, err, "failed to unmarshal file %s", file.Name())

		t.Run(file.Name(), func(t *testing.T) {
			if opcodes[uint8(opcode)].exec == nil {
				t.Skipf("skipping test for opcode %02X because it is not supported", opcode)
				return
			}
			for _, test := range tests {
				doTest(t, test)
			}
		})
	}
}

// memMock is a flat memory that only accepts the writes
// the test case lists.
type memMock struct {
	t       *testing.T
	data    []uint8
	allowed map[uint32]struct{}
}

func newMemMock(t *testing.T) *memMock {
	return &memMock{
		t:       t,
		data:    make([]uint8, 0x10000),
		allowed: make(map[uint32]struct{}),
	}
}

func (m *memMock) key(addr uint16, data uint8) uint32 {
	return uint32(addr) | uint32(data)<<16
}

func (m *memMock) allow(op string, addr uint16, data uint8) {
	if op == "write" {
		m.allowed[m.key(addr, data)] = struct{}{}
	}
}

func (m *memMock) mustBe(addr uint16, data uint8) {
	if m.data[addr] != data {
		m.t.Fatalf("expected %02X at address %04X, got %02X", data, addr, m.data[addr])
	}
}

func (m *memMock) set(addr uint16, data uint8) {
	m.data[addr] = data
}

func (m *memMock) reset() {
	clear(m.data)
	clear(m.allowed)
}

func (m *memMock) Read8(addr uint16) uint8 {
	// do not check because read does not change memory
	return m.data[addr]
}

func (m *memMock) Write8(addr uint16, data uint8) uint8 {
	if _, ok := m.allowed[m.key(addr, data)]; !ok {
		m.t.Fatalf("not allowed write to address %04X with value %02X", addr, data)
	}
	m.data[addr] = data
	return data
}

func (m *memMock) FetchSlice(addr uint16) []uint8 {
	return m.data[addr:]
}
