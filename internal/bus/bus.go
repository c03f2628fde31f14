package bus

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// addrSpaceSize is the size of the 16-bit address space.
// It does not fit into uint16, so ranges use uint32 for the end.
const addrSpaceSize = 0x10000

var (
	ErrRangeOverlap = errors.New("address range overlaps an existing mount")
	ErrInvalidRange = errors.New("invalid address range")
)

// Device is anything that can be mounted on the bus.
// Addresses passed to a device are already translated
// relative to the start of its range.
type Device interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, data uint8) uint8
	// Slice returns the rest of the device backing
	// starting at the given offset. Devices without
	// a linear backing return nil.
	Slice(from uint16) []uint8
}

// Peeker is implemented by devices whose Read8 has side effects.
// Peek8 must return the same value without changing any state.
type Peeker interface {
	Peek8(addr uint16) uint8
}

// Range is a half-open address range [Start, End).
type Range struct {
	Start uint16
	End   uint32
}

func NewRange(start uint16, end uint32) Range {
	return Range{Start: start, End: end}
}

func (r Range) Len() uint32 {
	return r.End - uint32(r.Start)
}

func (r Range) overlaps(o Range) bool {
	return uint32(r.Start) < o.End && uint32(o.Start) < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[$%04X-$%04X]", r.Start, r.End-1)
}

// Mount is a device registered on the bus.
type Mount struct {
	Range  Range
	Name   string
	Device Device
}

// OutOfRangeError is raised when the CPU touches an address
// no device is mounted on. It means the bus was built wrong.
type OutOfRangeError struct {
	Op   string
	Addr uint16
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("bus: %s at unmapped address $%04X", e.Op, e.Addr)
}

// Bus dispatches reads and writes to the devices mounted on it.
// The bus does not own the devices, it only keeps references to them.
type Bus struct {
	mounts []Mount
	// owner[addr] is the index of the mount + 1, 0 means unmapped
	owner [addrSpaceSize]uint8
}

func New() *Bus {
	return &Bus{}
}

// Register mounts the device on the given range.
// Ranges must not overlap.
func (b *Bus) Register(r Range, name string, d Device) error {
	if uint32(r.Start) >= r.End || r.End > addrSpaceSize {
		return fmt.Errorf("bus: couldn't mount %s at %s: %w", name, r, ErrInvalidRange)
	}
	for _, m := range b.mounts {
		if m.Range.overlaps(r) {
			return fmt.Errorf("bus: couldn't mount %s at %s: %w with %s at %s", name, r, ErrRangeOverlap, m.Name, m.Range)
		}
	}
	if len(b.mounts) >= 0xff {
		return fmt.Errorf("bus: couldn't mount %s: too many devices", name)
	}

	b.mounts = append(b.mounts, Mount{Range: r, Name: name, Device: d})
	idx := uint8(len(b.mounts))
	for addr := uint32(r.Start); addr < r.End; addr++ {
		b.owner[addr] = idx
	}
	return nil
}

// Mounts returns the mounted devices ordered by start address.
func (b *Bus) Mounts() []Mount {
	mounts := make([]Mount, len(b.mounts))
	copy(mounts, b.mounts)
	sort.Slice(mounts, func(i, j int) bool {
		return mounts[i].Range.Start < mounts[j].Range.Start
	})
	return mounts
}

func (b *Bus) lookup(addr uint16) (*Mount, bool) {
	idx := b.owner[addr]
	if idx == 0 {
		return nil, false
	}
	return &b.mounts[idx-1], true
}

func (b *Bus) mustLookup(op string, addr uint16) *Mount {
	m, ok := b.lookup(addr)
	if !ok {
		panic(&OutOfRangeError{Op: op, Addr: addr})
	}
	return m
}

// Read8 panics with *OutOfRangeError if nothing is mounted at addr.
func (b *Bus) Read8(addr uint16) uint8 {
	m := b.mustLookup("read", addr)
	return m.Device.Read8(addr - m.Range.Start)
}

// Write8 panics with *OutOfRangeError if nothing is mounted at addr.
func (b *Bus) Write8(addr uint16, data uint8) uint8 {
	m := b.mustLookup("write", addr)
	return m.Device.Write8(addr-m.Range.Start, data)
}

// FetchSlice returns the rest of the owning device backing
// starting at addr. It is used to decode instructions.
func (b *Bus) FetchSlice(addr uint16) []uint8 {
	m := b.mustLookup("fetch", addr)
	return m.Device.Slice(addr - m.Range.Start)
}

// Peek8 reads without side effects. It reports false for unmapped addresses.
func (b *Bus) Peek8(addr uint16) (uint8, bool) {
	m, ok := b.lookup(addr)
	if !ok {
		return 0, false
	}
	offset := addr - m.Range.Start
	if p, ok := m.Device.(Peeker); ok {
		return p.Peek8(offset), true
	}
	return m.Device.Read8(offset), true
}

// Dump writes every mounted range as rows of 16 bytes.
//
//	[$0000-$1FFF] ram
//	0000: 00 00 00 00 00 00 00 00 00 00 00 00 00 00 00 00
func (b *Bus) Dump(w io.Writer) error {
	var row strings.Builder
	for _, m := range b.Mounts() {
		if _, err := fmt.Fprintf(w, "%s %s\n", m.Range, m.Name); err != nil {
			return err
		}
		for line := uint32(m.Range.Start); line < m.Range.End; line += 16 {
			row.Reset()
			fmt.Fprintf(&row, "%04X:", line)
			for addr := line; addr < line+16 && addr < m.Range.End; addr++ {
				v, _ := b.Peek8(uint16(addr))
				fmt.Fprintf(&row, " %02X", v)
			}
			row.WriteByte('\n')
			if _, err := io.WriteString(w, row.String()); err != nil {
				return err
			}
		}
	}
	return nil
}
