package bus

// Memory is a plain read/write device. When it is mounted on
// a range larger than its size it mirrors itself over the range.
type Memory struct {
	data []uint8
}

func NewMemory(size int) *Memory {
	return &Memory{data: make([]uint8, size)}
}

func (m *Memory) Len() int {
	return len(m.data)
}

func (m *Memory) Read8(addr uint16) uint8 {
	return m.data[int(addr)%len(m.data)]
}

func (m *Memory) Write8(addr uint16, data uint8) uint8 {
	m.data[int(addr)%len(m.data)] = data
	return data
}

func (m *Memory) Slice(from uint16) []uint8 {
	return m.data[int(from)%len(m.data):]
}

// Load copies data into memory starting at addr.
func (m *Memory) Load(addr uint16, data []uint8) {
	for i, v := range data {
		m.Write8(addr+uint16(i), v)
	}
}
