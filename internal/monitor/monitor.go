// Package monitor is a line based debugger for the console.
package monitor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	"github.com/nevisdale/nescore/internal/nes"
	"golang.org/x/term"
)

const prompt = "nescore> "

const help = `break ADDR     add a breakpoint
clear          clear breakpoints
run            run until a breakpoint, an error or Ctrl-C
step [N]       step N instructions (default 1)
reset          hit the reset button
pc ADDR        set the program counter
mem LOW HIGH   show a memory range
stack          show the top of the stack
regs           show the registers
disasm [ADDR]  disassemble around ADDR (default PC)
dump           dump all mounted memory
cart           show the cartridge header
quit           leave the monitor
`

var errQuit = errors.New("quit")

type Monitor struct {
	console *nes.Console
	in      io.Reader
	out     io.Writer
	breaks  map[uint16]bool
	// trace receives every executed instruction when not nil
	trace io.Writer
}

func New(console *nes.Console, in io.Reader, out io.Writer) *Monitor {
	return &Monitor{
		console: console,
		in:      in,
		out:     out,
		breaks:  make(map[uint16]bool),
	}
}

// SetTrace makes run and step print every executed instruction to w.
func (m *Monitor) SetTrace(w io.Writer) {
	m.trace = w
}

// Run reads commands until quit, EOF or ctx is done. When the input
// is a terminal it is switched to raw mode for line editing and history.
func (m *Monitor) Run(ctx context.Context) error {
	if f, ok := m.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return m.runTerminal(ctx, int(f.Fd()))
	}

	scanner := bufio.NewScanner(m.in)
	for {
		fmt.Fprint(m.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(m.out)
			return scanner.Err()
		}
		if err := m.exec(ctx, scanner.Text()); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

func (m *Monitor) runTerminal(ctx context.Context, fd int) error {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("couldn't set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{m.in, m.out}, prompt)
	out := m.out
	m.out = t
	defer func() { m.out = out }()

	for {
		line, err := t.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		// Ctrl-C must reach the run loop as SIGINT
		if err := term.Restore(fd, oldState); err != nil {
			return err
		}
		err = m.exec(ctx, line)
		if _, rawErr := term.MakeRaw(fd); rawErr != nil {
			return rawErr
		}
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func parseAddr(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "$"), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return uint16(v), nil
}

// exec runs one command. Command errors are printed, only
// errQuit is returned to the caller.
func (m *Monitor) exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	if err := m.command(ctx, args[0], args[1:]); err != nil {
		if errors.Is(err, errQuit) {
			return err
		}
		fmt.Fprintf(m.out, "error: %s\n", err)
	}
	return nil
}

func (m *Monitor) command(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "h", "?":
		fmt.Fprint(m.out, help)
	case "quit", "q":
		return errQuit
	case "break", "b":
		if len(args) != 1 {
			return errors.New("usage: break ADDR")
		}
		addr, err := parseAddr(args[0])
		if err != nil {
			return err
		}
		m.breaks[addr] = true
		m.printBreaks()
	case "clear", "c":
		clear(m.breaks)
	case "run", "r":
		return m.run(ctx)
	case "step", "s":
		n := 1
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return fmt.Errorf("bad step count %q", args[0])
			}
			n = v
		}
		for i := 0; i < n; i++ {
			line, err := m.console.Step()
			if err != nil {
				return err
			}
			fmt.Fprintln(m.out, line)
		}
	case "reset", "e":
		if err := m.console.Reset(); err != nil {
			return err
		}
		m.printRegs()
	case "pc", "p":
		if len(args) != 1 {
			return errors.New("usage: pc ADDR")
		}
		addr, err := parseAddr(args[0])
		if err != nil {
			return err
		}
		m.console.SetStart(addr)
		m.printRegs()
	case "mem", "m":
		if len(args) != 2 {
			return errors.New("usage: mem LOW HIGH")
		}
		low, err := parseAddr(args[0])
		if err != nil {
			return err
		}
		high, err := parseAddr(args[1])
		if err != nil {
			return err
		}
		m.printMem(low, high)
	case "stack", "t":
		sp := m.console.Registers().SP
		if sp == 0xff {
			fmt.Fprintln(m.out, "stack is empty")
			return nil
		}
		top := 0x100 + uint16(sp) + 1
		m.printMem(top, min(top+2, 0x1ff))
	case "regs", "g":
		m.printRegs()
	case "disasm", "i":
		pc := m.console.Registers().PC
		if len(args) == 1 {
			addr, err := parseAddr(args[0])
			if err != nil {
				return err
			}
			pc = addr
		}
		m.printDisasm(pc)
	case "dump", "d":
		return m.console.Dump(m.out)
	case "cart", "k":
		fmt.Fprintln(m.out, m.console.Cart())
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (m *Monitor) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := m.console.Run(ctx, m.breaks, m.trace)
	m.printRegs()
	return err
}

func (m *Monitor) printRegs() {
	r := m.console.Registers()
	fmt.Fprintf(m.out, "PC:%04X A:%02X X:%02X Y:%02X P:%s SP:%02X steps:%d\n",
		r.PC, r.A, r.X, r.Y, r.P, r.SP, m.console.Steps())
}

func (m *Monitor) printBreaks() {
	addrs := make([]int, 0, len(m.breaks))
	for addr := range m.breaks {
		addrs = append(addrs, int(addr))
	}
	sort.Ints(addrs)
	fmt.Fprint(m.out, "breakpoints:")
	for _, addr := range addrs {
		fmt.Fprintf(m.out, " $%04X", addr)
	}
	fmt.Fprintln(m.out)
}

func (m *Monitor) printMem(low, high uint16) {
	for addr := uint32(low); addr <= uint32(high); addr++ {
		if (addr-uint32(low))%16 == 0 {
			if addr != uint32(low) {
				fmt.Fprintln(m.out)
			}
			fmt.Fprintf(m.out, "%04X:", addr)
		}
		if v, ok := m.console.Peek8(uint16(addr)); ok {
			fmt.Fprintf(m.out, " %02X", v)
		} else {
			fmt.Fprint(m.out, " --")
		}
	}
	fmt.Fprintln(m.out)
}

func (m *Monitor) printDisasm(pc uint16) {
	from := uint16(max(0, int(pc)-8))
	to := uint16(min(0xffff, int(pc)+16))
	disasm := m.console.Disassemble(from, to)

	addrs := make([]int, 0, len(disasm))
	for addr := range disasm {
		addrs = append(addrs, int(addr))
	}
	sort.Ints(addrs)
	for _, addr := range addrs {
		marker := " "
		if uint16(addr) == pc {
			marker = "*"
		}
		fmt.Fprintf(m.out, "%s%s\n", marker, disasm[uint16(addr)])
	}
}
