// monitor.go - interactive breakpoint/step REPL over a CPU.
//
// Commands: step [n], regs, mem <addr> <len>, break <addr>, continue,
// quit. Stdin is put into raw mode for line editing when it is a real
// terminal; a plain line-buffered fallback keeps the monitor usable from
// pipes and tests, not only an interactive shell.

package monitor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	ia32vm "github.com/notemaster/ia32vm"
	"golang.org/x/term"
)

// Run drives the monitor's command loop, reading commands from in and
// writing prompts/output to out, until "quit" or EOF.
func Run(cpu *ia32vm.CPU, in io.Reader, out io.Writer) error {
	m := &monitor{cpu: cpu, out: out, breakpoints: map[uint32]bool{}}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return m.runRaw(f)
	}
	return m.runHeadless(in)
}

type monitor struct {
	cpu         *ia32vm.CPU
	out         io.Writer
	breakpoints map[uint32]bool
}

// runRaw drives the REPL over a real terminal using x/term's line editor,
// restoring the terminal's prior state on exit.
func (m *monitor) runRaw(f *os.File) error {
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("monitor: failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(f, "(ia32vm) ")
	for {
		line, err := t.ReadLine()
		if err != nil {
			return nil
		}
		if done := m.dispatch(line); done {
			return nil
		}
	}
}

// runHeadless drives the REPL over any plain Reader/Writer pair — used
// for pipes, tests, and non-terminal stdin.
func (m *monitor) runHeadless(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(m.out, "(ia32vm) ")
		if !scanner.Scan() {
			return nil
		}
		if done := m.dispatch(scanner.Text()); done {
			return nil
		}
	}
}

// dispatch executes one command line and reports whether the loop should
// stop.
func (m *monitor) dispatch(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "q":
		return true
	case "step", "s":
		n := 1
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil {
				n = v
			}
		}
		m.step(n)
	case "regs", "r":
		m.printRegs()
	case "mem", "m":
		if len(fields) < 3 {
			fmt.Fprintln(m.out, "usage: mem <addr> <len>")
			break
		}
		m.printMem(fields[1], fields[2])
	case "break", "b":
		if len(fields) < 2 {
			fmt.Fprintln(m.out, "usage: break <addr>")
			break
		}
		if addr, ok := parseUint32(fields[1]); ok {
			m.breakpoints[addr] = true
			fmt.Fprintf(m.out, "breakpoint set at %#x\n", addr)
		}
	case "continue", "c":
		m.cont()
	default:
		fmt.Fprintf(m.out, "unknown command %q\n", fields[0])
	}
	return false
}

func (m *monitor) step(n int) {
	for i := 0; i < n; i++ {
		status, err := m.cpu.Step()
		if err != nil {
			fmt.Fprintf(m.out, "error: %v\n", err)
			return
		}
		if status == ia32vm.StatusHalted {
			fmt.Fprintln(m.out, "halted")
			return
		}
	}
	fmt.Fprintf(m.out, "EIP=%#x\n", m.cpu.EIP)
}

func (m *monitor) cont() {
	for {
		if m.breakpoints[m.cpu.EIP] {
			fmt.Fprintf(m.out, "breakpoint hit at %#x\n", m.cpu.EIP)
			return
		}
		status, err := m.cpu.Step()
		if err != nil {
			fmt.Fprintf(m.out, "error: %v\n", err)
			return
		}
		if status == ia32vm.StatusHalted {
			fmt.Fprintln(m.out, "halted")
			return
		}
	}
}

func (m *monitor) printRegs() {
	names := []string{"EAX", "ECX", "EDX", "EBX", "ESP", "EBP", "ESI", "EDI"}
	for i, name := range names {
		fmt.Fprintf(m.out, "%s=%#08x ", name, m.cpu.Reg.Get32(byte(i)))
	}
	fmt.Fprintf(m.out, "EIP=%#08x EFLAGS=%#08x\n", m.cpu.EIP, m.cpu.Reg.Eflags())
}

func (m *monitor) printMem(addrStr, lenStr string) {
	addr, ok := parseUint32(addrStr)
	if !ok {
		fmt.Fprintln(m.out, "bad address")
		return
	}
	length, err := strconv.Atoi(lenStr)
	if err != nil || length < 0 {
		fmt.Fprintln(m.out, "bad length")
		return
	}
	data, err := m.cpu.Memory().Get(addr, uint32(length))
	if err != nil {
		fmt.Fprintf(m.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(m.out, "%#x: % x\n", addr, data)
}

func parseUint32(s string) (uint32, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
