// cpu.go - CPU state, fetch/decode/dispatch loop, and stack discipline.

package vm

import (
	"fmt"
	"io"
	"log"
)

// Status is the outcome of a Step or Run call.
type Status int

const (
	// StatusOK means the CPU executed one instruction and is ready for
	// another Step.
	StatusOK Status = iota
	// StatusHalted means the CPU has reached a halt state and Step/Run
	// will no longer execute instructions.
	StatusHalted
)

// CPU owns Memory, RegisterFile, the instruction pointer, the current
// operand/address sizes, and the dispatch table.
type CPU struct {
	Reg *RegisterFile
	mem *Memory

	EIP uint32

	// modes[0] = 32-bit, modes[1] = 16-bit; sizes[i] is the byte width for
	// modes[i]. CurrentMode indexes both.
	modes       [2]int
	sizes       [2]int
	CurrentMode int

	OperandSize int
	AddressSize int

	CodeSegmentEnd uint32

	halted bool

	table OpcodeTable

	traceLog *log.Logger
}

// NewCPU creates a CPU with memSize bytes of flat memory, registers the
// in-scope instruction families against a fresh dispatch table, and
// resets architectural state (ESP = EBP = memSize-1, EIP = 0).
func NewCPU(memSize uint32) *CPU {
	c := &CPU{
		Reg:         &RegisterFile{},
		mem:         NewMemory(memSize),
		modes:       [2]int{32, 16},
		sizes:       [2]int{4, 2},
		CurrentMode: 0,
		traceLog:    log.New(io.Discard, "", 0),
	}
	c.OperandSize = c.sizes[c.CurrentMode]
	c.AddressSize = c.sizes[c.CurrentMode]

	b := NewBuilder()
	registerBitwise(b)
	registerNegNot(b)
	registerShift(b)
	c.table = b.Build()

	c.Reset()
	return c
}

// Reset restores power-on state: GPRs cleared, ESP/EBP at the top of
// memory, EIP at 0, EFLAGS cleared.
func (c *CPU) Reset() {
	*c.Reg = RegisterFile{}
	top := c.mem.Size() - 1
	c.Reg.Set32(ESP, top)
	c.Reg.Set32(EBP, top)
	c.EIP = 0
	c.halted = false
}

// Memory exposes the CPU's flat memory for inspection/loading.
func (c *CPU) Memory() *Memory { return c.mem }

// Load writes data at offset and marks [0, offset+len(data)) as the code
// segment, so StackPush refuses to grow the stack down into it.
func (c *CPU) Load(offset uint32, data []byte) error {
	if err := c.mem.Set(offset, data); err != nil {
		return err
	}
	end := offset + uint32(len(data))
	if end > c.CodeSegmentEnd {
		c.CodeSegmentEnd = end
	}
	return nil
}

// SetEIP sets the instruction pointer.
func (c *CPU) SetEIP(addr uint32) {
	c.EIP = addr
}

// Halted reports whether the CPU has executed a halting instruction.
func (c *CPU) Halted() bool {
	return c.halted
}

// Halt stops further execution; Step/Run become no-ops until Reset.
func (c *CPU) Halt() {
	c.halted = true
}

// EnableTrace directs the per-instruction disassembly trace to w. Pass nil
// (or call with io.Discard) to silence it again.
func (c *CPU) EnableTrace(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	c.traceLog = log.New(w, "", 0)
}

func (c *CPU) trace(line string) {
	c.traceLog.Println(line)
}

// -----------------------------------------------------------------------
// Fetch helpers
// -----------------------------------------------------------------------

func (c *CPU) fetch8() (byte, error) {
	b, err := c.mem.Get(c.EIP, 1)
	if err != nil {
		return 0, err
	}
	c.EIP++
	return b[0], nil
}

func (c *CPU) fetch(size int) ([]byte, error) {
	b, err := c.mem.Get(c.EIP, uint32(size))
	if err != nil {
		return nil, err
	}
	c.EIP += uint32(size)
	return b, nil
}

func (c *CPU) fetch32() (uint32, error) {
	b, err := c.fetch(4)
	if err != nil {
		return 0, err
	}
	return ToInt(b), nil
}

// -----------------------------------------------------------------------
// Operand access
// -----------------------------------------------------------------------

// readOperand loads the bytes an Operand (from ProcessModRM) designates.
func (c *CPU) readOperand(op Operand) ([]byte, error) {
	if op.Kind == KindReg {
		return c.Reg.Get(byte(op.Location), op.Size)
	}
	return c.mem.Get(op.Location, uint32(op.Size))
}

// writeOperand stores value into the location an Operand designates.
func (c *CPU) writeOperand(op Operand, value []byte) error {
	if op.Kind == KindReg {
		return c.Reg.Set(byte(op.Location), value)
	}
	return c.mem.Set(op.Location, value)
}

// -----------------------------------------------------------------------
// Stack discipline
// -----------------------------------------------------------------------

// StackPush pushes value (length must equal OperandSize) below ESP,
// refusing to cross into the code segment.
func (c *CPU) StackPush(value []byte) error {
	esp := c.Reg.Get32(ESP)
	newESP := esp - uint32(c.OperandSize)
	if newESP > esp || newESP < c.CodeSegmentEnd {
		return fmt.Errorf("%w: push would move ESP to %#x below code segment end %#x", ErrStackOverflow, newESP, c.CodeSegmentEnd)
	}
	if err := c.mem.Set(newESP, value); err != nil {
		return err
	}
	c.Reg.Set32(ESP, newESP)
	return nil
}

// StackPop reads size bytes at ESP and advances ESP past them. No
// underflow check is performed — an out-of-bounds pop is caught by
// Memory.
func (c *CPU) StackPop(size int) ([]byte, error) {
	esp := c.Reg.Get32(ESP)
	data, err := c.mem.Get(esp, uint32(size))
	if err != nil {
		return nil, err
	}
	c.Reg.Set32(ESP, esp+uint32(size))
	return data, nil
}

// -----------------------------------------------------------------------
// Fetch-decode-dispatch loop
// -----------------------------------------------------------------------

// Step executes exactly one instruction, or reports StatusHalted without
// consuming any bytes if the CPU is already halted.
func (c *CPU) Step() (Status, error) {
	if c.halted {
		return StatusHalted, nil
	}

	op, err := c.fetch8()
	if err != nil {
		return StatusOK, err
	}

	candidates, ok := c.table[op]
	if !ok {
		return StatusOK, fmt.Errorf("%w: opcode %#02x", ErrInvalidOpcode, op)
	}

	for _, h := range candidates {
		oldEIP := c.EIP
		accepted, err := h(c)
		if err != nil {
			// oldEIP here is just past the primary opcode byte, not the
			// instruction's first byte — callers get EIP parked at the
			// ModR/M/operand bytes that were mid-decode, not a full
			// instruction-start restore.
			c.EIP = oldEIP
			return StatusOK, err
		}
		if accepted {
			return StatusOK, nil
		}
		// Rejected: the handler must have restored EIP itself. Enforcing
		// it here too keeps the rollback contract even if a handler
		// forgets.
		c.EIP = oldEIP
	}

	return StatusOK, fmt.Errorf("%w: opcode %#02x (no candidate matched extension field)", ErrInvalidOpcode, op)
}

// Run executes Step repeatedly until the CPU halts or Step returns an
// error.
func (c *CPU) Run() (Status, error) {
	for {
		status, err := c.Step()
		if err != nil {
			return status, err
		}
		if status == StatusHalted {
			return status, nil
		}
	}
}
