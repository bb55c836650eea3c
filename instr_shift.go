// instr_shift.go - SHL, SHR, SAR.
//
// Grp2 shifts across all three count sources (one, CL, imm8) and all six
// opcodes (0xD0-0xD3, 0xC0-0xC1), extended by ModR/M's reg field in
// architectural order: SHL=/4, SHR=/5, SAR=/7. The count is masked to
// cnt & 0x1F before use; a masked count of 0 leaves every flag untouched
// and the operand unmodified. CF takes the last bit shifted out; OF is
// defined only when the masked count is exactly 1 (SHL: result MSB xor
// CF; SAR: always 0; SHR: the pre-shift MSB).

package vm

import "fmt"

// ShiftOp selects which shift SHIFT performs.
type ShiftOp int

const (
	ShlOp ShiftOp = iota
	ShrOp
	SarOp
)

func (op ShiftOp) String() string {
	switch op {
	case ShlOp:
		return "shl"
	case ShrOp:
		return "shr"
	case SarOp:
		return "sar"
	}
	return "?"
}

// CountSource selects where a shift's count comes from.
type CountSource int

const (
	CountOne CountSource = iota
	CountCL
	CountImm8
)

// shiftRm builds a SHL/SHR/SAR handler for one of the 0xD0-0xD3/0xC0-0xC1
// opcodes, extended by ModR/M's reg field: SHL=/4, SHR=/5, SAR=/7.
func shiftRm(szIs8bit bool, op ShiftOp, count CountSource, extReg byte) Handler {
	return func(c *CPU) (bool, error) {
		sz := c.OperandSize
		if szIs8bit {
			sz = 1
		}

		oldEIP := c.EIP
		rm, reg, err := c.ProcessModRM(c.AddressSize, sz)
		if err != nil {
			return false, err
		}
		if reg.Location != uint32(extReg) {
			c.EIP = oldEIP
			return false, nil
		}

		var cnt byte
		switch count {
		case CountOne:
			cnt = 1
		case CountCL:
			clBytes, err := c.Reg.Get(ECX, 1)
			if err != nil {
				return false, err
			}
			cnt = clBytes[0]
		case CountImm8:
			immBytes, err := c.fetch(1)
			if err != nil {
				return false, err
			}
			cnt = immBytes[0]
		}

		aBytes, err := c.readOperand(rm)
		if err != nil {
			return false, err
		}
		aVal := ToInt(aBytes)
		preShiftMSB := (aVal>>(uint(sz)*8-1))&1 != 0

		tmpCnt := cnt & 0x1F
		if tmpCnt == 0 {
			c.trace(shiftTrace(op, rm, sz, count))
			return true, nil
		}

		var dstU uint64
		var dstS int64
		if op == SarOp {
			dstS = int64(ToIntSigned(aBytes))
		} else {
			dstU = uint64(aVal)
		}

		var cf bool
		for n := tmpCnt; n > 0; n-- {
			switch op {
			case ShlOp:
				dstU <<= 1
				cf = (dstU>>(uint(sz)*8))&1 != 0
			case ShrOp:
				cf = dstU&1 != 0
				dstU >>= 1
			case SarOp:
				cf = dstS&1 != 0
				dstS >>= 1
			}
		}
		c.Reg.EflagsSet(FlagCF, cf)

		if tmpCnt == 1 {
			switch op {
			case ShlOp:
				resultMSB := (dstU>>(uint(sz)*8-1))&1 != 0
				c.Reg.EflagsSet(FlagOF, resultMSB != cf)
			case SarOp:
				c.Reg.EflagsSet(FlagOF, false)
			case ShrOp:
				c.Reg.EflagsSet(FlagOF, preShiftMSB)
			}
		}

		var resultVal uint32
		if op == SarOp {
			resultVal = uint32(dstS) & MaxVals[sz]
		} else {
			resultVal = uint32(dstU) & MaxVals[sz]
		}

		sign := (resultVal>>(uint(sz)*8-1))&1 != 0
		c.Reg.EflagsSet(FlagSF, sign)
		c.Reg.EflagsSet(FlagZF, resultVal == 0)
		resultBytes := bytesFromUint32(resultVal, sz)
		c.Reg.EflagsSet(FlagPF, Parity(resultBytes[0]))

		if err := c.writeOperand(rm, resultBytes); err != nil {
			return false, err
		}

		c.trace(shiftTrace(op, rm, sz, count))
		return true, nil
	}
}

func shiftTrace(op ShiftOp, rm Operand, sz int, count CountSource) string {
	suffix := ""
	switch count {
	case CountCL:
		suffix = ",cl"
	case CountImm8:
		suffix = ",imm8"
	}
	return fmt.Sprintf("%s %s%d(%d)%s", op, kindLetterWide(rm), sz*8, rm.Location, suffix)
}

// kindLetterWide prefixes a shift's r/m operand in the trace line: '_r'
// for a register, 'm' for a memory operand.
func kindLetterWide(op Operand) string {
	if op.Kind == KindMem {
		return "m"
	}
	return "_r"
}

// registerShift wires SHL, SHR, SAR into the dispatch builder.
func registerShift(b *Builder) {
	b.Register(0xD0, shiftRm(true, ShlOp, CountOne, 4))
	b.Register(0xD0, shiftRm(true, ShrOp, CountOne, 5))
	b.Register(0xD0, shiftRm(true, SarOp, CountOne, 7))

	b.Register(0xD2, shiftRm(true, ShlOp, CountCL, 4))
	b.Register(0xD2, shiftRm(true, ShrOp, CountCL, 5))
	b.Register(0xD2, shiftRm(true, SarOp, CountCL, 7))

	b.Register(0xC0, shiftRm(true, ShlOp, CountImm8, 4))
	b.Register(0xC0, shiftRm(true, ShrOp, CountImm8, 5))
	b.Register(0xC0, shiftRm(true, SarOp, CountImm8, 7))

	b.Register(0xD1, shiftRm(false, ShlOp, CountOne, 4))
	b.Register(0xD1, shiftRm(false, ShrOp, CountOne, 5))
	b.Register(0xD1, shiftRm(false, SarOp, CountOne, 7))

	b.Register(0xD3, shiftRm(false, ShlOp, CountCL, 4))
	b.Register(0xD3, shiftRm(false, ShrOp, CountCL, 5))
	b.Register(0xD3, shiftRm(false, SarOp, CountCL, 7))

	b.Register(0xC1, shiftRm(false, ShlOp, CountImm8, 4))
	b.Register(0xC1, shiftRm(false, ShrOp, CountImm8, 5))
	b.Register(0xC1, shiftRm(false, SarOp, CountImm8, 7))
}
