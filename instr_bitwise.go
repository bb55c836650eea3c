// instr_bitwise.go - AND, OR, XOR, TEST.
//
// AND/OR/XOR/TEST on the accumulator-immediate, r/m-immediate, r/m-register,
// and register-r/m encodings. The Grp1 extensions (0x80/0x81/0x83) share
// each primary opcode among AND/OR/XOR, and Grp3 TEST (0xF6/0xF7) shares
// its primary opcode with NOT/NEG (instr_negnot.go); all of them
// distinguish themselves purely on the ModR/M reg field. AND/OR/XOR differ only in the bit operation, so they share one
// BitOp tagged enum rather than a function value in the dispatch data.

package vm

import "fmt"

// BitOp selects the bitwise operation a BITWISE-family handler performs.
type BitOp int

const (
	AndOp BitOp = iota
	OrOp
	XorOp
)

func (op BitOp) apply(a, b uint32) uint32 {
	switch op {
	case AndOp:
		return a & b
	case OrOp:
		return a | b
	case XorOp:
		return a ^ b
	default:
		return 0
	}
}

func (op BitOp) String() string {
	switch op {
	case AndOp:
		return "and"
	case OrOp:
		return "or"
	case XorOp:
		return "xor"
	}
	return "?"
}

// accRegName returns the disassembly name of the accumulator register at
// the given operand width.
func accRegName(sz int) string {
	switch sz {
	case 1:
		return "al"
	case 2:
		return "ax"
	default:
		return "eax"
	}
}

// setBitwiseFlags applies the logical-instruction flag rule: CF, OF
// cleared; SF, ZF, PF set from the masked result; AF left unchanged
// (undefined per the SDM).
func setBitwiseFlags(c *CPU, result uint32, sz int) (masked uint32, resultBytes []byte) {
	c.Reg.EflagsSet(FlagOF, false)
	c.Reg.EflagsSet(FlagCF, false)
	sign := (result>>(uint(sz)*8-1))&1 != 0
	c.Reg.EflagsSet(FlagSF, sign)
	masked = result & MaxVals[sz]
	c.Reg.EflagsSet(FlagZF, masked == 0)
	resultBytes = bytesFromUint32(masked, sz)
	c.Reg.EflagsSet(FlagPF, Parity(resultBytes[0]))
	return masked, resultBytes
}

// bitwiseRImm builds the immediate-to-accumulator form (AL/AX/EAX, imm).
func bitwiseRImm(szIs8bit bool, op BitOp, test bool) Handler {
	return func(c *CPU) (bool, error) {
		sz := c.OperandSize
		if szIs8bit {
			sz = 1
		}
		immBytes, err := c.fetch(sz)
		if err != nil {
			return false, err
		}
		b := ToInt(immBytes)

		aBytes, err := c.Reg.Get(EAX, sz)
		if err != nil {
			return false, err
		}
		a := ToInt(aBytes)

		result := op.apply(a, b)
		_, resultBytes := setBitwiseFlags(c, result, sz)

		name := op.String()
		if test {
			name = "test"
		} else if err := c.Reg.Set(EAX, resultBytes); err != nil {
			return false, err
		}

		c.trace(fmt.Sprintf("%s %s, imm%d(%#x)", name, accRegName(sz), sz*8, b))
		return true, nil
	}
}

// bitwiseRmImm builds the immediate-to-r/m form, extended by ModR/M's reg
// field (extReg): AND=/4, OR=/1, XOR=/6, TEST=/0.
func bitwiseRmImm(szIs8bit, immIs8bit bool, op BitOp, test bool, extReg byte) Handler {
	return func(c *CPU) (bool, error) {
		sz := c.OperandSize
		if szIs8bit {
			sz = 1
		}
		immSz := c.OperandSize
		if immIs8bit {
			immSz = 1
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

		immBytes, err := c.fetch(immSz)
		if err != nil {
			return false, err
		}
		immBytes = SignExtend(immBytes, sz)
		b := ToInt(immBytes)

		aBytes, err := c.readOperand(rm)
		if err != nil {
			return false, err
		}
		a := ToInt(aBytes)

		result := op.apply(a, b)
		_, resultBytes := setBitwiseFlags(c, result, sz)

		name := op.String()
		if test {
			name = "test"
		} else if err := c.writeOperand(rm, resultBytes); err != nil {
			return false, err
		}

		c.trace(fmt.Sprintf("%s %s%d(%#x),imm%d(%#x)", name, kindLetter(rm), sz*8, rm.Location, immSz*8, b))
		return true, nil
	}
}

// bitwiseRmR builds the register-to-r/m form (destination is RM).
func bitwiseRmR(szIs8bit bool, op BitOp, test bool) Handler {
	return func(c *CPU) (bool, error) {
		sz := c.OperandSize
		if szIs8bit {
			sz = 1
		}
		rm, reg, err := c.ProcessModRM(c.AddressSize, sz)
		if err != nil {
			return false, err
		}

		aBytes, err := c.readOperand(rm)
		if err != nil {
			return false, err
		}
		a := ToInt(aBytes)
		bBytes, err := c.Reg.Get(byte(reg.Location), sz)
		if err != nil {
			return false, err
		}
		b := ToInt(bBytes)

		result := op.apply(a, b)
		_, resultBytes := setBitwiseFlags(c, result, sz)

		name := op.String()
		if test {
			name = "test"
		} else if err := c.writeOperand(rm, resultBytes); err != nil {
			return false, err
		}

		c.trace(fmt.Sprintf("%s %s%d(%#x),r%d(%d)", name, kindLetter(rm), sz*8, rm.Location, sz*8, reg.Location))
		return true, nil
	}
}

// bitwiseRRm builds the r/m-to-register form (destination is reg).
func bitwiseRRm(szIs8bit bool, op BitOp, test bool) Handler {
	return func(c *CPU) (bool, error) {
		sz := c.OperandSize
		if szIs8bit {
			sz = 1
		}
		rm, reg, err := c.ProcessModRM(c.AddressSize, sz)
		if err != nil {
			return false, err
		}

		aBytes, err := c.readOperand(rm)
		if err != nil {
			return false, err
		}
		a := ToInt(aBytes)
		bBytes, err := c.Reg.Get(byte(reg.Location), sz)
		if err != nil {
			return false, err
		}
		b := ToInt(bBytes)

		result := op.apply(a, b)
		_, resultBytes := setBitwiseFlags(c, result, sz)

		name := op.String()
		if test {
			name = "test"
		} else if err := c.Reg.Set(byte(reg.Location), resultBytes); err != nil {
			return false, err
		}

		c.trace(fmt.Sprintf("%s r%d(%d),%s%d(%#x)", name, sz*8, reg.Location, kindLetter(rm), sz*8, rm.Location))
		return true, nil
	}
}

func kindLetter(op Operand) string {
	if op.Kind == KindMem {
		return "m"
	}
	return "r"
}

// registerBitwise wires AND, OR, XOR, TEST into the dispatch builder.
func registerBitwise(b *Builder) {
	// AND
	b.Register(0x24, bitwiseRImm(true, AndOp, false))
	b.Register(0x25, bitwiseRImm(false, AndOp, false))
	b.Register(0x80, bitwiseRmImm(true, true, AndOp, false, 4))
	b.Register(0x81, bitwiseRmImm(false, false, AndOp, false, 4))
	b.Register(0x83, bitwiseRmImm(false, true, AndOp, false, 4))
	b.Register(0x20, bitwiseRmR(true, AndOp, false))
	b.Register(0x21, bitwiseRmR(false, AndOp, false))
	b.Register(0x22, bitwiseRRm(true, AndOp, false))
	b.Register(0x23, bitwiseRRm(false, AndOp, false))

	// OR
	b.Register(0x0C, bitwiseRImm(true, OrOp, false))
	b.Register(0x0D, bitwiseRImm(false, OrOp, false))
	b.Register(0x80, bitwiseRmImm(true, true, OrOp, false, 1))
	b.Register(0x81, bitwiseRmImm(false, false, OrOp, false, 1))
	b.Register(0x83, bitwiseRmImm(false, true, OrOp, false, 1))
	b.Register(0x08, bitwiseRmR(true, OrOp, false))
	b.Register(0x09, bitwiseRmR(false, OrOp, false))
	b.Register(0x0A, bitwiseRRm(true, OrOp, false))
	b.Register(0x0B, bitwiseRRm(false, OrOp, false))

	// XOR
	b.Register(0x34, bitwiseRImm(true, XorOp, false))
	b.Register(0x35, bitwiseRImm(false, XorOp, false))
	b.Register(0x80, bitwiseRmImm(true, true, XorOp, false, 6))
	b.Register(0x81, bitwiseRmImm(false, false, XorOp, false, 6))
	b.Register(0x83, bitwiseRmImm(false, true, XorOp, false, 6))
	b.Register(0x30, bitwiseRmR(true, XorOp, false))
	b.Register(0x31, bitwiseRmR(false, XorOp, false))
	b.Register(0x32, bitwiseRRm(true, XorOp, false))
	b.Register(0x33, bitwiseRRm(false, XorOp, false))

	// TEST
	b.Register(0xA8, bitwiseRImm(true, AndOp, true))
	b.Register(0xA9, bitwiseRImm(false, AndOp, true))
	b.Register(0xF6, bitwiseRmImm(true, true, AndOp, true, 0))
	b.Register(0xF7, bitwiseRmImm(false, false, AndOp, true, 0))
	b.Register(0x84, bitwiseRmR(true, AndOp, true))
	b.Register(0x85, bitwiseRmR(false, AndOp, true))
}
