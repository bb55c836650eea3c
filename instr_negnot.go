// instr_negnot.go - NOT, NEG.
//
// Grp3's NOT (/2) and NEG (/3) on 0xF6/0xF7, sharing those primary
// opcodes with TEST (instr_bitwise.go) — all three coexist on the same
// Builder and distinguish themselves purely on the ModR/M reg field. NOT
// leaves every flag untouched; NEG sets CF/OF/AF/SF/ZF/PF as a subtract
// from zero: OF iff the operand equals the minimum signed value for its
// width, AF per the SDM's half-borrow rule for 0 - a.

package vm

import "fmt"

// negnotRm builds the NOT/NEG handler for the 0xF6 (8-bit) or 0xF7
// (operand-size) Grp3 opcode, extended by ModR/M's reg field: NOT=/2,
// NEG=/3.
func negnotRm(szIs8bit bool, negate bool, extReg byte) Handler {
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

		aBytes, err := c.readOperand(rm)
		if err != nil {
			return false, err
		}
		a := ToInt(aBytes)

		var result uint32
		name := "not"
		if negate {
			name = "neg"
			result = (MaxVals[sz] - a + 1) & MaxVals[sz]

			c.Reg.EflagsSet(FlagCF, a != 0)
			signBit := uint32(1) << (uint(sz)*8 - 1)
			c.Reg.EflagsSet(FlagOF, a == signBit)
			c.Reg.EflagsSet(FlagAF, a&0x0F != 0)

			sign := (result>>(uint(sz)*8-1))&1 != 0
			c.Reg.EflagsSet(FlagSF, sign)
			c.Reg.EflagsSet(FlagZF, result == 0)

			resultBytes := bytesFromUint32(result, sz)
			c.Reg.EflagsSet(FlagPF, Parity(resultBytes[0]))
		} else {
			result = (MaxVals[sz] - a) & MaxVals[sz]
			// NOT leaves every flag untouched.
		}

		resultBytes := bytesFromUint32(result, sz)
		if err := c.writeOperand(rm, resultBytes); err != nil {
			return false, err
		}

		c.trace(fmt.Sprintf("%s %s%d(%#x)", name, kindLetter(rm), sz*8, rm.Location))
		return true, nil
	}
}

// registerNegNot wires NOT and NEG into the dispatch builder.
func registerNegNot(b *Builder) {
	b.Register(0xF6, negnotRm(true, false, 2))  // NOT r/m8
	b.Register(0xF6, negnotRm(true, true, 3))   // NEG r/m8
	b.Register(0xF7, negnotRm(false, false, 2)) // NOT r/m16/32
	b.Register(0xF7, negnotRm(false, true, 3))  // NEG r/m16/32
}
