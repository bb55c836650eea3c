// modrm.go - ModR/M + SIB + displacement decoding.
//
// Decodes the mod/reg/rm byte and, where the SDM's encoding tables call
// for it, a following SIB byte and displacement, producing the (rm, reg)
// operand pair every Grp1/Grp3/shift handler decodes its operands from.

package vm

import "fmt"

// ProcessModRM consumes one ModR/M byte (and, when indicated, a SIB byte
// and a displacement) from the instruction stream at EIP, advancing EIP
// past everything it reads. addrSize controls the width of effective
// address computation (always 4 in this module — 16-bit addressing is out
// of scope, see DESIGN.md); operandSize sizes the two returned operand
// descriptors.
func (c *CPU) ProcessModRM(addrSize, operandSize int) (rm, reg Operand, err error) {
	if addrSize != 4 {
		return Operand{}, Operand{}, fmt.Errorf("%w: address size %d not supported (flat 32-bit only)", ErrInvalidEncoding, addrSize)
	}

	b, err := c.fetch8()
	if err != nil {
		return Operand{}, Operand{}, err
	}

	mod := (b >> 6) & 3
	regField := (b >> 3) & 7
	rmField := b & 7

	reg = Operand{Kind: KindReg, Location: uint32(regField), Size: operandSize}

	if mod == 3 {
		rm = Operand{Kind: KindReg, Location: uint32(rmField), Size: operandSize}
		return rm, reg, nil
	}

	addr, err := c.effectiveAddress32(mod, rmField)
	if err != nil {
		return Operand{}, Operand{}, err
	}
	rm = Operand{Kind: KindMem, Location: addr, Size: operandSize}
	return rm, reg, nil
}

// effectiveAddress32 computes the flat 32-bit effective address for the
// already-consumed ModR/M mod/rm fields, consuming SIB and displacement
// bytes as needed.
func (c *CPU) effectiveAddress32(mod, rmField byte) (uint32, error) {
	var addr uint32

	if rmField == 4 {
		sib, err := c.fetch8()
		if err != nil {
			return 0, err
		}
		scale := (sib >> 6) & 3
		index := (sib >> 3) & 7
		base := sib & 7

		if base == 5 && mod == 0 {
			disp, err := c.fetch32()
			if err != nil {
				return 0, err
			}
			addr = disp
		} else {
			addr = c.Reg.Get32(base)
		}
		if index != 4 {
			addr += c.Reg.Get32(index) << scale
		}
	} else if rmField == 5 && mod == 0 {
		disp, err := c.fetch32()
		if err != nil {
			return 0, err
		}
		addr = disp
	} else {
		addr = c.Reg.Get32(rmField)
	}

	switch mod {
	case 1:
		disp8, err := c.fetch8()
		if err != nil {
			return 0, err
		}
		addr = uint32(int32(addr) + int32(int8(disp8)))
	case 2:
		disp32, err := c.fetch32()
		if err != nil {
			return 0, err
		}
		addr += disp32
	}

	return addr, nil
}
