// dispatch.go - opcode dispatch table and instruction handler contract.
//
// A primary opcode byte can have more than one candidate handler — the
// Grp1/Grp3 "opcode extension" forms distinguish themselves on the
// ModR/M reg field — so each opcode maps to an ordered slice of handlers
// tried in registration order until one accepts.

package vm

// Handler is one candidate for a primary opcode. It returns (true, nil) if
// it accepted and fully executed the instruction (EIP left past the whole
// instruction), (false, nil) if it rejected (EIP restored to just after
// the primary opcode byte, no other state touched) so the next candidate
// can try, or (false, err) on a decode/bounds error encountered while
// still validating — rollback guarantees are identical to the reject case.
type Handler func(c *CPU) (bool, error)

// OpcodeTable maps a primary opcode byte to its ordered candidate handlers.
type OpcodeTable map[byte][]Handler

// Builder accumulates opcode registrations from each instruction family at
// CPU construction time. There is no package-level global table and no
// import-time side effects — each family registers itself through an
// explicit call from NewCPU.
type Builder struct {
	table OpcodeTable
}

// NewBuilder creates an empty dispatch table builder.
func NewBuilder() *Builder {
	return &Builder{table: make(OpcodeTable)}
}

// Register appends h as the next candidate handler for the primary opcode
// op. Handlers sharing an opcode (e.g. the Grp3 extensions on 0xF6/0xF7)
// are tried in the order they were registered.
func (b *Builder) Register(op byte, h Handler) {
	b.table[op] = append(b.table[op], h)
}

// Build finalizes the table. The returned table is never mutated again.
func (b *Builder) Build() OpcodeTable {
	return b.table
}
