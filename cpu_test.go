package vm

import (
	"errors"
	"testing"
)

func TestCPUResetState(t *testing.T) {
	c := NewCPU(256)
	if got := c.Reg.Get32(ESP); got != 255 {
		t.Fatalf("ESP after reset = %#x, want 0xff", got)
	}
	if got := c.Reg.Get32(EBP); got != 255 {
		t.Fatalf("EBP after reset = %#x, want 0xff", got)
	}
	if c.EIP != 0 {
		t.Fatalf("EIP after reset = %d, want 0", c.EIP)
	}
	if c.Halted() {
		t.Fatalf("fresh CPU reports halted")
	}
}

func TestStepInvalidOpcode(t *testing.T) {
	c := NewCPU(16)
	c.Load(0, []byte{0x90}) // unregistered byte
	c.SetEIP(0)
	_, err := c.Step()
	if !errors.Is(err, ErrInvalidOpcode) {
		t.Fatalf("got %v, want ErrInvalidOpcode", err)
	}
}

// TestStepRollsBackOnReject exercises two handlers sharing a primary
// opcode: TEST (ext /0) and NOT (ext /2) both register against 0xF6.
// TEST must reject F6 D0 (reg field 2) and roll EIP back so NOT's
// candidate sees the same starting EIP and succeeds.
func TestStepRollsBackOnReject(t *testing.T) {
	c := NewCPU(16)
	c.Load(0, []byte{0xF6, 0xD0}) // NOT AL (/2)
	c.SetEIP(0)
	c.Reg.Set(EAX, []byte{0xAA})

	status, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("status = %v, want StatusOK", status)
	}
	al, _ := c.Reg.Get(EAX, 1)
	if al[0] != 0x55 {
		t.Fatalf("AL = %#x, want 0x55", al[0])
	}
	if c.EIP != 2 {
		t.Fatalf("EIP = %d, want 2 (opcode and ModR/M bytes consumed exactly once)", c.EIP)
	}
}

func TestHaltStopsStep(t *testing.T) {
	c := NewCPU(16)
	c.Halt()
	status, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if status != StatusHalted {
		t.Fatalf("status = %v, want StatusHalted", status)
	}
	if c.EIP != 0 {
		t.Fatalf("Step must not consume bytes once halted")
	}
}

func TestStackPushPopRoundTrip(t *testing.T) {
	c := NewCPU(256)
	c.Load(0, []byte{0, 0, 0, 0}) // 4-byte code region, CodeSegmentEnd=4
	startESP := c.Reg.Get32(ESP)

	if err := c.StackPush([]byte{0xDD, 0xCC, 0xBB, 0xAA}); err != nil {
		t.Fatalf("StackPush: %v", err)
	}
	if got := c.Reg.Get32(ESP); got != startESP-4 {
		t.Fatalf("ESP after push = %#x, want %#x", got, startESP-4)
	}

	data, err := c.StackPop(4)
	if err != nil {
		t.Fatalf("StackPop: %v", err)
	}
	if ToInt(data) != 0xAABBCCDD {
		t.Fatalf("popped = %#x, want 0xaabbccdd", ToInt(data))
	}
	if got := c.Reg.Get32(ESP); got != startESP {
		t.Fatalf("ESP after pop = %#x, want %#x", got, startESP)
	}
}

func TestStackPushOverflowIntoCodeSegment(t *testing.T) {
	c := NewCPU(16)
	c.Load(0, make([]byte, 8)) // CodeSegmentEnd = 8, ESP reset to 15

	if err := c.StackPush([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("first push: %v", err)
	}
	err := c.StackPush([]byte{1, 2, 3, 4})
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("got %v, want ErrStackOverflow", err)
	}
}

func TestStackPushUnderflowWraparound(t *testing.T) {
	c := NewCPU(16)
	c.Reg.Set32(ESP, 1)
	err := c.StackPush([]byte{1, 2, 3, 4})
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("got %v, want ErrStackOverflow (uint32 wraparound)", err)
	}
}
