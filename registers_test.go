package vm

import "testing"

// TestRegisterAliasing exercises AH/CH/DH/BH byte aliasing: writing
// 0xAABBCCDD to EAX exposes get(0,2)==0xCCDD, get(0,1)==0xDD, and the
// AH-byte access (index 4) == 0xCC.
func TestRegisterAliasing(t *testing.T) {
	r := &RegisterFile{}
	if err := r.Set(EAX, []byte{0xDD, 0xCC, 0xBB, 0xAA}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got16, err := r.Get(EAX, 2)
	if err != nil {
		t.Fatalf("Get(EAX,2): %v", err)
	}
	if ToInt(got16) != 0xCCDD {
		t.Fatalf("get(0,2) = %#x, want 0xccdd", ToInt(got16))
	}

	got8, err := r.Get(EAX, 1)
	if err != nil {
		t.Fatalf("Get(EAX,1): %v", err)
	}
	if got8[0] != 0xDD {
		t.Fatalf("get(0,1) = %#x, want 0xdd", got8[0])
	}

	ah, err := r.Get(4, 1) // AH aliases EAX's byte 1
	if err != nil {
		t.Fatalf("Get(AH): %v", err)
	}
	if ah[0] != 0xCC {
		t.Fatalf("AH = %#x, want 0xcc", ah[0])
	}
}

func TestRegisterSetPreservesUntouchedBits(t *testing.T) {
	r := &RegisterFile{}
	r.Set32(EBX, 0xAABBCCDD)
	if err := r.Set(EBX, []byte{0x00}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := r.Get32(EBX); got != 0xAABBCC00 {
		t.Fatalf("EBX = %#08x, want 0xaabbcc00", got)
	}
}

func TestRegisterSetAHDoesNotTouchAL(t *testing.T) {
	r := &RegisterFile{}
	r.Set32(EAX, 0x000000FF)
	if err := r.Set(4, []byte{0x11}); err != nil { // AH
		t.Fatalf("Set(AH): %v", err)
	}
	if got := r.Get32(EAX); got != 0x000011FF {
		t.Fatalf("EAX = %#08x, want 0x000011ff", got)
	}
}

func TestEflagsGetSet(t *testing.T) {
	r := &RegisterFile{}
	r.EflagsSet(FlagZF, true)
	r.EflagsSet(FlagCF, true)
	if !r.EflagsGet(FlagZF) || !r.EflagsGet(FlagCF) {
		t.Fatalf("expected ZF and CF set")
	}
	if r.EflagsGet(FlagSF) || r.EflagsGet(FlagOF) {
		t.Fatalf("expected SF and OF clear")
	}
	r.EflagsSet(FlagZF, false)
	if r.EflagsGet(FlagZF) {
		t.Fatalf("expected ZF cleared")
	}
	if !r.EflagsGet(FlagCF) {
		t.Fatalf("clearing ZF must not clear CF")
	}
}
