// cpu_testrig_test.go - shared register/flag assertion helpers.

package vm

import "testing"

func assertReg32(t *testing.T, cpu *CPU, name string, idx byte, want uint32) {
	t.Helper()
	if got := cpu.Reg.Get32(idx); got != want {
		t.Fatalf("%s = %#08x, want %#08x", name, got, want)
	}
}

func assertFlag(t *testing.T, cpu *CPU, name string, bit int, want bool) {
	t.Helper()
	if got := cpu.Reg.EflagsGet(bit); got != want {
		t.Fatalf("flag %s = %v, want %v", name, got, want)
	}
}
