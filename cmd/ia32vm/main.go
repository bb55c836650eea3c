// main.go - ia32vm CLI front end.
//
// A cobra.Command tree with per-subcommand flags and no package-level
// state. ia32vm itself never decodes an instruction — it loads a flat
// byte image into memory and drives CPU.Step/CPU.Run.

package main

import (
	"fmt"
	"io"
	"os"

	ia32vm "github.com/notemaster/ia32vm"
	"github.com/notemaster/ia32vm/internal/monitor"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ia32vm",
		Short: "Interpretive emulator for a subset of the IA-32 instruction set",
	}
	root.AddCommand(newRunCmd(), newStepCmd(), newMonitorCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var memSize uint32
	var eip uint32
	var trace bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Load a flat binary image and run it to halt or error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cpu, err := loadImage(args[0], memSize, eip, trace)
			if err != nil {
				return err
			}
			status, err := cpu.Run()
			printState(cmd.OutOrStdout(), cpu, status, err)
			return err
		},
	}
	bindCommonFlags(cmd, &memSize, &eip, &trace)
	return cmd
}

func newStepCmd() *cobra.Command {
	var memSize uint32
	var eip uint32
	var trace bool
	var count int

	cmd := &cobra.Command{
		Use:   "step <file>",
		Short: "Single-step a flat binary image, printing each instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cpu, err := loadImage(args[0], memSize, eip, trace)
			if err != nil {
				return err
			}
			var status ia32vm.Status
			for i := 0; i < count; i++ {
				status, err = cpu.Step()
				if err != nil || status == ia32vm.StatusHalted {
					break
				}
			}
			printState(cmd.OutOrStdout(), cpu, status, err)
			return err
		},
	}
	bindCommonFlags(cmd, &memSize, &eip, &trace)
	cmd.Flags().IntVar(&count, "count", 1, "number of instructions to step")
	return cmd
}

func newMonitorCmd() *cobra.Command {
	var memSize uint32
	var eip uint32

	cmd := &cobra.Command{
		Use:   "monitor <file>",
		Short: "Interactive breakpoint/step monitor over a loaded image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cpu, err := loadImage(args[0], memSize, eip, false)
			if err != nil {
				return err
			}
			return monitor.Run(cpu, os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Uint32Var(&memSize, "mem-size", 1<<20, "memory size in bytes")
	cmd.Flags().Uint32Var(&eip, "eip", 0, "initial instruction pointer")
	return cmd
}

func bindCommonFlags(cmd *cobra.Command, memSize, eip *uint32, trace *bool) {
	cmd.Flags().Uint32Var(memSize, "mem-size", 1<<20, "memory size in bytes")
	cmd.Flags().Uint32Var(eip, "eip", 0, "initial instruction pointer")
	cmd.Flags().BoolVar(trace, "trace", false, "print a disassembly line per executed instruction")
}

func loadImage(path string, memSize, eip uint32, trace bool) (*ia32vm.CPU, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cpu := ia32vm.NewCPU(memSize)
	if trace {
		cpu.EnableTrace(os.Stdout)
	}
	if err := cpu.Load(0, data); err != nil {
		return nil, err
	}
	cpu.SetEIP(eip)
	return cpu, nil
}

func printState(w io.Writer, cpu *ia32vm.CPU, status ia32vm.Status, runErr error) {
	fmt.Fprintf(w, "EIP=%#08x  halted=%v  status=%v\n", cpu.EIP, cpu.Halted(), status)
	for i, name := range []string{"EAX", "ECX", "EDX", "EBX", "ESP", "EBP", "ESI", "EDI"} {
		fmt.Fprintf(w, "%s=%#08x ", name, cpu.Reg.Get32(byte(i)))
		if i == 3 || i == 7 {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintf(w, "EFLAGS=%#08x\n", cpu.Reg.Eflags())
	if runErr != nil {
		fmt.Fprintf(w, "error: %v\n", runErr)
	}
}
