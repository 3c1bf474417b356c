package luna

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
)

// Debugger is the interactive single-step front end the teacher's own
// run.go/exec.go wire up around their dispatch loop. -debug on the CLI
// attaches one of these to the VM; every other run leaves VM.debug nil so
// the hot path pays nothing for it.
type Debugger struct {
	line        *liner.State
	stepping    bool
	breakpoints map[int32]bool
	out         *color.Color
	dim         *color.Color
}

func NewDebugger() *Debugger {
	d := &Debugger{
		line:        liner.NewLiner(),
		stepping:    true,
		breakpoints: make(map[int32]bool),
		out:         color.New(color.FgCyan),
		dim:         color.New(color.FgHiBlack),
	}
	d.line.SetCtrlCAborts(true)
	return d
}

func (d *Debugger) Close() { d.line.Close() }

func (d *Debugger) SetBreakpoint(pc int32) { d.breakpoints[pc] = true }

// parseBreakCommand recognizes "b <pc>" / "break <pc>" typed at the debug
// prompt, returning the parsed instruction offset.
func parseBreakCommand(cmd string) (int32, bool) {
	fields := strings.Fields(cmd)
	if len(fields) != 2 || (fields[0] != "b" && fields[0] != "break") {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

// beforeInstruction is called once per dispatch-loop iteration. It prints
// the upcoming instruction and, while stepping (or at a breakpoint), blocks
// on a command from the user.
func (d *Debugger) beforeInstruction(vm *VM, f *frame) {
	if !d.stepping && !d.breakpoints[f.pc] {
		return
	}
	in := f.exec.Instructions[f.pc]
	name := f.exec.Name
	d.dim.Fprintf(os.Stdout, "[%s @%d] ", name, f.pc)
	d.out.Fprintf(os.Stdout, "%s A=%d B=%d C=%d D=%d\n", in.Op, in.A, in.B, in.C, in.D)

	for {
		cmd, err := d.line.Prompt("(luna-dbg) ")
		if err != nil {
			d.stepping = false
			return
		}
		d.line.AppendHistory(cmd)
		switch cmd {
		case "s", "step", "":
			return
		case "c", "continue":
			d.stepping = false
			return
		case "r", "regs":
			for i, v := range f.registers {
				fmt.Printf("  r%d = %s\n", i, ToDisplayString(v))
			}
		case "q", "quit":
			os.Exit(0)
		default:
			if pc, ok := parseBreakCommand(cmd); ok {
				d.SetBreakpoint(pc)
				fmt.Printf("breakpoint set at pc %d\n", pc)
				continue
			}
			fmt.Println("commands: s(tep), c(ontinue), r(egs), b(reak) <pc>, q(uit)")
		}
	}
}
