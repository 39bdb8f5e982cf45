// Package terminal implements functions for responding to user
// input and dispatching to appropriate backend commands.
package terminal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cosiner/argv"

	"github.com/Turtel216/cd-debugger/pkg/proc"
)

type cmdfunc func(t *Term, args string) error

type command struct {
	aliases []string
	helpMsg string
	cmdFn   cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands for the terminal process.
type Commands struct {
	cmds []command
}

// DebugCommands returns a Commands struct with default commands defined.
func DebugCommands() *Commands {
	c := &Commands{}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: c.help, helpMsg: "Prints the help message."},
		{aliases: []string{"break", "b"}, cmdFn: breakpoint, helpMsg: "break <address | file:line | function>. Sets a breakpoint."},
		{aliases: []string{"clear"}, cmdFn: clear, helpMsg: "clear <address | file:line | function>. Deletes a breakpoint."},
		{aliases: []string{"breakpoints", "bp"}, cmdFn: breakpoints, helpMsg: "Print out info for active breakpoints."},
		{aliases: []string{"continue", "c"}, cmdFn: cont, helpMsg: "Run until breakpoint or program termination."},
		{aliases: []string{"step-instruction", "si"}, cmdFn: stepInstruction, helpMsg: "Single step a single cpu instruction."},
		{aliases: []string{"restart", "r"}, cmdFn: restart, helpMsg: "restart [newargs...]. Restart the process."},
		{aliases: []string{"registers", "regs"}, cmdFn: regs, helpMsg: "registers [dump | read <name> | write <name> <value>]. Print or modify CPU registers."},
		{aliases: []string{"memory", "mem"}, cmdFn: memory, helpMsg: "memory <read <address> | write <address> <value>>. Read or write a word of tracee memory."},
		{aliases: []string{"list", "ls"}, cmdFn: listCommand, helpMsg: "list [file:line]. Show source around current point or provided location."},
		{aliases: []string{"disassemble", "disasm"}, cmdFn: disassCommand, helpMsg: "disassemble [<address>]. Show instructions around current point or address."},
		{aliases: []string{"funcs"}, cmdFn: funcs, helpMsg: "funcs [prefix]. Print list of functions known to the debugger."},
		{aliases: []string{"exit", "quit", "q"}, cmdFn: exitCommand, helpMsg: "Exit the debugger."},
	}

	return c
}

// Merge adds aliases from the configuration to the command table.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
}

var errNoCmd = errors.New("command not available")

// Call evaluates one line of user input and runs the matching command.
// Unknown commands report an error and change no state.
func (c *Commands) Call(cmdstr string, t *Term) error {
	vals := strings.SplitN(strings.TrimSpace(cmdstr), " ", 2)
	cmdname := vals[0]
	if cmdname == "" {
		return nil
	}
	var args string
	if len(vals) > 1 {
		args = strings.TrimSpace(vals[1])
	}
	for _, v := range c.cmds {
		if v.match(cmdname) {
			return v.cmdFn(t, args)
		}
	}
	return errNoCmd
}

func (c *Commands) help(t *Term, args string) error {
	fmt.Fprintln(t.stdout, "The following commands are available:")
	w := new(tabwriter.Writer)
	w.Init(t.stdout, 0, 8, 0, '\t', 0)
	for _, cmd := range c.cmds {
		if len(cmd.aliases) > 1 {
			fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), cmd.helpMsg)
		} else {
			fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], cmd.helpMsg)
		}
	}
	return w.Flush()
}

// ExitRequestError is returned when the user exits the debugger.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

func exitCommand(t *Term, args string) error {
	return ExitRequestError{}
}

// parseAddr parses a hexadecimal address, with or without 0x prefix.
func parseAddr(s string) (uint64, error) {
	addr, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return addr, nil
}

// resolveLocation turns a breakpoint location argument into a runtime
// address. Accepted forms: hexadecimal address, file:line, function name.
func resolveLocation(t *Term, locspec string) (uint64, error) {
	if locspec == "" {
		return 0, errors.New("no location specified")
	}
	if strings.ContainsRune(locspec, ':') {
		fl := strings.SplitN(locspec, ":", 2)
		line, err := strconv.Atoi(fl[1])
		if err != nil {
			return 0, fmt.Errorf("invalid line number %q", fl[1])
		}
		return t.dbp.BinInfo.LineToPC(fl[0], line)
	}
	if strings.HasPrefix(locspec, "0x") {
		return parseAddr(locspec)
	}
	if addr, err := t.dbp.BinInfo.FindFunctionByName(locspec); err == nil {
		return addr, nil
	}
	return parseAddr(locspec)
}

func breakpoint(t *Term, args string) error {
	addr, err := resolveLocation(t, args)
	if err != nil {
		return err
	}
	bp, err := t.dbp.SetBreakpoint(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.stdout, "%s set\n", bp)
	return nil
}

func clear(t *Term, args string) error {
	addr, err := resolveLocation(t, args)
	if err != nil {
		return err
	}
	bp, err := t.dbp.ClearBreakpoint(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.stdout, "%s cleared\n", bp)
	return nil
}

func breakpoints(t *Term, args string) error {
	bps := make([]*proc.Breakpoint, 0, len(t.dbp.Breakpoints))
	for _, bp := range t.dbp.Breakpoints {
		bps = append(bps, bp)
	}
	sort.Slice(bps, func(i, j int) bool { return bps[i].ID < bps[j].ID })
	for _, bp := range bps {
		fmt.Fprintln(t.stdout, bp)
	}
	return nil
}

func cont(t *Term, args string) error {
	err := t.dbp.Continue()
	if err != nil {
		var pe proc.ProcessExitedError
		if errors.As(err, &pe) {
			fmt.Fprintf(t.stdout, "Process %d has exited with status %d\n", pe.Pid, pe.Status)
			return nil
		}
		return err
	}
	return t.printStopInfo()
}

func stepInstruction(t *Term, args string) error {
	err := t.dbp.StepInstruction()
	if err != nil {
		var pe proc.ProcessExitedError
		if errors.As(err, &pe) {
			fmt.Fprintf(t.stdout, "Process %d has exited with status %d\n", pe.Pid, pe.Status)
			return nil
		}
		return err
	}
	return t.printStopInfo()
}

func restart(t *Term, args string) error {
	if t.attached {
		return errors.New("cannot restart a process the debugger did not start")
	}
	resetArgs := t.processArgs
	if args != "" {
		v, err := argv.Argv(args,
			func(s string) (string, error) {
				return "", fmt.Errorf("backtick not supported in '%s'", s)
			},
			nil)
		if err != nil {
			return err
		}
		if len(v) != 1 {
			return errors.New("illegal commandline, pipes not supported")
		}
		resetArgs = append([]string{t.processArgs[0]}, v[0]...)
	}
	return t.Restart(resetArgs)
}

func regs(t *Term, args string) error {
	fields := strings.Fields(args)
	switch {
	case len(fields) == 0 || (len(fields) == 1 && fields[0] == "dump"):
		regs, err := t.dbp.Registers()
		if err != nil {
			return err
		}
		fmt.Fprint(t.stdout, regs.String())
		return nil
	case fields[0] == "read" && len(fields) == 2:
		r, err := proc.RegisterByName(fields[1])
		if err != nil {
			return err
		}
		val, err := t.dbp.GetRegister(r)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.stdout, "%8s = %#018x\n", r, val)
		return nil
	case fields[0] == "write" && len(fields) == 3:
		r, err := proc.RegisterByName(fields[1])
		if err != nil {
			return err
		}
		val, err := strconv.ParseUint(fields[2], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q", fields[2])
		}
		return t.dbp.SetRegister(r, val)
	default:
		return errors.New("expected: registers [dump | read <name> | write <name> <value>]")
	}
}

func memory(t *Term, args string) error {
	fields := strings.Fields(args)
	switch {
	case len(fields) == 2 && fields[0] == "read":
		addr, err := parseAddr(fields[1])
		if err != nil {
			return err
		}
		word, err := t.dbp.ReadWord(addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.stdout, "%#x: %#018x\n", addr, word)
		return nil
	case len(fields) == 3 && fields[0] == "write":
		addr, err := parseAddr(fields[1])
		if err != nil {
			return err
		}
		val, err := strconv.ParseUint(fields[2], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q", fields[2])
		}
		return t.dbp.WriteWord(addr, val)
	default:
		return errors.New("expected: memory <read <address> | write <address> <value>>")
	}
}

func listCommand(t *Term, args string) error {
	var (
		file string
		line int
	)
	if args == "" {
		pc, err := t.stoppedPC()
		if err != nil {
			return err
		}
		file, line, err = t.dbp.BinInfo.PCToLine(pc)
		if err != nil {
			return err
		}
	} else {
		fl := strings.SplitN(args, ":", 2)
		if len(fl) != 2 {
			return errors.New("expected: list [file:line]")
		}
		var err error
		line, err = strconv.Atoi(fl[1])
		if err != nil {
			return fmt.Errorf("invalid line number %q", fl[1])
		}
		file = fl[0]
	}
	return t.printSource(file, line)
}

func disassCommand(t *Term, args string) error {
	var (
		start uint64
		err   error
	)
	if args != "" {
		start, err = parseAddr(args)
	} else {
		start, err = t.stoppedPC()
	}
	if err != nil {
		return err
	}
	const instructions = 10
	insts, err := t.dbp.Disassemble(start, instructions)
	if err != nil {
		return err
	}
	for _, inst := range insts {
		marker := "  "
		if inst.Breakpoint {
			marker = "* "
		}
		fmt.Fprintf(t.stdout, "%s%#x:\t%s\n", marker, inst.Loc, inst.Text)
	}
	return nil
}

func funcs(t *Term, args string) error {
	for _, name := range t.dbp.BinInfo.Functions(args) {
		fmt.Fprintln(t.stdout, name)
	}
	return nil
}
