// Package cmds implements the command line interface of cdb.
package cmds

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Turtel216/cd-debugger/pkg/config"
	"github.com/Turtel216/cd-debugger/pkg/logflags"
	"github.com/Turtel216/cd-debugger/pkg/proc"
	"github.com/Turtel216/cd-debugger/pkg/terminal"
	"github.com/Turtel216/cd-debugger/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// workingDir is the working directory for running the program.
	workingDir string
	// disableASLR controls address randomization in the launched tracee.
	disableASLR bool
	// tty is used to provide an alternate TTY for the program you wish to debug.
	tty string

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

const cdbCommandLongDesc = `cdb is a native debugger for Linux/amd64 executables.

cdb lets you control the execution of a process with breakpoints and
instruction stepping, and inspect its registers, memory, source and
disassembly along the way.`

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	var err error
	conf, err = config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}

	rootCommand = &cobra.Command{
		Use:   "cdb",
		Short: "cdb is a debugger for native Linux programs.",
		Long:  cdbCommandLongDesc,
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (debugger, ptrace, dwarf).")

	// 'exec' subcommand.
	execCommand := &cobra.Command{
		Use:   "exec <path/to/binary>",
		Short: "Execute a precompiled binary and begin a debug session.",
		Long: `Execute a precompiled binary and begin a debug session.

The binary should be compiled with debug information for source level
features to work. Without it the debugger still supports breakpoints on
addresses, stepping, registers and memory.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("you must provide a path to a binary")
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(0, args, conf))
		},
	}
	execCommand.Flags().StringVar(&workingDir, "wd", "", "Working directory for running the program.")
	execCommand.Flags().StringVar(&tty, "tty", "", "TTY to use for the target program.")
	execCommand.Flags().BoolVar(&disableASLR, "disable-aslr", conf.GetDisableASLR(), "Disable address space layout randomization in the tracee.")
	rootCommand.AddCommand(execCommand)

	// 'attach' subcommand.
	attachCommand := &cobra.Command{
		Use:   "attach pid",
		Short: "Attach to running process and begin debugging.",
		Long: `Attach to an already running process and begin debugging it.

When exiting the debug session the process is detached and left running.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("you must provide a PID")
			}
			return nil
		},
		Run: attachCmd,
	}
	rootCommand.AddCommand(attachCommand)

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cdb Debugger\n%s\nBuild info: %s\n", version.DebuggerVersion, version.BuildInfo())
		},
	}
	rootCommand.AddCommand(versionCommand)

	return rootCommand
}

func attachCmd(cmd *cobra.Command, args []string) {
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid pid: %s\n", args[0])
		os.Exit(1)
	}
	os.Exit(execute(pid, nil, conf))
}

func execute(attachPid int, processArgs []string, conf *config.Config) int {
	if err := logflags.Setup(log, logOutput); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	var flags proc.LaunchFlags
	if disableASLR {
		flags |= proc.LaunchDisableASLR
	}

	var (
		dbp *proc.Process
		err error
	)
	if attachPid > 0 {
		dbp, err = proc.Attach(attachPid)
	} else {
		if abs, aerr := filepath.Abs(processArgs[0]); aerr == nil {
			processArgs[0] = abs
		}
		dbp, err = proc.Launch(processArgs, workingDir, flags, tty)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start debug session: %v\n", err)
		return 1
	}

	term := terminal.New(dbp, conf)
	if attachPid > 0 {
		term.SetAttached()
	} else {
		term.SetProcessArgs(processArgs, workingDir, flags, tty)
	}
	status, err := term.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return status
}
