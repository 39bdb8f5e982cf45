// Package logflags turns the --log-output command line option into
// loggers for the individual components.
package logflags

import (
	"errors"
	"io"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

var debugger = false
var ptrace = false
var dwarf = false

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Debugger returns true if the debugger package should log.
func Debugger() bool {
	return debugger
}

// DebuggerLogger returns a logger for the debugger package.
func DebuggerLogger() *logrus.Entry {
	return makeLogger(debugger, logrus.Fields{"layer": "debugger"})
}

// Ptrace returns true if all ptrace requests issued to the tracee should
// be logged.
func Ptrace() bool {
	return ptrace
}

// PtraceLogger returns a logger for ptrace requests.
func PtraceLogger() *logrus.Entry {
	return makeLogger(ptrace, logrus.Fields{"layer": "ptrace"})
}

// DWARF returns true if the symbolication layer should log its
// recoverable errors.
func DWARF() bool {
	return dwarf
}

// DWARFLogger returns a logger for the symbolication layer.
func DWARFLogger() *logrus.Entry {
	return makeLogger(dwarf, logrus.Fields{"layer": "dwarf"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets debugger flags based on the contents of logstr.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(io.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "debugger"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "debugger":
			debugger = true
		case "ptrace":
			ptrace = true
		case "dwarf":
			dwarf = true
		}
	}
	return nil
}
