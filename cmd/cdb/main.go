package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/Turtel216/cd-debugger/cmd/cdb/cmds"
)

func main() {
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		fmt.Fprintln(os.Stderr, "cdb only supports linux/amd64")
		os.Exit(1)
	}
	cmds.New().Execute()
}
