package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/tfup/tfup/cmd"
	"github.com/tfup/tfup/pkg/diaglog"
	"github.com/tfup/tfup/pkg/failure"
)

var (
	// Version and Commit are set during build
	version = "dev"
	commit  = "none"
)

func main() {
	if err := fang.Execute(
		context.Background(),
		cmd.RootCmd,
		fang.WithVersion(version),
		fang.WithCommit(commit),
		fang.WithNotifySignal(syscall.SIGINT, syscall.SIGTERM),
	); err != nil {
		fmt.Fprintf(os.Stderr, "see %s for details\n", diaglog.DefaultPath())
		// each fatal category exits with its own status
		os.Exit(failure.CategoryOf(err).ExitCode())
	}
}
