// Package cmd wires the installer workflow behind the command line.
package cmd

import (
	"fmt"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/multi"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tfup/tfup/pkg/checkpoint"
	"github.com/tfup/tfup/pkg/deps"
	"github.com/tfup/tfup/pkg/diaglog"
	"github.com/tfup/tfup/pkg/getter"
	"github.com/tfup/tfup/pkg/platform"
	"github.com/tfup/tfup/pkg/probe"
	"github.com/tfup/tfup/pkg/workflow"
)

var (
	// Global flags
	verbose bool
	quiet   bool
)

// diag is the bounded diagnostic file every component reports into.
var diag *diaglog.Logger

// RootCmd is the single entry point: no arguments, no required flags.
var RootCmd = &cobra.Command{
	Use:   "tfup",
	Short: "Install or update the Terraform CLI",
	Long: `tfup checks whether terraform is installed, compares the installed version
against the latest published release, and installs the binary when it is
absent: it resolves the unzip dependency, downloads the platform release
archive, extracts it, and places the binary on your PATH.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		diag = diaglog.New(diaglog.DefaultPath(), diaglog.DefaultMaxLines)
		log.SetHandler(multi.New(cli.Default, diag))
		if verbose {
			log.SetLevel(log.DebugLevel)
		} else if quiet {
			log.SetLevel(log.ErrorLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}
	},
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	esc := deps.SudoEscalator{}
	runner := &workflow.Runner{
		Prober:      probe.New(diag),
		Checkpoint:  checkpoint.NewClient(diag),
		Deps:        deps.New(diag, esc),
		Platform:    platform.Resolve,
		Installer:   getter.New(diag, esc),
		ExtractTool: getter.ExtractTool,
	}

	out, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	switch out.Kind {
	case workflow.OutcomeInstalled:
		color.Green("✔ terraform %s installed at %s", out.Installed, out.Path)
	case workflow.OutcomeUpToDate:
		fmt.Printf("terraform %s at %s is the latest version\n", out.Installed, out.Path)
	case workflow.OutcomeUpdateAvailable:
		color.Yellow("newer version available: %s (installed: %s)", out.Latest, out.Installed)
	case workflow.OutcomeVersionUnknown:
		fmt.Printf("terraform is installed at %s but its version could not be determined\n", out.Path)
	case workflow.OutcomeStaleCheck:
		fmt.Printf("terraform %s is installed; the latest-version check failed (see %s)\n", out.Installed, diaglog.DefaultPath())
	}
	return nil
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Increase log verbosity")
	RootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress progress output")
}
