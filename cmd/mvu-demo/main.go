// Command mvu-demo is a small fractal-architecture demo: a counter bag and
// a subprocess-streaming bag composed under one router-built update.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fwojciec/mvu"
	"github.com/fwojciec/mvu/ansiterm"
	"github.com/fwojciec/mvu/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mvu-demo: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var command string

	cmd := &cobra.Command{
		Use:           "mvu-demo",
		Short:         "Model-View-Update runtime demo",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := cfg.Logger()
			if err != nil {
				return err
			}

			update, err := buildUpdate(command)
			if err != nil {
				return err
			}

			opts := append(cfg.Options(), mvu.WithLogger(logger))
			program := mvu.New(ansiterm.New(), opts...)
			_, err = program.Run(newApp(), appView, update, nil)
			return err
		},
	}

	cmd.Flags().StringVarP(&command, "command", "c", "ls -la", "shell command streamed into the process pane")
	return cmd
}
