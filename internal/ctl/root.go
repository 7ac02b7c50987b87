package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd constructs the tstatectl command tree writing output to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	var addr string

	root := &cobra.Command{
		Use:           "tstatectl",
		Short:         "Operator CLI for the tstated daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultAddr := os.Getenv("TSTATED_ADDR")
	if defaultAddr == "" {
		defaultAddr = "127.0.0.1:9033"
	}
	root.PersistentFlags().StringVar(&addr, "addr", defaultAddr, "tstated address (defaults TSTATED_ADDR or 127.0.0.1:9033)")

	statusCmd := &cobra.Command{
		Use:     "status",
		Short:   "Show daemon status",
		Example: "  tstatectl status",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := NewClient(addr).Status()
			if err != nil {
				return err
			}
			return printJSON(out, st)
		},
	}

	cpusCmd := &cobra.Command{
		Use:     "cpus",
		Short:   "Show per-CPU compensation slots",
		Example: "  tstatectl cpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cpus, err := NewClient(addr).CPUs()
			if err != nil {
				return err
			}
			return printJSON(out, cpus)
		},
	}

	notifyCmd := &cobra.Command{
		Use:     "notify <suspend|hibernate|restore|resume|thaw>",
		Short:   "Notify the daemon of a power transition",
		Example: "  tstatectl notify suspend\n  tstatectl notify resume",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := NewClient(addr).Notify(args[0])
			if err != nil {
				return err
			}
			return printJSON(out, resp)
		},
	}

	root.AddCommand(statusCmd, cpusCmd, notifyCmd)
	return root
}

func printJSON(out io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	root := NewRootCmd(os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
