package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	fsm "github.com/muhammadut/Finite-State-Machine"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of fsm",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fsm version %s\n", strings.TrimSpace(fsm.Version))
		},
	}
}
