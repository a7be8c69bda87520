package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "allocator",
		Short:         "Room allocation command line tools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd(), newConfigCmd(), newDecodeCmd(), newDecisionsCmd(), newAllocationsCmd())
	return root
}
