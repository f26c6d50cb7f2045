package main

import (
	"fmt"

	"gengardb/pkg/tree"

	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Create the tree file if needed and report its descriptor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTree(cmd, func(t *tree.Tree) error {
			fmt.Printf("descriptor: %s\n", t.DescRID())
			fmt.Printf("size:       %d\n", t.Size())
			fmt.Printf("root:       %s\n", t.RootRID())
			return nil
		})
	},
}
