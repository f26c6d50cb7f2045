package main

import (
	"fmt"

	"gengardb/pkg/tree"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Evict deep, clean pages from memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTree(cmd, func(t *tree.Tree) error {
			evicted := t.Optimize()
			fmt.Printf("evicted %d pages\n", evicted)
			return nil
		})
	},
}
