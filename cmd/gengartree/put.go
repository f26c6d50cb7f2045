package main

import (
	"context"

	"gengardb/pkg/tree"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put KEY VALUE",
	Short: "Insert or update a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		return withTree(cmd, func(t *tree.Tree) error {
			return t.Put(context.Background(), key, value)
		})
	},
}
