package main

import (
	"context"
	"fmt"

	"gengardb/pkg/tree"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Look up a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		return withTree(cmd, func(t *tree.Tree) error {
			v, ok, err := t.Get(context.Background(), key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q not found", key)
			}
			fmt.Println(v.(string))
			return nil
		})
	},
}
