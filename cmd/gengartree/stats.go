package main

import (
	"context"
	"fmt"

	"gengardb/pkg/tree"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report size, shape, and cache occupancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTree(cmd, func(t *tree.Tree) error {
			st, err := t.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("size:         %d\n", st.Size)
			fmt.Printf("pages:        %d\n", st.PageCount)
			fmt.Printf("height:       %d\n", st.Height)
			fmt.Printf("black height: %d\n", st.BlackHeight)
			fmt.Printf("cached pages: %d\n", st.CacheSize)
			return nil
		})
	},
}
