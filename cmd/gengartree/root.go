// Command gengartree is a small inspection tool for a single on-disk
// GengarDB index tree: open it, read and write string keys, and report or
// trigger maintenance on it.
package main

import (
	"context"
	"fmt"
	"os"

	"gengardb/pkg/config"
	"gengardb/pkg/record/heap"
	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
	"gengardb/pkg/tree"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gengartree",
	Short: "Inspect and exercise a GengarDB index tree file",
}

// treeClusterID is the fixed record-store cluster every gengartree
// invocation addresses, so the tree descriptor always lands at a
// predictable RID (position 0 of a fresh file) that a later invocation can
// reopen without a side-channel.
const treeClusterID = int32(1)

func init() {
	rootCmd.PersistentFlags().String("file", "", "path to the tree's heap file (required)")
	rootCmd.MarkPersistentFlagRequired("file")

	rootCmd.PersistentFlags().Uint16("node-page-size", config.Default().NodePageSize, "keys per node page")
	rootCmd.PersistentFlags().Float64("load-factor", config.Default().LoadFactor, "slot slice headroom fraction")
	rootCmd.PersistentFlags().Int("entry-points-size", config.Default().EntryPointsSize, "resident entry-point anchor count")
	rootCmd.PersistentFlags().Int64("optimize-threshold", config.Default().OptimizeThreshold, "mutations between automatic optimize passes (0 disables)")
	rootCmd.PersistentFlags().Float64("optimize-entrypoints-factor", config.Default().OptimizeEntrypointsFactor, "entry-points-size multiplier for optimize's depth limit")
	rootCmd.PersistentFlags().Int64("max-updates-before-save", config.Default().MaxUpdatesBeforeSave, "mutations between automatic flushes (0 disables)")
	rootCmd.PersistentFlags().Bool("runtime-checks", config.Default().RuntimeChecks, "verify tree invariants after every mutation")

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(optimizeCmd)
}

func configFromFlags(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	cfg.NodePageSize, _ = cmd.Flags().GetUint16("node-page-size")
	cfg.LoadFactor, _ = cmd.Flags().GetFloat64("load-factor")
	cfg.EntryPointsSize, _ = cmd.Flags().GetInt("entry-points-size")
	cfg.OptimizeThreshold, _ = cmd.Flags().GetInt64("optimize-threshold")
	cfg.OptimizeEntrypointsFactor, _ = cmd.Flags().GetFloat64("optimize-entrypoints-factor")
	cfg.MaxUpdatesBeforeSave, _ = cmd.Flags().GetInt64("max-updates-before-save")
	cfg.RuntimeChecks, _ = cmd.Flags().GetBool("runtime-checks")
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// withTree opens (or creates, on a fresh file) the tree named by --file,
// hands it to fn, and flushes and closes it afterward regardless of fn's
// outcome.
func withTree(cmd *cobra.Command, fn func(t *tree.Tree) error) error {
	path, _ := cmd.Flags().GetString("file")
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := heap.Open(path, treeClusterID)
	if err != nil {
		return fmt.Errorf("open heap file: %w", err)
	}
	defer store.Close()

	registry := serializer.NewRegistry()
	descRID := descriptorRID()

	var t *tree.Tree
	if _, readErr := store.Read(descRID); readErr == nil {
		t, err = tree.Open(store, registry, descRID, stringCmp, cfg)
	} else {
		t, err = tree.Create(store, registry, "string", "string", stringCmp, cfg)
	}
	if err != nil {
		return fmt.Errorf("open tree: %w", err)
	}

	fnErr := fn(t)
	closeErr := t.Close(context.Background())
	if fnErr != nil {
		return fnErr
	}
	return closeErr
}

// descriptorRID is the RID a fresh heap file assigns its first record: page
// 0, slot 0. gengartree relies on one tree per file, so the descriptor
// always lands there.
func descriptorRID() rid.RID {
	return rid.RID{ClusterID: treeClusterID, Position: 0}
}

func stringCmp(a, b any) int {
	as, bs := a.(string), b.(string)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
