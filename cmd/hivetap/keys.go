package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hivetap/hivetap/pkg/hive"
)

func init() {
	rootCmd.AddCommand(newKeysCmd())
}

func newKeysCmd() *cobra.Command {
	var (
		recursive bool
		maxDepth  int
	)
	cmd := &cobra.Command{
		Use:   "keys <hive> [path]",
		Short: "List keys under a path",
		Long: `keys lists the subkeys of a registry path, the root when no path is
given.

Example:
  hivetap keys SOFTWARE
  hivetap keys SOFTWARE "Microsoft\Windows" --recursive --max-depth 2`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hivePath := args[0]
			keyPath := ""
			if len(args) > 1 {
				keyPath = args[1]
			}
			printVerbose("Listing keys under %q in %s\n", keyPath, hivePath)
			keys, err := hive.ListKeys(hivePath, keyPath, recursive, maxDepth)
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}
			if jsonOut {
				return printJSON(keys)
			}
			for _, k := range keys {
				printInfo("%s  (%d subkeys, %d values)  %s\n",
					k.Path, k.SubkeyN, k.ValueN,
					k.LastWrite.UTC().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Recurse into subkeys")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum recursion depth (0 = unlimited)")
	return cmd
}
