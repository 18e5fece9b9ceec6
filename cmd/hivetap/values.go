package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hivetap/hivetap/pkg/hive"
)

func init() {
	rootCmd.AddCommand(newValuesCmd())
}

func newValuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "values <hive> [path]",
		Short: "List values of a key",
		Long: `values lists every value stored on a key, with data decoded per
registry type.

Example:
  hivetap values SYSTEM "ControlSet001\Services\Tcpip\Parameters"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hivePath := args[0]
			keyPath := ""
			if len(args) > 1 {
				keyPath = args[1]
			}
			printVerbose("Listing values of %q in %s\n", keyPath, hivePath)
			values, err := hive.ListValues(hivePath, keyPath)
			if err != nil {
				return fmt.Errorf("list values: %w", err)
			}
			if jsonOut {
				return printJSON(values)
			}
			for _, v := range values {
				name := v.Name
				if name == "" {
					name = "(default)"
				}
				printInfo("%-30s %-14s %s\n", name, v.Type, renderValue(v))
			}
			return nil
		},
	}
	return cmd
}

func renderValue(v hive.ValueInfo) string {
	suffix := ""
	if v.Truncated {
		suffix = " [truncated]"
	}
	switch v.Type {
	case "REG_SZ", "REG_EXPAND_SZ":
		return fmt.Sprintf("%q%s", v.StringVal, suffix)
	case "REG_MULTI_SZ":
		return fmt.Sprintf("%q%s", v.StringVals, suffix)
	case "REG_DWORD", "REG_DWORD_BE":
		return fmt.Sprintf("0x%08x (%d)%s", v.DWordVal, v.DWordVal, suffix)
	case "REG_QWORD":
		return fmt.Sprintf("0x%016x (%d)%s", v.QWordVal, v.QWordVal, suffix)
	default:
		return fmt.Sprintf("%d bytes%s", v.Size, suffix)
	}
}
