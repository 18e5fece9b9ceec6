package main

import (
	"github.com/spf13/cobra"

	"github.com/hivetap/hivetap/pkg/hive"
)

func init() {
	rootCmd.AddCommand(newGetCmd())
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <hive> <path> <value>",
		Short: "Read a single value",
		Long: `get reads one value from a key and prints it decoded per its
registry type. Use "" for the key's default value.

Example:
  hivetap get SYSTEM "ControlSet001\Services\Tcpip\Parameters" Hostname`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			hivePath, keyPath, valueName := args[0], args[1], args[2]
			printVerbose("Reading %q\\%q from %s\n", keyPath, valueName, hivePath)
			info, err := hive.GetValue(hivePath, keyPath, valueName)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(info)
			}
			printInfo("%s\n", renderValue(*info))
			return nil
		},
	}
	return cmd
}
