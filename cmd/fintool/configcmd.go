package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jask/fintool/internal/config"
)

var configAppend bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print the effective value for a dotted key",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		v, err := config.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Persist a value for a dotted key",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := config.Set(args[0], args[1], configAppend); err != nil {
			return err
		}
		fmt.Printf("Set %s\n", args[0])
		return nil
	},
}

func init() {
	configSetCmd.Flags().BoolVar(&configAppend, "append", false, "Append to the current value instead of replacing it")

	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
