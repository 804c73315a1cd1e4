package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/pubsite/scaffold"
)

var (
	initName  string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter pubsite.yaml and .env.example",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		data, err := scaffold.NewData(initName)
		if err != nil {
			return err
		}
		created, err := scaffold.Write(dir, data, initForce)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, path := range created {
			fmt.Fprintf(out, "  created %s\n", path)
		}
		fmt.Fprintln(out, "\nCopy .env.example to .env, set ADMIN_PASSWORD, then run 'pubsite serve'.")
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "Site", "site name")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing files")
}
