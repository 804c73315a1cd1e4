package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/pubsite"
	"github.com/eringen/pubsite/blocks"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse every stored page strictly and report broken content",
	Long: `check parses the live content and latest draft of every page in strict
mode. Blocks whose variant is no longer registered are reported, so they can
be fixed before they break a render.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		codec := pubsite.NewContentCodec(blocks.DefaultCatalog(), blocks.Strict)
		problems, err := pubsite.CheckPages(cmd.Context(), store, codec)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range problems {
			fmt.Fprintln(out, p)
		}
		if len(problems) > 0 {
			return fmt.Errorf("%d page documents failed to parse", len(problems))
		}
		fmt.Fprintln(out, "all pages parse")
		return nil
	},
}
