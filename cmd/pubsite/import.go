package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eringen/pubsite"
)

var (
	importParent string
	importDraft  bool
)

var importCmd = &cobra.Command{
	Use:   "import <dir-or-file>...",
	Short: "Import markdown files with front matter as blog posts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var files []string
		for _, arg := range args {
			err := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		for _, path := range files {
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			page, err := pubsite.ImportMarkdown(cmd.Context(), store, importParent, path, src, importDraft)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "imported %s -> %s\n", path, page.URLPath)
		}
		fmt.Fprintf(out, "%d posts imported\n", len(files))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importParent, "parent", "/blog/", "URL path of the blog index to import under")
	importCmd.Flags().BoolVar(&importDraft, "draft", false, "save posts as drafts instead of publishing")
}
