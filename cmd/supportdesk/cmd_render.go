package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strongdm/supportdesk/internal/page"
)

func newCmdRender() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the workspace document to stdout or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := page.NewRenderer()
			if err != nil {
				return err
			}
			doc, err := renderer.Document(page.NewView(configFrom(cmd)))
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			if err := os.WriteFile(out, doc, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the document to this file instead of stdout")
	return cmd
}
