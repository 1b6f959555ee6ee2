package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storycut/internal/storyboard"
)

func newStylesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "styles",
		Short:       "List available visual styles",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(storyboard.Styles()))
			for _, style := range storyboard.Styles() {
				pacing := "viral"
				if style.Therapeutic() {
					pacing = "healing"
				}
				rows = append(rows, []string{style.ID, style.Name, pacing, style.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Pacing", "Description"}, rows, nil))
			fmt.Fprintf(cmd.OutOrStdout(), "Default style: %s\n", storyboard.DefaultStyle().ID)
			return nil
		},
	}
}
