package cli

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"glwalk/internal/gitlab"
)

func newGroupsCmd(client *gitlab.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List the groups visible to the current token",
		Example: `  # List groups on gitlab.com
  glwalk groups

  # List groups on a self-managed instance as JSON
  glwalk groups --host https://gitlab.example.com -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := client.Groups().All(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, groups)
			}
			columns := []string{"id", "name", "full_path"}
			rows := make([][]string, 0, len(groups))
			for _, g := range groups {
				rows = append(rows, []string{strconv.Itoa(g.ID), g.Name, g.FullPath})
			}
			PrintTable(os.Stdout, columns, rows)
			return nil
		},
	}
}
