package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"glwalk/internal/gitlab"
)

func newProjectCmd(client *gitlab.Client) *cobra.Command {
	var projectID int

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect a single project",
	}

	cmd.PersistentFlags().IntVar(&projectID, "project-id", 0, "The id of the project to consider")

	cmd.AddCommand(newDownloadArtifactsCmd(client, &projectID))
	cmd.AddCommand(newListImagesCmd(client, &projectID))

	return cmd
}

func resolveProjectID(projectID int) error {
	if projectID <= 0 {
		return gitlab.ErrUsage("you must provide a project id")
	}
	return nil
}

func newDownloadArtifactsCmd(client *gitlab.Client, projectID *int) *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "download-artifacts JOB_NAME",
		Short: "Download the artifacts archive of the latest successful job with the given name",
		Example: `  # Fetch the artifacts of the most recent successful "build" job
  glwalk project --project-id 314 download-artifacts build --dest build.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := resolveProjectID(*projectID); err != nil {
				return err
			}
			project, err := client.Project(ctx, *projectID)
			if err != nil {
				return err
			}
			job, err := project.FindJob(ctx, args[0], gitlab.JobScopeSuccess)
			if err != nil {
				return err
			}
			archive, err := project.Artifacts(ctx, job.ID)
			if err != nil {
				return err
			}
			defer archive.Close()

			// The file is created only once the artifact request has
			// succeeded, so a failed download leaves nothing behind.
			out, err := os.Create(dest)
			if err != nil {
				return fmt.Errorf("create %s: %w", dest, err)
			}
			defer out.Close()
			if _, err := io.Copy(out, archive); err != nil {
				return fmt.Errorf("write %s: %w", dest, err)
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]interface{}{
					"status": "saved",
					"job_id": job.ID,
					"dest":   dest,
				})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Artifacts of job %d saved to %s\n", job.ID, dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "artifacts.zip", "File to write the artifacts archive to")

	return cmd
}

func newListImagesCmd(client *gitlab.Client, projectID *int) *cobra.Command {
	return &cobra.Command{
		Use:   "list-images",
		Short: "List the container registry repositories of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := resolveProjectID(*projectID); err != nil {
				return err
			}
			project, err := client.Project(ctx, *projectID)
			if err != nil {
				return err
			}
			repos, err := project.RegistryRepositories().All(ctx)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, repos)
			}
			columns := []string{"id", "path", "location"}
			rows := make([][]string, 0, len(repos))
			for _, r := range repos {
				rows = append(rows, []string{strconv.Itoa(r.ID), r.Path, r.Location})
			}
			PrintTable(os.Stdout, columns, rows)
			return nil
		},
	}
}
