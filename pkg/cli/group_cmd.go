package cli

import (
	"context"

	"github.com/spf13/cobra"

	"glwalk/internal/gitlab"
	"glwalk/internal/walk"
)

func newGroupCmd(client *gitlab.Client) *cobra.Command {
	var (
		groupID int
		dedupe  bool
	)

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Walk a group hierarchy and audit its membership",
	}

	cmd.PersistentFlags().IntVar(&groupID, "group-id", 0, "The id of the group to consider")
	cmd.PersistentFlags().BoolVar(&dedupe, "dedupe-projects", false, "Emit each project once even when it is listed under several groups")

	cmd.AddCommand(newWalkMembersCmd(client, &groupID, &dedupe))
	cmd.AddCommand(newWalkProjectMembersCmd(client, &groupID, &dedupe))
	cmd.AddCommand(newWalkProjectPerMemberCmd(client, &groupID, &dedupe))

	return cmd
}

// resolveRootGroup validates --group-id and fetches the root group. The
// usage check runs before any request leaves the client.
func resolveRootGroup(ctx context.Context, client *gitlab.Client, groupID int) (*gitlab.Group, error) {
	if groupID <= 0 {
		return nil, gitlab.ErrUsage("you must provide a group id, run the groups command to find one")
	}
	return client.Group(ctx, groupID)
}

func newGroupWalker(client *gitlab.Client, dedupe bool) *walk.Walker {
	var opts []walk.Option
	if dedupe {
		opts = append(opts, walk.Dedupe())
	}
	return walk.NewWalker(client, opts...)
}

func newMemberAggregator(client *gitlab.Client, dedupe, onlyExplicit bool) *walk.Aggregator {
	var opts []walk.AggregatorOption
	if onlyExplicit {
		opts = append(opts, walk.OnlyExplicit())
	}
	return walk.NewAggregator(newGroupWalker(client, dedupe), opts...)
}

func newWalkMembersCmd(client *gitlab.Client, groupID *int, dedupe *bool) *cobra.Command {
	var onlyExplicit bool

	cmd := &cobra.Command{
		Use:   "walk-members",
		Short: "List members for every group and project in the hierarchy",
		Example: `  # Walk group 42 and list each project's members
  glwalk group --group-id 42 walk-members

  # Direct membership only
  glwalk group --group-id 42 walk-members --only-explicit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			root, err := resolveRootGroup(ctx, client, *groupID)
			if err != nil {
				return err
			}
			agg := newMemberAggregator(client, *dedupe, onlyExplicit)
			sink, flush := newWalkSink(cmd)
			walkErr := agg.WalkMembers(ctx, root, sink)
			if err := flush(); err != nil {
				return err
			}
			return walkErr
		},
	}

	cmd.Flags().BoolVar(&onlyExplicit, "only-explicit", false, "Skip the effective (inherited) membership listing")

	return cmd
}

func newWalkProjectMembersCmd(client *gitlab.Client, groupID *int, dedupe *bool) *cobra.Command {
	var onlyExplicit bool

	cmd := &cobra.Command{
		Use:   "walk-project-members",
		Short: "List members for every project in the hierarchy, without group headers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			root, err := resolveRootGroup(ctx, client, *groupID)
			if err != nil {
				return err
			}
			agg := newMemberAggregator(client, *dedupe, onlyExplicit)
			sink, flush := newWalkSink(cmd)
			walkErr := agg.WalkProjectMembers(ctx, root, sink)
			if err := flush(); err != nil {
				return err
			}
			return walkErr
		},
	}

	cmd.Flags().BoolVar(&onlyExplicit, "only-explicit", false, "Skip the effective (inherited) membership listing")

	return cmd
}

func newWalkProjectPerMemberCmd(client *gitlab.Client, groupID *int, dedupe *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "walk-project-per-member",
		Short: "List, per member, the projects where they hold explicit membership",
		Long: `Inverts the membership relation across the whole hierarchy: walks every
project, collects explicit members, and prints one section per member with
the projects they can access and a link to each project's members page.

The whole hierarchy is walked before anything is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			root, err := resolveRootGroup(ctx, client, *groupID)
			if err != nil {
				return err
			}
			agg := newMemberAggregator(client, *dedupe, false)
			sink, flush := newWalkSink(cmd)
			walkErr := agg.ProjectsPerMember(ctx, root, sink)
			if err := flush(); err != nil {
				return err
			}
			return walkErr
		},
	}
}
