package walk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"glwalk/internal/gitlab"
)

// Sink receives the sections, notes, and tables an aggregation emits, in
// order. Implementations render them; the aggregator never formats
// output itself.
//
// Rows arrive between BeginTable and EndTable. EndTable is called even
// when the aggregation fails mid-table, so streaming sinks can flush the
// rows that were already emitted.
type Sink interface {
	Section(title string)
	Note(text string)
	BeginTable(title string, columns ...string)
	Row(values ...string)
	EndTable()
}

// memberColumns is the field schema of every member table.
var memberColumns = []string{"id", "name", "username"}

// Aggregator resolves project membership across a walker's traversal and
// emits it to a sink.
type Aggregator struct {
	walker       *Walker
	onlyExplicit bool
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// OnlyExplicit skips the effective (inherited-inclusive) membership
// listing of each project.
func OnlyExplicit() AggregatorOption {
	return func(a *Aggregator) { a.onlyExplicit = true }
}

// NewAggregator creates an aggregator over the given walker.
func NewAggregator(walker *Walker, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{walker: walker}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WalkMembers walks root's whole hierarchy and emits, per group, a
// section header, and per project, its membership tables. Groups
// contribute headers only; membership is resolved per project.
func (a *Aggregator) WalkMembers(ctx context.Context, root *gitlab.Group, sink Sink) error {
	for node, err := range a.walker.GroupsAndProjects(ctx, root) {
		if err != nil {
			return err
		}
		if node.Group != nil {
			sink.Section(fmt.Sprintf("Group %d: %s", node.Group.ID, node.Group.FullPath))
			continue
		}
		if err := a.projectMembers(ctx, node.Project, sink); err != nil {
			return err
		}
	}
	return nil
}

// WalkProjectMembers emits the membership tables of every project in
// root's hierarchy, without group headers.
func (a *Aggregator) WalkProjectMembers(ctx context.Context, root *gitlab.Group, sink Sink) error {
	for project, err := range a.walker.Projects(ctx, root) {
		if err != nil {
			return err
		}
		if err := a.projectMembers(ctx, project, sink); err != nil {
			return err
		}
	}
	return nil
}

// projectMembers emits one project's section: its explicit members,
// sorted by display name, then unless configured otherwise its effective
// members in server order.
func (a *Aggregator) projectMembers(ctx context.Context, project *gitlab.Project, sink Sink) error {
	sink.Section(fmt.Sprintf("Project %d: %s", project.ID, project.Name))

	explicit, err := project.Members().All(ctx)
	if err != nil {
		return err
	}
	if len(explicit) == 0 {
		sink.Note("No explicit members")
	} else {
		sortMembers(explicit)
		sink.BeginTable("Explicit members", memberColumns...)
		for _, m := range explicit {
			sink.Row(strconv.Itoa(m.ID), m.Name, m.Username)
		}
		sink.EndTable()
	}

	if a.onlyExplicit {
		return nil
	}
	return a.effectiveMembers(ctx, project, sink)
}

// effectiveMembers streams the inherited-inclusive listing row by row in
// server order. EndTable runs even on a failed page fetch, keeping the
// rows already streamed visible.
func (a *Aggregator) effectiveMembers(ctx context.Context, project *gitlab.Project, sink Sink) error {
	sink.BeginTable("Effective members", memberColumns...)
	defer sink.EndTable()

	pager := project.AllMembers()
	for {
		m, err := pager.Next(ctx)
		if errors.Is(err, gitlab.ErrDone) {
			return nil
		}
		if err != nil {
			return err
		}
		sink.Row(strconv.Itoa(m.ID), m.Name, m.Username)
	}
}

// projectRef is one project row of the by-member index.
type projectRef struct {
	name       string
	membersURL string
}

// ProjectsPerMember inverts explicit membership across root's hierarchy
// into a member-centric index: one section per member, listing the
// projects where they hold explicit membership together with each
// project's members page. The whole walk completes before anything is
// emitted; sections are sorted by member, projects within a section by
// name.
func (a *Aggregator) ProjectsPerMember(ctx context.Context, root *gitlab.Group, sink Sink) error {
	index := map[string][]projectRef{}
	for node, err := range a.walker.GroupsAndProjects(ctx, root) {
		if err != nil {
			return err
		}
		if node.Project == nil {
			continue
		}
		members, err := node.Project.Members().All(ctx)
		if err != nil {
			return err
		}
		for _, m := range members {
			key := memberKey(m)
			index[key] = append(index[key], projectRef{
				name:       node.Project.Name,
				membersURL: node.Project.MembersPageURL(),
			})
		}
	}

	keys := make([]string, 0, len(index))
	for key := range index {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		refs := index[key]
		sort.Slice(refs, func(i, j int) bool { return refs[i].name < refs[j].name })
		sink.Section(key)
		sink.BeginTable("Projects", "project", "members_page")
		for _, ref := range refs {
			sink.Row(ref.name, ref.membersURL)
		}
		sink.EndTable()
	}
	return nil
}

// memberKey identifies a member in the by-member index. The username
// disambiguates members sharing a display name.
func memberKey(m gitlab.Member) string {
	return fmt.Sprintf("%s (%s)", m.Name, m.Username)
}

func sortMembers(members []gitlab.Member) {
	sort.Slice(members, func(i, j int) bool {
		if members[i].Name != members[j].Name {
			return members[i].Name < members[j].Name
		}
		return members[i].Username < members[j].Username
	})
}
