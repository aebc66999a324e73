// Package walk traverses GitLab group hierarchies and aggregates project
// membership over the traversal.
package walk

import (
	"context"
	"errors"
	"iter"

	"glwalk/internal/gitlab"
)

// Walker performs a depth-first traversal of a group hierarchy, resolving
// every node it visits to a full API object. Construction performs no
// requests; each walk fetches lazily as it is consumed, so abandoning a
// walk early stops the paging with it.
type Walker struct {
	client *gitlab.Client
	dedupe bool
}

// Option configures a Walker.
type Option func(*Walker)

// Dedupe makes the walker emit each project at most once per walk, keyed
// by project id. Without it a project reachable through several subgroup
// listings is emitted once per appearance, matching what the API serves.
func Dedupe() Option {
	return func(w *Walker) { w.dedupe = true }
}

// NewWalker creates a walker over the given client's host.
func NewWalker(client *gitlab.Client, opts ...Option) *Walker {
	w := &Walker{client: client}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Node is one step of an interleaved walk. Exactly one of Group and
// Project is set.
type Node struct {
	Group   *gitlab.Group
	Project *gitlab.Project
}

// Subgroups yields root and then, depth-first, every group below it. A
// parent is always yielded before any of its descendants, and siblings
// follow the order the API lists them in. A fetch failure is yielded as
// the final element and ends the walk.
func (w *Walker) Subgroups(ctx context.Context, root *gitlab.Group) iter.Seq2[*gitlab.Group, error] {
	return func(yield func(*gitlab.Group, error) bool) {
		w.walkGroup(ctx, root, yield)
	}
}

// walkGroup yields g and recurses into its subgroups. It reports whether
// iteration should continue.
func (w *Walker) walkGroup(ctx context.Context, g *gitlab.Group, yield func(*gitlab.Group, error) bool) bool {
	if !yield(g, nil) {
		return false
	}
	pager := g.Subgroups()
	for {
		summary, err := pager.Next(ctx)
		if errors.Is(err, gitlab.ErrDone) {
			return true
		}
		if err != nil {
			yield(nil, err)
			return false
		}
		sub, err := w.client.ResolveGroup(ctx, summary)
		if err != nil {
			yield(nil, err)
			return false
		}
		if !w.walkGroup(ctx, sub, yield) {
			return false
		}
	}
}

// Projects yields every project owned by root or a group below it, in
// traversal order. Groups themselves are not yielded.
func (w *Walker) Projects(ctx context.Context, root *gitlab.Group) iter.Seq2[*gitlab.Project, error] {
	return func(yield func(*gitlab.Project, error) bool) {
		seen := w.seenProjects()
		for g, err := range w.Subgroups(ctx, root) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !w.yieldGroupProjects(ctx, g, seen, yield) {
				return
			}
		}
	}
}

// GroupsAndProjects yields every group of the hierarchy, each immediately
// followed by the projects it owns directly.
func (w *Walker) GroupsAndProjects(ctx context.Context, root *gitlab.Group) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		seen := w.seenProjects()
		for g, err := range w.Subgroups(ctx, root) {
			if err != nil {
				yield(Node{}, err)
				return
			}
			if !yield(Node{Group: g}, nil) {
				return
			}
			ok := w.yieldGroupProjects(ctx, g, seen, func(p *gitlab.Project, err error) bool {
				if err != nil {
					yield(Node{}, err)
					return false
				}
				return yield(Node{Project: p}, nil)
			})
			if !ok {
				return
			}
		}
	}
}

// yieldGroupProjects resolves and yields the projects owned directly by
// g. It reports whether iteration should continue.
func (w *Walker) yieldGroupProjects(ctx context.Context, g *gitlab.Group, seen map[int]bool, yield func(*gitlab.Project, error) bool) bool {
	pager := g.Projects()
	for {
		summary, err := pager.Next(ctx)
		if errors.Is(err, gitlab.ErrDone) {
			return true
		}
		if err != nil {
			yield(nil, err)
			return false
		}
		if seen != nil {
			if seen[summary.ID] {
				continue
			}
			seen[summary.ID] = true
		}
		project, err := w.client.ResolveProject(ctx, summary)
		if err != nil {
			yield(nil, err)
			return false
		}
		if !yield(project, nil) {
			return false
		}
	}
}

func (w *Walker) seenProjects() map[int]bool {
	if !w.dedupe {
		return nil
	}
	return map[int]bool{}
}
