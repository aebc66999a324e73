package gitlab

import "context"

// GroupSummary is the abbreviated group representation returned by list
// endpoints. It carries no accessors; pass it to Client.ResolveGroup to
// obtain a full Group.
type GroupSummary struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FullPath string `json:"full_path"`
	ParentID int    `json:"parent_id"`
}

// Group is a fully resolved group, bound to the client that fetched it.
type Group struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FullPath string `json:"full_path"`
	WebURL   string `json:"web_url"`

	client *Client
}

// Group fetches a single group by id.
func (c *Client) Group(ctx context.Context, id int) (*Group, error) {
	var g Group
	if err := c.getJSON(ctx, groupPath(id), &g); err != nil {
		return nil, err
	}
	g.client = c
	return &g, nil
}

// ResolveGroup re-fetches a listed group by id, returning the full node.
func (c *Client) ResolveGroup(ctx context.Context, s GroupSummary) (*Group, error) {
	return c.Group(ctx, s.ID)
}

// Groups returns a pager over every group visible to the client's token.
// Constructing the pager performs no request.
func (c *Client) Groups() *Pager[GroupSummary] {
	return listPager[GroupSummary](c, "/groups", nil)
}

// Subgroups returns a pager over the group's direct subgroups.
func (g *Group) Subgroups() *Pager[GroupSummary] {
	return listPager[GroupSummary](g.client, groupPath(g.ID)+"/subgroups", nil)
}

// Projects returns a pager over the projects owned directly by the group,
// excluding those of its subgroups.
func (g *Group) Projects() *Pager[ProjectSummary] {
	return listPager[ProjectSummary](g.client, groupPath(g.ID)+"/projects", nil)
}
