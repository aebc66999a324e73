package gitlab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
)

// JobScopeSuccess restricts a job listing to successfully finished jobs.
const JobScopeSuccess = "success"

// ProjectSummary is the abbreviated project representation returned by
// list endpoints. Pass it to Client.ResolveProject to obtain a full
// Project.
type ProjectSummary struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
}

// Project is a fully resolved project, bound to the client that fetched
// it.
type Project struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`

	client *Client
}

// Member is one user holding membership on a project.
type Member struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Job is one CI job of a project.
type Job struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// RegistryRepository is one container image repository of a project.
type RegistryRepository struct {
	ID       int    `json:"id"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// Project fetches a single project by id.
func (c *Client) Project(ctx context.Context, id int) (*Project, error) {
	var p Project
	if err := c.getJSON(ctx, projectPath(id), &p); err != nil {
		return nil, err
	}
	p.client = c
	return &p, nil
}

// ResolveProject re-fetches a listed project by id, returning the full
// node.
func (c *Client) ResolveProject(ctx context.Context, s ProjectSummary) (*Project, error) {
	return c.Project(ctx, s.ID)
}

// Members returns a pager over the project's explicit members, the users
// granted access directly on the project.
func (p *Project) Members() *Pager[Member] {
	return listPager[Member](p.client, projectPath(p.ID)+"/members", nil)
}

// AllMembers returns a pager over the project's effective members,
// including those inherited from ancestor groups.
func (p *Project) AllMembers() *Pager[Member] {
	return listPager[Member](p.client, projectPath(p.ID)+"/members/all", nil)
}

// Jobs returns a pager over the project's CI jobs, most recent first.
// A non-empty scope restricts the listing to jobs with that status.
func (p *Project) Jobs(scope string) *Pager[Job] {
	var query url.Values
	if scope != "" {
		query = url.Values{"scope": {scope}}
	}
	return listPager[Job](p.client, projectPath(p.ID)+"/jobs", query)
}

// RegistryRepositories returns a pager over the project's container
// registry repositories.
func (p *Project) RegistryRepositories() *Pager[RegistryRepository] {
	return listPager[RegistryRepository](p.client, projectPath(p.ID)+"/registry/repositories", nil)
}

// FindJob returns the most recent job with the given name in the given
// status scope. The job listing is consumed lazily, so the search fetches
// no pages past the first match.
func (p *Project) FindJob(ctx context.Context, name, scope string) (Job, error) {
	pager := p.Jobs(scope)
	for {
		job, err := pager.Next(ctx)
		if errors.Is(err, ErrDone) {
			return Job{}, ErrNotFound("no %s job named %q in project %d", scope, name, p.ID)
		}
		if err != nil {
			return Job{}, err
		}
		if job.Name == name {
			return job, nil
		}
	}
}

// Artifacts streams the artifacts archive of the given job. The caller
// must close the returned reader.
func (p *Project) Artifacts(ctx context.Context, jobID int) (io.ReadCloser, error) {
	path := fmt.Sprintf("%s/jobs/%d/artifacts", projectPath(p.ID), jobID)
	resp, err := p.client.do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	if err := checkError(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// MembersPageURL returns the address of the project's members page in the
// GitLab web UI.
func (p *Project) MembersPageURL() string {
	return p.WebURL + "/-/project_members"
}
