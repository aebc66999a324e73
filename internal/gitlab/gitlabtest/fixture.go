// Package gitlabtest provides an in-memory GitLab API fixture for tests.
// A Fixture serves the subset of the REST v4 API the client speaks, with
// header-driven pagination, bearer-token enforcement, per-path request
// counting, and failure injection.
package gitlabtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Group is one group held by the fixture.
type Group struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FullPath string `json:"full_path"`
	ParentID int    `json:"parent_id"`
	WebURL   string `json:"web_url"`
}

// Project is one project held by the fixture, together with its
// sub-collections.
type Project struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`

	// GroupID is the owning group.
	GroupID int `json:"-"`
	// SharedWith lists additional groups whose project listing includes
	// this project, like a project shared into a group.
	SharedWith []int `json:"-"`
	// Members are the project's explicit members.
	Members []Member `json:"-"`
	// AllMembers are the project's effective members. When nil, the
	// explicit members are served.
	AllMembers []Member `json:"-"`
	// Jobs are served in slice order; put the most recent first.
	Jobs []Job `json:"-"`
	// Artifacts maps a job id to its archive bytes.
	Artifacts map[int][]byte `json:"-"`
	// Repositories are the project's container registry repositories.
	Repositories []Repository `json:"-"`
}

// Member is one membership row.
type Member struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Job is one CI job.
type Job struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Repository is one container registry repository.
type Repository struct {
	ID       int    `json:"id"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// Fixture is an in-memory GitLab API. Add data with AddGroup and
// AddProject, then serve it with Server or Router. All methods are safe
// for concurrent use.
type Fixture struct {
	mu        sync.Mutex
	token     string
	pageSize  int
	groups    []Group
	projects  []Project
	requests  map[string]int
	failAll   map[string]bool
	failPages map[string]map[int]bool
}

// New creates an empty fixture with no token enforcement.
func New() *Fixture {
	return &Fixture{
		requests:  map[string]int{},
		failAll:   map[string]bool{},
		failPages: map[string]map[int]bool{},
	}
}

// SetToken makes the fixture reject requests that do not carry the given
// bearer token.
func (f *Fixture) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// SetPageSize overrides the page size requested by clients, so small data
// sets still span multiple pages.
func (f *Fixture) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = n
}

// AddGroup registers a group. Listing order follows insertion order.
func (f *Fixture) AddGroup(g Group) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, g)
}

// AddProject registers a project. Listing order follows insertion order.
func (f *Fixture) AddProject(p Project) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = append(f.projects, p)
}

// Fail makes every request to the given path (relative to /api/v4) answer
// HTTP 500.
func (f *Fixture) Fail(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll[path] = true
}

// FailPage makes only the given page of the given path answer HTTP 500.
func (f *Fixture) FailPage(path string, page int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPages[path] == nil {
		f.failPages[path] = map[int]bool{}
	}
	f.failPages[path][page] = true
}

// Requests returns how many requests the given path (relative to /api/v4)
// has received.
func (f *Fixture) Requests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

// TotalRequests returns how many API requests the fixture has received.
func (f *Fixture) TotalRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.requests {
		total += n
	}
	return total
}

// Server starts an httptest server for the fixture and closes it when the
// test ends.
func (f *Fixture) Server(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f.Router())
	t.Cleanup(srv.Close)
	return srv
}

// Router returns the fixture's HTTP handler.
func (f *Fixture) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v4", func(r chi.Router) {
		r.Use(f.observe)
		r.Get("/groups", f.listGroups)
		r.Get("/groups/{groupID}", f.getGroup)
		r.Get("/groups/{groupID}/subgroups", f.listSubgroups)
		r.Get("/groups/{groupID}/projects", f.listGroupProjects)
		r.Get("/projects/{projectID}", f.getProject)
		r.Get("/projects/{projectID}/members", f.listMembers)
		r.Get("/projects/{projectID}/members/all", f.listAllMembers)
		r.Get("/projects/{projectID}/jobs", f.listJobs)
		r.Get("/projects/{projectID}/jobs/{jobID}/artifacts", f.getArtifacts)
		r.Get("/projects/{projectID}/registry/repositories", f.listRepositories)
	})
	return r
}

// observe counts the request, enforces the token, and applies failure
// injection before the route handler runs.
func (f *Fixture) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v4")
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		f.mu.Lock()
		f.requests[path]++
		token := f.token
		injected := f.failAll[path] || f.failPages[path][page]
		f.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "401 Unauthorized"})
			return
		}
		if injected {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *Fixture) getGroup(w http.ResponseWriter, r *http.Request) {
	g, ok := f.findGroup(chiID(r, "groupID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Group Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (f *Fixture) listGroups(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	groups := append([]Group(nil), f.groups...)
	f.mu.Unlock()
	writePage(w, r, f.effectivePageSize(r), groups)
}

func (f *Fixture) listSubgroups(w http.ResponseWriter, r *http.Request) {
	id := chiID(r, "groupID")
	f.mu.Lock()
	var subs []Group
	for _, g := range f.groups {
		if g.ParentID == id {
			subs = append(subs, g)
		}
	}
	f.mu.Unlock()
	writePage(w, r, f.effectivePageSize(r), subs)
}

func (f *Fixture) listGroupProjects(w http.ResponseWriter, r *http.Request) {
	id := chiID(r, "groupID")
	f.mu.Lock()
	var projects []Project
	for _, p := range f.projects {
		if p.GroupID == id || slices.Contains(p.SharedWith, id) {
			projects = append(projects, p)
		}
	}
	f.mu.Unlock()
	writePage(w, r, f.effectivePageSize(r), projects)
}

func (f *Fixture) getProject(w http.ResponseWriter, r *http.Request) {
	p, ok := f.findProject(chiID(r, "projectID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (f *Fixture) listMembers(w http.ResponseWriter, r *http.Request) {
	p, ok := f.findProject(chiID(r, "projectID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}
	writePage(w, r, f.effectivePageSize(r), p.Members)
}

func (f *Fixture) listAllMembers(w http.ResponseWriter, r *http.Request) {
	p, ok := f.findProject(chiID(r, "projectID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}
	members := p.AllMembers
	if members == nil {
		members = p.Members
	}
	writePage(w, r, f.effectivePageSize(r), members)
}

func (f *Fixture) listJobs(w http.ResponseWriter, r *http.Request) {
	p, ok := f.findProject(chiID(r, "projectID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}
	scope := r.URL.Query().Get("scope")
	var jobs []Job
	for _, j := range p.Jobs {
		if scope == "" || j.Status == scope {
			jobs = append(jobs, j)
		}
	}
	writePage(w, r, f.effectivePageSize(r), jobs)
}

func (f *Fixture) getArtifacts(w http.ResponseWriter, r *http.Request) {
	p, ok := f.findProject(chiID(r, "projectID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}
	archive, ok := p.Artifacts[chiID(r, "jobID")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Not Found"})
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.WriteHeader(http.StatusOK)
	w.Write(archive)
}

func (f *Fixture) listRepositories(w http.ResponseWriter, r *http.Request) {
	p, ok := f.findProject(chiID(r, "projectID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}
	writePage(w, r, f.effectivePageSize(r), p.Repositories)
}

func (f *Fixture) findGroup(id int) (Group, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

func (f *Fixture) findProject(id int) (Project, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// effectivePageSize returns the page size to serve: the fixture override
// when set, otherwise the per_page the client requested.
func (f *Fixture) effectivePageSize(r *http.Request) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pageSize > 0 {
		return f.pageSize
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && n > 0 {
		return n
	}
	return 20
}

// writePage serves one page of items, setting X-Next-Page like GitLab:
// the next page number, or empty on the last page.
func writePage[T any](w http.ResponseWriter, r *http.Request, size int, items []T) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	lo := (page - 1) * size
	hi := lo + size
	if lo > len(items) {
		lo = len(items)
	}
	if hi > len(items) {
		hi = len(items)
	}
	if hi < len(items) {
		w.Header().Set("X-Next-Page", strconv.Itoa(page+1))
	} else {
		w.Header().Set("X-Next-Page", "")
	}
	window := items[lo:hi]
	if window == nil {
		window = []T{}
	}
	writeJSON(w, http.StatusOK, window)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func chiID(r *http.Request, key string) int {
	id, _ := strconv.Atoi(chi.URLParam(r, key))
	return id
}
