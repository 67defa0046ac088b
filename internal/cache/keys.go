package cache

import (
	"sort"
	"strings"
)

// Entity type names used in refs
const (
	TypeOrganization = "Organization"
	TypeProject      = "Project"
	TypeTask         = "Task"
	TypeComment      = "Comment"
)

// Ref identifies one normalized entity
type Ref struct {
	Type string
	ID   string
}

func (r Ref) String() string {
	return r.Type + ":" + r.ID
}

// QueryKey identifies one cached query result: the operation plus its variables
type QueryKey struct {
	Op   string
	Vars string
}

func (k QueryKey) String() string {
	if k.Vars == "" {
		return k.Op
	}
	return k.Op + "(" + k.Vars + ")"
}

// NewKey builds a QueryKey with variables in a stable order
func NewKey(op string, vars map[string]string) QueryKey {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + vars[name]
	}
	return QueryKey{Op: op, Vars: strings.Join(parts, ",")}
}

// OrganizationsKey is the key of the GetOrganizations query
func OrganizationsKey() QueryKey {
	return NewKey("GetOrganizations", nil)
}

// ProjectsKey is the key of GetProjects for an organization
func ProjectsKey(organizationID string) QueryKey {
	return NewKey("GetProjects", map[string]string{"organizationId": organizationID})
}

// ProjectKey is the key of GetProject for a project within an organization
func ProjectKey(projectID, organizationID string) QueryKey {
	return NewKey("GetProject", map[string]string{"id": projectID, "organizationId": organizationID})
}
