package apitest

import (
	"net/http/httptest"
	"testing"

	"github.com/tgienger/phub/internal/models"
)

// Demo account seeded by SeedDemo
const (
	DemoUsername = "demo"
	DemoPassword = "demo"
)

// Seed is the data SeedDemo created
type Seed struct {
	User    models.User
	Org     models.Organization
	Project models.Project
	Tasks   []models.Task
}

// SeedDemo creates the demo user with one organization holding one project
func (b *Backend) SeedDemo() Seed {
	u := b.AddUser(DemoUsername, DemoPassword)
	o := b.AddOrganization(u.ID, "Acme")
	p := b.AddProject(o.ID, "Website Relaunch", models.ProjectActive)
	return Seed{
		User:    u,
		Org:     o,
		Project: p,
		Tasks: []models.Task{
			b.AddTask(p.ID, "Draft copy", models.TaskDone),
			b.AddTask(p.ID, "Design mockups", models.TaskInProgress),
			b.AddTask(p.ID, "Ship it", models.TaskTodo),
		},
	}
}

// Fixture is a seeded backend listening on a local port
type Fixture struct {
	Seed
	Backend  *Backend
	Server   *httptest.Server
	Endpoint string
}

// NewFixture starts a seeded backend that is closed when the test ends
func NewFixture(t testing.TB, opts ...Option) *Fixture {
	t.Helper()

	b := NewBackend(opts...)
	seed := b.SeedDemo()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)

	return &Fixture{
		Seed:     seed,
		Backend:  b,
		Server:   srv,
		Endpoint: srv.URL + "/graphql/",
	}
}
