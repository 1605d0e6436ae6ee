package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"org-directory/db"
	"org-directory/pkg/ontology"
	"org-directory/pkg/shared"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*shared.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Subject
	}
	return out
}

type fixture struct {
	db            *db.Service
	publisher     *recordingPublisher
	activities    *ActivityService
	buildings     *BuildingService
	organizations *OrganizationService
	search        *SearchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	config := db.DefaultConfig()
	config.DBPath = filepath.Join(t.TempDir(), "directory.db")
	database, err := db.New(config)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	publisher := &recordingPublisher{}
	return &fixture{
		db:            database,
		publisher:     publisher,
		activities:    NewActivityService(database, publisher, nil),
		buildings:     NewBuildingService(database, publisher, nil),
		organizations: NewOrganizationService(database, publisher, nil),
		search:        NewSearchService(database, nil),
	}
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.DB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func (f *fixture) building(t *testing.T, address string, lat, lng float64) *ontology.Building {
	t.Helper()
	b, err := f.buildings.Create(context.Background(), &ontology.CreateBuildingRequest{
		Address:   address,
		Latitude:  &lat,
		Longitude: &lng,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) activity(t *testing.T, name string, parent *ontology.Activity) *ontology.Activity {
	t.Helper()
	req := &ontology.CreateActivityRequest{Name: name}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	a, err := f.activities.Create(context.Background(), req)
	require.NoError(t, err)
	return a
}

func (f *fixture) organization(t *testing.T, name string, buildingID int64, activityIDs []int64, phones ...string) *ontology.Organization {
	t.Helper()
	req := &ontology.CreateOrganizationRequest{
		Name:        name,
		BuildingID:  buildingID,
		ActivityIDs: activityIDs,
	}
	for _, p := range phones {
		req.Phones = append(req.Phones, ontology.PhoneInput{Number: p})
	}
	org, err := f.organizations.Create(context.Background(), req)
	require.NoError(t, err)
	return org
}

func requireCode(t *testing.T, err error, code shared.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var appErr *shared.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, appErr.Error())
}

func ptr[T any](v T) *T {
	return &v
}

func firstPage() shared.PageRequest {
	return shared.NewPageRequest(1, 10)
}
