package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"org-directory/db"
	"org-directory/pkg/logging"
	"org-directory/pkg/ontology"
	"org-directory/pkg/shared"

	"github.com/sirupsen/logrus"
)

type BuildingService struct {
	db        *db.Service
	publisher EventPublisher
	logger    *logrus.Logger
}

// NewBuildingService returns a service that publishes change events
// through publisher. A nil logger discards output.
func NewBuildingService(database *db.Service, publisher EventPublisher, logger *logrus.Logger) *BuildingService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &BuildingService{db: database, publisher: publisher, logger: logger}
}

const buildingColumns = `id, address, latitude, longitude, created_at, updated_at`

func scanBuilding(row interface{ Scan(...interface{}) error }) (*ontology.Building, error) {
	var (
		building             ontology.Building
		createdAt, updatedAt string
	)
	if err := row.Scan(&building.ID, &building.Address, &building.Latitude, &building.Longitude, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	building.CreatedAt = parseTime(createdAt)
	building.UpdatedAt = parseTime(updatedAt)
	return &building, nil
}

func getBuilding(ctx context.Context, q db.Querier, id int64) (*ontology.Building, error) {
	building, err := scanBuilding(q.QueryRowContext(ctx,
		`SELECT `+buildingColumns+` FROM buildings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("building", id)
	}
	if err != nil {
		return nil, wrapInternal("query building", err)
	}
	return building, nil
}

// List returns buildings ordered by id.
func (s *BuildingService) List(ctx context.Context, page shared.PageRequest) (shared.Page[ontology.Building], error) {
	var total int64
	if err := s.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM buildings`).Scan(&total); err != nil {
		return shared.Page[ontology.Building]{}, wrapInternal("count buildings", err)
	}

	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+buildingColumns+` FROM buildings ORDER BY id LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset(),
	)
	if err != nil {
		return shared.Page[ontology.Building]{}, wrapInternal("query buildings", err)
	}
	defer rows.Close()

	var buildings []ontology.Building
	for rows.Next() {
		building, err := scanBuilding(rows)
		if err != nil {
			return shared.Page[ontology.Building]{}, wrapInternal("scan building", err)
		}
		buildings = append(buildings, *building)
	}
	if err := rows.Err(); err != nil {
		return shared.Page[ontology.Building]{}, wrapInternal("iterate buildings", err)
	}

	return shared.NewPage(page, total, buildings), nil
}

// Create inserts a building. A building already standing at the exact
// coordinates is a CONFLICT; so is a duplicate address, which only the
// schema checks.
func (s *BuildingService) Create(ctx context.Context, req *ontology.CreateBuildingRequest) (*ontology.Building, error) {
	if err := shared.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	building := &ontology.Building{
		Address:   req.Address,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		var existing int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM buildings WHERE latitude = ? AND longitude = ?`,
			building.Latitude, building.Longitude,
		).Scan(&existing)
		switch {
		case err == nil:
			return shared.Conflict("building already exists at (%g, %g)", building.Latitude, building.Longitude)
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO buildings (address, latitude, longitude, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			building.Address, building.Latitude, building.Longitude, formatTime(now), formatTime(now),
		)
		if err != nil {
			return err
		}
		building.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, wrapInternal("create building", err)
	}

	s.logger.WithFields(logrus.Fields{
		"building_id": building.ID,
		"latitude":    building.Latitude,
		"longitude":   building.Longitude,
	}).Info("Building created")

	publishEvent(ctx, s.publisher, s.logger, shared.ResourceBuildings, shared.EventTypeCreated, map[string]interface{}{
		"id":        building.ID,
		"address":   building.Address,
		"latitude":  building.Latitude,
		"longitude": building.Longitude,
	})

	return building, nil
}

// Get returns a single building or NOT_FOUND.
func (s *BuildingService) Get(ctx context.Context, id int64) (*ontology.Building, error) {
	return getBuilding(ctx, s.db.DB, id)
}
