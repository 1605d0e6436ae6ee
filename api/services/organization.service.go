package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"org-directory/db"
	"org-directory/pkg/logging"
	"org-directory/pkg/ontology"
	"org-directory/pkg/shared"

	"github.com/sirupsen/logrus"
)

const maxOrganizationName = 255

type OrganizationService struct {
	db        *db.Service
	publisher EventPublisher
	logger    *logrus.Logger
}

// NewOrganizationService returns a service that publishes change events
// through publisher. A nil logger discards output.
func NewOrganizationService(database *db.Service, publisher EventPublisher, logger *logrus.Logger) *OrganizationService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &OrganizationService{db: database, publisher: publisher, logger: logger}
}

const organizationSelect = `SELECT o.id, o.name, o.building_id, o.created_at, o.updated_at,
       b.id, b.address, b.latitude, b.longitude, b.created_at, b.updated_at
  FROM organizations o
  JOIN buildings b ON b.id = o.building_id`

const organizationCount = `SELECT COUNT(*)
  FROM organizations o
  JOIN buildings b ON b.id = o.building_id`

func scanOrganization(row interface{ Scan(...interface{}) error }) (*ontology.Organization, error) {
	var (
		org                                  ontology.Organization
		createdAt, updatedAt                 string
		buildingCreatedAt, buildingUpdatedAt string
	)
	err := row.Scan(
		&org.ID, &org.Name, &org.BuildingID, &createdAt, &updatedAt,
		&org.Building.ID, &org.Building.Address, &org.Building.Latitude, &org.Building.Longitude,
		&buildingCreatedAt, &buildingUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	org.CreatedAt = parseTime(createdAt)
	org.UpdatedAt = parseTime(updatedAt)
	org.Building.CreatedAt = parseTime(buildingCreatedAt)
	org.Building.UpdatedAt = parseTime(buildingUpdatedAt)
	org.Activities = []ontology.Activity{}
	org.Phones = []ontology.Phone{}
	return &org, nil
}

// queryOrganizations pages through organizations matching every
// condition, ordered by id, with building, activities and phones
// loaded. Conditions may reference o (organizations) and b (buildings).
func queryOrganizations(ctx context.Context, q db.Querier, conditions []string, args []interface{}, page shared.PageRequest) (shared.Page[ontology.Organization], error) {
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := q.QueryRowContext(ctx, organizationCount+where, args...).Scan(&total); err != nil {
		return shared.Page[ontology.Organization]{}, wrapInternal("count organizations", err)
	}

	pageArgs := append(append([]interface{}{}, args...), page.Limit(), page.Offset())
	rows, err := q.QueryContext(ctx, organizationSelect+where+` ORDER BY o.id LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return shared.Page[ontology.Organization]{}, wrapInternal("query organizations", err)
	}

	var orgs []ontology.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			rows.Close()
			return shared.Page[ontology.Organization]{}, wrapInternal("scan organization", err)
		}
		orgs = append(orgs, *org)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return shared.Page[ontology.Organization]{}, wrapInternal("iterate organizations", err)
	}

	if err := loadRelations(ctx, q, orgs); err != nil {
		return shared.Page[ontology.Organization]{}, err
	}
	return shared.NewPage(page, total, orgs), nil
}

func getOrganization(ctx context.Context, q db.Querier, id int64) (*ontology.Organization, error) {
	org, err := scanOrganization(q.QueryRowContext(ctx, organizationSelect+` WHERE o.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("organization", id)
	}
	if err != nil {
		return nil, wrapInternal("query organization", err)
	}

	orgs := []ontology.Organization{*org}
	if err := loadRelations(ctx, q, orgs); err != nil {
		return nil, err
	}
	return &orgs[0], nil
}

// loadRelations fills activities and phones for orgs in two queries.
func loadRelations(ctx context.Context, q db.Querier, orgs []ontology.Organization) error {
	if len(orgs) == 0 {
		return nil
	}

	index := make(map[int64]int, len(orgs))
	ids := make([]int64, len(orgs))
	for i := range orgs {
		index[orgs[i].ID] = i
		ids[i] = orgs[i].ID
	}
	in := placeholders(len(ids))

	rows, err := q.QueryContext(ctx,
		`SELECT oa.organization_id, a.id, a.name, a.parent_id, a.level, a.created_at, a.updated_at
		   FROM organization_activity oa
		   JOIN activities a ON a.id = oa.activity_id
		  WHERE oa.organization_id IN (`+in+`)
		  ORDER BY a.id`, int64Args(ids)...)
	if err != nil {
		return wrapInternal("query organization activities", err)
	}
	for rows.Next() {
		var (
			orgID                int64
			activity             ontology.Activity
			parentID             sql.NullInt64
			createdAt, updatedAt string
		)
		if err := rows.Scan(&orgID, &activity.ID, &activity.Name, &parentID, &activity.Level, &createdAt, &updatedAt); err != nil {
			rows.Close()
			return wrapInternal("scan organization activity", err)
		}
		if parentID.Valid {
			pid := parentID.Int64
			activity.ParentID = &pid
		}
		activity.CreatedAt = parseTime(createdAt)
		activity.UpdatedAt = parseTime(updatedAt)
		org := &orgs[index[orgID]]
		org.Activities = append(org.Activities, activity)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return wrapInternal("iterate organization activities", err)
	}

	rows, err = q.QueryContext(ctx,
		`SELECT id, number, organization_id, created_at, updated_at
		   FROM phones
		  WHERE organization_id IN (`+in+`)
		  ORDER BY id`, int64Args(ids)...)
	if err != nil {
		return wrapInternal("query organization phones", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			phone                ontology.Phone
			createdAt, updatedAt string
		)
		if err := rows.Scan(&phone.ID, &phone.Number, &phone.OrganizationID, &createdAt, &updatedAt); err != nil {
			return wrapInternal("scan organization phone", err)
		}
		phone.CreatedAt = parseTime(createdAt)
		phone.UpdatedAt = parseTime(updatedAt)
		org := &orgs[index[phone.OrganizationID]]
		org.Phones = append(org.Phones, phone)
	}
	if err := rows.Err(); err != nil {
		return wrapInternal("iterate organization phones", err)
	}
	return nil
}

func filterConditions(filter ontology.OrganizationFilter) ([]string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.BuildingID != nil {
		conditions = append(conditions, `o.building_id = ?`)
		args = append(args, *filter.BuildingID)
	}
	if filter.ActivityID != nil {
		conditions = append(conditions, `EXISTS (SELECT 1 FROM organization_activity oa
			WHERE oa.organization_id = o.id AND oa.activity_id = ?)`)
		args = append(args, *filter.ActivityID)
	}
	if filter.Name != nil && *filter.Name != "" {
		conditions = append(conditions, `instr(lower_unicode(o.name), lower_unicode(?)) > 0`)
		args = append(args, *filter.Name)
	}
	return conditions, args
}

// List returns organizations matching every filter that is set. Name
// matching is a case-insensitive substring test; the activity filter
// matches direct membership only.
func (s *OrganizationService) List(ctx context.Context, filter ontology.OrganizationFilter, page shared.PageRequest) (shared.Page[ontology.Organization], error) {
	conditions, args := filterConditions(filter)
	return queryOrganizations(ctx, s.db.DB, conditions, args, page)
}

// Get returns the organization with its building, activities and phones.
func (s *OrganizationService) Get(ctx context.Context, id int64) (*ontology.Organization, error) {
	return getOrganization(ctx, s.db.DB, id)
}

// Create inserts the organization, its phones and its activity links in
// one transaction. Activity ids that do not exist are dropped.
func (s *OrganizationService) Create(ctx context.Context, req *ontology.CreateOrganizationRequest) (*ontology.Organization, error) {
	if err := shared.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var orgID int64

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := getBuilding(ctx, tx, req.BuildingID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO organizations (name, building_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			req.Name, req.BuildingID, formatTime(now), formatTime(now),
		)
		if err != nil {
			return err
		}
		if orgID, err = result.LastInsertId(); err != nil {
			return err
		}

		if err := insertPhones(ctx, tx, orgID, req.Phones, now); err != nil {
			return err
		}
		return replaceActivities(ctx, tx, orgID, req.ActivityIDs)
	})
	if err != nil {
		return nil, wrapInternal("create organization", err)
	}

	org, err := getOrganization(ctx, s.db.DB, orgID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id": org.ID,
		"building_id":     org.BuildingID,
		"activities":      len(org.Activities),
		"phones":          len(org.Phones),
	}).Info("Organization created")

	publishEvent(ctx, s.publisher, s.logger, shared.ResourceOrganizations, shared.EventTypeCreated, organizationEventData(org))
	return org, nil
}

// phoneSet gives phone validation errors a phones[i] path.
type phoneSet struct {
	Phones []ontology.PhoneInput `json:"phones" validate:"dive"`
}

func validatePatch(req *ontology.UpdateOrganizationRequest) error {
	if req.Name.HasValue() {
		n := utf8.RuneCountInString(req.Name.Value)
		if n == 0 {
			return shared.Validation("field 'name' is required")
		}
		if n > maxOrganizationName {
			return shared.Validation("field 'name' must not exceed %d", maxOrganizationName)
		}
	}
	if req.BuildingID.HasValue() {
		if req.BuildingID.Value <= 0 {
			return shared.Validation("field 'building_id' must be greater than 0")
		}
	}
	if req.Phones.HasValue() {
		return shared.Validate(&phoneSet{Phones: req.Phones.Value})
	}
	return nil
}

// Update applies a patch. Omitted and null fields are untouched;
// activity_ids and phones replace the whole set when given a list, so []
// clears it. updated_at is always bumped.
func (s *OrganizationService) Update(ctx context.Context, id int64, req *ontology.UpdateOrganizationRequest) (*ontology.Organization, error) {
	if err := validatePatch(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var changed []string

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		var exists int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM organizations WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("organization", id)
		}
		if err != nil {
			return err
		}

		sets := []string{"updated_at = ?"}
		args := []interface{}{formatTime(now)}

		if req.Name.HasValue() {
			sets = append(sets, "name = ?")
			args = append(args, req.Name.Value)
			changed = append(changed, "name")
		}
		if req.BuildingID.HasValue() {
			if _, err := getBuilding(ctx, tx, req.BuildingID.Value); err != nil {
				return err
			}
			sets = append(sets, "building_id = ?")
			args = append(args, req.BuildingID.Value)
			changed = append(changed, "building_id")
		}

		args = append(args, id)
		if _, err := tx.ExecContext(ctx,
			`UPDATE organizations SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return err
		}

		if req.ActivityIDs.HasValue() {
			if err := replaceActivities(ctx, tx, id, req.ActivityIDs.Value); err != nil {
				return err
			}
			changed = append(changed, "activity_ids")
		}
		if req.Phones.HasValue() {
			if _, err := tx.ExecContext(ctx, `DELETE FROM phones WHERE organization_id = ?`, id); err != nil {
				return err
			}
			if err := insertPhones(ctx, tx, id, req.Phones.Value, now); err != nil {
				return err
			}
			changed = append(changed, "phones")
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal("update organization", err)
	}

	org, err := getOrganization(ctx, s.db.DB, id)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id": id,
		"fields":          changed,
	}).Info("Organization updated")

	data := organizationEventData(org)
	data["fields"] = changed
	publishEvent(ctx, s.publisher, s.logger, shared.ResourceOrganizations, shared.EventTypeUpdated, data)
	return org, nil
}

func insertPhones(ctx context.Context, tx *sql.Tx, orgID int64, phones []ontology.PhoneInput, now time.Time) error {
	if len(phones) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO phones (number, organization_id, created_at, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := formatTime(now)
	for _, phone := range phones {
		if _, err := stmt.ExecContext(ctx, phone.Number, orgID, ts, ts); err != nil {
			return err
		}
	}
	return nil
}

// replaceActivities sets the organization's activity links to the
// existing subset of ids.
func replaceActivities(ctx context.Context, tx *sql.Tx, orgID int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM organization_activity WHERE organization_id = ?`, orgID); err != nil {
		return err
	}

	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	args := append([]interface{}{orgID}, int64Args(ids)...)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO organization_activity (organization_id, activity_id)
		 SELECT ?, id FROM activities WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	return err
}

func organizationEventData(org *ontology.Organization) map[string]interface{} {
	activityIDs := make([]int64, len(org.Activities))
	for i, a := range org.Activities {
		activityIDs[i] = a.ID
	}
	phones := make([]string, len(org.Phones))
	for i, p := range org.Phones {
		phones[i] = p.Number
	}
	return map[string]interface{}{
		"id":           org.ID,
		"name":         org.Name,
		"building_id":  org.BuildingID,
		"activity_ids": activityIDs,
		"phones":       phones,
	}
}
