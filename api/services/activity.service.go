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

type ActivityService struct {
	db        *db.Service
	publisher EventPublisher
	logger    *logrus.Logger
}

// NewActivityService returns a service that publishes change events
// through publisher. A nil logger discards output.
func NewActivityService(database *db.Service, publisher EventPublisher, logger *logrus.Logger) *ActivityService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ActivityService{db: database, publisher: publisher, logger: logger}
}

const activityColumns = `id, name, parent_id, level, created_at, updated_at`

func scanActivity(row interface{ Scan(...interface{}) error }) (*ontology.Activity, error) {
	var (
		activity             ontology.Activity
		parentID             sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&activity.ID, &activity.Name, &parentID, &activity.Level, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		activity.ParentID = &id
	}
	activity.CreatedAt = parseTime(createdAt)
	activity.UpdatedAt = parseTime(updatedAt)
	return &activity, nil
}

func getActivity(ctx context.Context, q db.Querier, id int64) (*ontology.Activity, error) {
	activity, err := scanActivity(q.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("activity", id)
	}
	if err != nil {
		return nil, wrapInternal("query activity", err)
	}
	return activity, nil
}

// Create inserts a taxonomy node under the optional parent. The level
// is derived from the parent and nodes at MaxActivityLevel take no
// children.
func (s *ActivityService) Create(ctx context.Context, req *ontology.CreateActivityRequest) (*ontology.Activity, error) {
	if err := shared.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	activity := &ontology.Activity{
		Name:      req.Name,
		ParentID:  req.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if req.ParentID != nil {
			parent, err := getActivity(ctx, tx, *req.ParentID)
			if err != nil {
				return err
			}
			if parent.Level >= ontology.MaxActivityLevel {
				return shared.Validation("cannot add child to level-%d node", parent.Level)
			}
			activity.Level = parent.Level + 1
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO activities (name, parent_id, level, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			activity.Name, activity.ParentID, activity.Level, formatTime(now), formatTime(now),
		)
		if err != nil {
			return err
		}
		activity.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, wrapInternal("create activity", err)
	}

	s.logger.WithFields(logrus.Fields{
		"activity_id": activity.ID,
		"level":       activity.Level,
	}).Info("Activity created")

	publishEvent(ctx, s.publisher, s.logger, shared.ResourceActivities, shared.EventTypeCreated, map[string]interface{}{
		"id":        activity.ID,
		"name":      activity.Name,
		"parent_id": activity.ParentID,
		"level":     activity.Level,
	})

	return activity, nil
}

// Get returns a single activity without its subtree.
func (s *ActivityService) Get(ctx context.Context, id int64) (*ontology.Activity, error) {
	return getActivity(ctx, s.db.DB, id)
}

// GetTree assembles the activity forest. With a nil rootID every
// parentless activity is a root; otherwise the named activity is the
// only root. Descent stops at MaxActivityLevel whatever storage holds,
// and each node reports the depth it was reached at.
func (s *ActivityService) GetTree(ctx context.Context, rootID *int64) ([]ontology.ActivityNode, error) {
	var roots []ontology.Activity

	if rootID != nil {
		root, err := getActivity(ctx, s.db.DB, *rootID)
		if err != nil {
			return nil, err
		}
		roots = []ontology.Activity{*root}
	} else {
		var err error
		roots, err = s.queryActivities(ctx, `SELECT `+activityColumns+` FROM activities WHERE parent_id IS NULL ORDER BY id`)
		if err != nil {
			return nil, err
		}
	}

	tree := make([]ontology.ActivityNode, 0, len(roots))
	for _, root := range roots {
		node, err := s.buildNode(ctx, root, root.Level)
		if err != nil {
			return nil, err
		}
		tree = append(tree, node)
	}

	s.logger.WithField("roots", len(tree)).Debug("Activity tree assembled")
	return tree, nil
}

func (s *ActivityService) buildNode(ctx context.Context, activity ontology.Activity, depth int) (ontology.ActivityNode, error) {
	node := ontology.ActivityNode{
		ID:       activity.ID,
		Name:     activity.Name,
		ParentID: activity.ParentID,
		Level:    depth,
		Children: []ontology.ActivityNode{},
	}
	if depth >= ontology.MaxActivityLevel {
		return node, nil
	}

	children, err := s.queryActivities(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE parent_id = ? ORDER BY id`, activity.ID)
	if err != nil {
		return node, err
	}
	for _, child := range children {
		childNode, err := s.buildNode(ctx, child, depth+1)
		if err != nil {
			return node, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

func (s *ActivityService) queryActivities(ctx context.Context, query string, args ...interface{}) ([]ontology.Activity, error) {
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapInternal("query activities", err)
	}
	defer rows.Close()

	var activities []ontology.Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, wrapInternal("scan activity", err)
		}
		activities = append(activities, *activity)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapInternal("iterate activities", err)
	}
	return activities, nil
}
