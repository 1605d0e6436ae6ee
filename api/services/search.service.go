package services

import (
	"context"

	"org-directory/db"
	"org-directory/pkg/logging"
	"org-directory/pkg/ontology"
	"org-directory/pkg/shared"

	"github.com/sirupsen/logrus"
)

// SearchService finds organizations by the location of their building.
type SearchService struct {
	db     *db.Service
	logger *logrus.Logger
}

// NewSearchService returns a read-only geographic search service. A nil
// logger discards output.
func NewSearchService(database *db.Service, logger *logrus.Logger) *SearchService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SearchService{db: database, logger: logger}
}

// Rectangle matches buildings inside the closed latitude and longitude
// intervals. An inverted interval matches nothing.
func (s *SearchService) Rectangle(ctx context.Context, req *ontology.RectangleSearchRequest, page shared.PageRequest) (shared.Page[ontology.Organization], error) {
	if err := shared.Validate(req); err != nil {
		return shared.Page[ontology.Organization]{}, err
	}

	conditions := []string{
		`b.latitude BETWEEN ? AND ?`,
		`b.longitude BETWEEN ? AND ?`,
	}
	args := []interface{}{*req.MinLat, *req.MaxLat, *req.MinLng, *req.MaxLng}

	result, err := queryOrganizations(ctx, s.db.DB, conditions, args, page)
	if err != nil {
		return result, err
	}

	s.logger.WithFields(logrus.Fields{
		"min_lat": *req.MinLat,
		"max_lat": *req.MaxLat,
		"min_lng": *req.MinLng,
		"max_lng": *req.MaxLng,
		"total":   result.Total,
	}).Debug("Rectangle search")
	return result, nil
}

// Radius matches buildings within radius_km of the center point.
func (s *SearchService) Radius(ctx context.Context, req *ontology.RadiusSearchRequest, page shared.PageRequest) (shared.Page[ontology.Organization], error) {
	if req.RadiusKm != nil && *req.RadiusKm <= 0 {
		return shared.Page[ontology.Organization]{}, shared.Validation("radius_km must be greater than 0")
	}
	if err := shared.Validate(req); err != nil {
		return shared.Page[ontology.Organization]{}, err
	}

	conditions := []string{`distance_km(?, ?, b.latitude, b.longitude) <= ?`}
	args := []interface{}{*req.Latitude, *req.Longitude, *req.RadiusKm}

	result, err := queryOrganizations(ctx, s.db.DB, conditions, args, page)
	if err != nil {
		return result, err
	}

	s.logger.WithFields(logrus.Fields{
		"latitude":  *req.Latitude,
		"longitude": *req.Longitude,
		"radius_km": *req.RadiusKm,
		"total":     result.Total,
	}).Debug("Radius search")
	return result, nil
}
