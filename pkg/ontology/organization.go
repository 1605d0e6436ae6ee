package ontology

import (
	"time"
)

// MaxPhoneLength bounds OrganizationPhone.Number.
const MaxPhoneLength = 20

type Organization struct {
	ID         int64      `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	BuildingID int64      `json:"building_id" db:"building_id"`
	Building   Building   `json:"building"`
	Activities []Activity `json:"activities"`
	Phones     []Phone    `json:"phones"`
	CreatedAt  time.Time  `json:"-" db:"created_at"`
	UpdatedAt  time.Time  `json:"-" db:"updated_at"`
}

type Phone struct {
	ID             int64     `json:"id" db:"id"`
	Number         string    `json:"number" db:"number"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	CreatedAt      time.Time `json:"-" db:"created_at"`
	UpdatedAt      time.Time `json:"-" db:"updated_at"`
}

type PhoneInput struct {
	Number string `json:"number" validate:"required,min=1,max=20"`
}

type CreateOrganizationRequest struct {
	Name        string       `json:"name" validate:"required,min=1,max=255"`
	BuildingID  int64        `json:"building_id" validate:"required,gt=0"`
	ActivityIDs []int64      `json:"activity_ids"`
	Phones      []PhoneInput `json:"phones" validate:"dive"`
}

// UpdateOrganizationRequest is a patch: omitted and null fields are left
// alone, activity_ids and phones replace the whole set when given a list.
type UpdateOrganizationRequest struct {
	Name        Optional[string]       `json:"name"`
	BuildingID  Optional[int64]        `json:"building_id"`
	ActivityIDs Optional[[]int64]      `json:"activity_ids"`
	Phones      Optional[[]PhoneInput] `json:"phones"`
}

// IsEmpty reports whether the patch touches nothing.
func (r *UpdateOrganizationRequest) IsEmpty() bool {
	return !r.Name.HasValue() && !r.BuildingID.HasValue() && !r.ActivityIDs.HasValue() && !r.Phones.HasValue()
}

// OrganizationFilter is a conjunction; nil fields do not filter.
type OrganizationFilter struct {
	BuildingID *int64
	ActivityID *int64
	Name       *string
}

type RectangleSearchRequest struct {
	MinLat *float64 `json:"min_lat" validate:"required"`
	MaxLat *float64 `json:"max_lat" validate:"required"`
	MinLng *float64 `json:"min_lng" validate:"required"`
	MaxLng *float64 `json:"max_lng" validate:"required"`
}

type RadiusSearchRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	RadiusKm  *float64 `json:"radius_km" validate:"required,gt=0"`
}
