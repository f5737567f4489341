package models

import "time"

// Station statuses.
const (
	StationAvailable    = "Available"
	StationOccupied     = "Occupied"
	StationOutOfService = "Out of Service"
	StationMaintenance  = "Maintenance"
)

// Catalog values accepted for stations.
var (
	StationTypes    = []string{"Slow", "Fast", "Rapid", "Ultra-Fast"}
	ConnectorTypes  = []string{"Type 1 (J1772)", "Type 2 (Mennekes)", "CCS1", "CCS2", "CHAdeMO", "Tesla Supercharger", "GB/T"}
	StationStatuses = []string{StationAvailable, StationOccupied, StationOutOfService, StationMaintenance}
	Amenities       = []string{"WiFi", "Restroom", "Restaurant", "Shopping", "Parking", "Covered"}
)

// Defaults applied to new stations.
const (
	DefaultPricePerKwh = 0.25
	DefaultOpenTime    = "00:00"
	DefaultCloseTime   = "23:59"
)

// Coordinates locate a station.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OperatingHours bound the day a station is open.
type OperatingHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Creator is the embedded owner summary.
type Creator struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Station is a bookable charger.
type Station struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Location       string         `json:"location"`
	Type           string         `json:"type"`
	ConnectorType  string         `json:"connectorType"`
	Power          float64        `json:"power"`
	Status         string         `json:"status"`
	PricePerKwh    float64        `json:"pricePerKwh"`
	Coordinates    *Coordinates   `json:"coordinates,omitempty"`
	Amenities      []string       `json:"amenities"`
	OperatingHours OperatingHours `json:"operatingHours"`
	CreatedBy      *Creator       `json:"createdBy,omitempty"`
	DistanceKm     *float64       `json:"distanceKm,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Bookable reports whether new bookings may be placed on the station.
func (s *Station) Bookable() bool {
	return s.Status != StationOutOfService && s.Status != StationMaintenance
}

// StationFilter narrows station listings.
type StationFilter struct {
	Status   string
	Type     string
	Location string
	MinPower *float64
	MaxPower *float64
	Box      *BoundingBox
	Page     int
	Limit    int
}

// BoundingBox is a lat/lng rectangle.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	TotalDocs   int  `json:"totalDocs"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPagination computes page metadata for total rows.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:        page,
		Limit:       limit,
		TotalPages:  pages,
		TotalDocs:   total,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}
