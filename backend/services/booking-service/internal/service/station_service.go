package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	geo "github.com/kellydunn/golang-geo"
	"go.uber.org/zap"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/validate"
	"evcharge/backend/services/booking-service/internal/models"
	"evcharge/backend/services/booking-service/internal/repository"
)

const (
	defaultPage     = 1
	defaultLimit    = 10
	maxLimit        = 100
	defaultRadiusKm = 10
	kmPerDegree     = 111.0
)

// StationRepository defines storage contract used by StationService.
// Delete fails with repository.ErrStationHasBookings while active bookings reference the station.
type StationRepository interface {
	Create(ctx context.Context, st *models.Station) error
	GetByID(ctx context.Context, id int64) (*models.Station, error)
	Update(ctx context.Context, st *models.Station) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.StationFilter) ([]models.Station, int, error)
}

// CoordinatesInput is the optional position in a station payload.
type CoordinatesInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// HoursInput is the optional opening window in a station payload.
type HoursInput struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// StationInput carries create and update payloads. Nil fields are left unchanged on update.
type StationInput struct {
	Name           *string           `json:"name"`
	Location       *string           `json:"location"`
	Type           *string           `json:"type"`
	ConnectorType  *string           `json:"connectorType"`
	Power          *float64          `json:"power"`
	PricePerKwh    *float64          `json:"pricePerKwh"`
	Status         *string           `json:"status"`
	Coordinates    *CoordinatesInput `json:"coordinates"`
	Amenities      *[]string         `json:"amenities"`
	OperatingHours *HoursInput       `json:"operatingHours"`
}

// ListStationsQuery is the parsed query of a station listing.
type ListStationsQuery struct {
	Status    string
	Type      string
	Location  string
	MinPower  *float64
	MaxPower  *float64
	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64
	Page      int
	Limit     int
}

// StationPage is one page of a station listing.
type StationPage struct {
	Stations   []models.Station
	Pagination models.Pagination
}

// StationService manages the charger directory.
type StationService struct {
	repo   StationRepository
	logger *zap.Logger
}

// NewStationService builds StationService.
func NewStationService(repo StationRepository, logger *zap.Logger) *StationService {
	return &StationService{repo: repo, logger: logger}
}

// Create validates in and stores a new station owned by creator.
func (s *StationService) Create(ctx context.Context, in StationInput, creator *auth.User) (*models.Station, error) {
	if missing := missingStationFields(in); len(missing) > 0 {
		return nil, &validate.Error{
			Message: "Missing required fields: " + strings.Join(missing, ", "),
			Errors:  missing,
			Fields:  map[string]string{},
		}
	}

	st := &models.Station{
		Status:      models.StationAvailable,
		PricePerKwh: models.DefaultPricePerKwh,
		Amenities:   []string{},
		OperatingHours: models.OperatingHours{
			Open:  models.DefaultOpenTime,
			Close: models.DefaultCloseTime,
		},
	}
	if creator != nil {
		st.CreatedBy = &models.Creator{ID: creator.ID, Name: creator.Name, Email: creator.Email}
	}
	applyStationInput(st, in)

	if err := validateStation(st); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}

	s.logger.Info("station created", zap.Int64("station_id", st.ID), zap.String("name", st.Name))
	return st, nil
}

// Get returns one station.
func (s *StationService) Get(ctx context.Context, id int64) (*models.Station, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStationErr(err)
	}
	return st, nil
}

// Update applies a partial update and re-validates the whole station.
func (s *StationService) Update(ctx context.Context, id int64, in StationInput) (*models.Station, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStationErr(err)
	}

	applyStationInput(st, in)
	if err := validateStation(st); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, st); err != nil {
		return nil, mapStationErr(err)
	}

	s.logger.Info("station updated", zap.Int64("station_id", st.ID))
	return st, nil
}

// UpdateStatus changes the operational status only.
func (s *StationService) UpdateStatus(ctx context.Context, id int64, status string) (*models.Station, error) {
	if !validate.OneOf(status, models.StationStatuses) {
		return nil, newError(ErrBadRequest, "Invalid status. Must be one of: "+strings.Join(models.StationStatuses, ", "))
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, mapStationErr(err)
	}

	s.logger.Info("station status changed", zap.Int64("station_id", id), zap.String("status", status))
	return s.Get(ctx, id)
}

// Delete removes a station that no active booking references.
func (s *StationService) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrStationHasBookings) {
		return ErrStationBusy
	}
	if err != nil {
		return mapStationErr(err)
	}
	s.logger.Info("station deleted", zap.Int64("station_id", id))
	return nil
}

// List returns a filtered page of stations. With a position, results are bounded to a box around
// it and carry their great-circle distance.
func (s *StationService) List(ctx context.Context, q ListStationsQuery) (*StationPage, error) {
	filter := models.StationFilter{
		Status:   q.Status,
		Type:     q.Type,
		Location: q.Location,
		MinPower: q.MinPower,
		MaxPower: q.MaxPower,
	}
	filter.Page, filter.Limit = pageBounds(q.Page, q.Limit)

	var origin *geo.Point
	if q.Latitude != nil && q.Longitude != nil {
		lat, lng := *q.Latitude, *q.Longitude
		if !validate.Between(lat, -90, 90) || !validate.Between(lng, -180, 180) {
			return nil, newError(ErrBadRequest, "Latitude must be between -90 and 90 and longitude between -180 and 180")
		}
		radius := float64(defaultRadiusKm)
		if q.RadiusKm != nil && *q.RadiusKm > 0 {
			radius = *q.RadiusKm
		}
		filter.Box = boundingBox(lat, lng, radius)
		origin = geo.NewPoint(lat, lng)
	}

	stations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if origin != nil {
		for i := range stations {
			c := stations[i].Coordinates
			if c == nil {
				continue
			}
			d := math.Round(origin.GreatCircleDistance(geo.NewPoint(c.Latitude, c.Longitude))*100) / 100
			stations[i].DistanceKm = &d
		}
	}

	return &StationPage{
		Stations:   stations,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

func boundingBox(lat, lng, radiusKm float64) *models.BoundingBox {
	dLat := radiusKm / kmPerDegree
	box := &models.BoundingBox{
		MinLat: lat - dLat,
		MaxLat: lat + dLat,
		MinLng: -180,
		MaxLng: 180,
	}
	if cos := math.Cos(lat * math.Pi / 180); cos > 1e-9 {
		dLng := radiusKm / (kmPerDegree * cos)
		box.MinLng, box.MaxLng = lng-dLng, lng+dLng
	}
	return box
}

func pageBounds(page, limit int) (int, int) {
	if page <= 0 {
		page = defaultPage
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func missingStationFields(in StationInput) []string {
	var missing []string
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		missing = append(missing, "name")
	}
	if in.Location == nil || strings.TrimSpace(*in.Location) == "" {
		missing = append(missing, "location")
	}
	if in.Type == nil || *in.Type == "" {
		missing = append(missing, "type")
	}
	if in.ConnectorType == nil || *in.ConnectorType == "" {
		missing = append(missing, "connectorType")
	}
	if in.Power == nil || *in.Power == 0 {
		missing = append(missing, "power")
	}
	return missing
}

func applyStationInput(st *models.Station, in StationInput) {
	if in.Name != nil {
		st.Name = strings.TrimSpace(*in.Name)
	}
	if in.Location != nil {
		st.Location = strings.TrimSpace(*in.Location)
	}
	if in.Type != nil {
		st.Type = *in.Type
	}
	if in.ConnectorType != nil {
		st.ConnectorType = *in.ConnectorType
	}
	if in.Power != nil {
		st.Power = *in.Power
	}
	if in.PricePerKwh != nil {
		st.PricePerKwh = *in.PricePerKwh
	}
	if in.Status != nil {
		st.Status = *in.Status
	}
	if c := in.Coordinates; c != nil {
		if c.Latitude != nil && c.Longitude != nil {
			st.Coordinates = &models.Coordinates{Latitude: *c.Latitude, Longitude: *c.Longitude}
		} else if c.Latitude == nil && c.Longitude == nil {
			st.Coordinates = nil
		}
	}
	if in.Amenities != nil {
		st.Amenities = append([]string{}, *in.Amenities...)
	}
	if h := in.OperatingHours; h != nil {
		if h.Open != "" {
			st.OperatingHours.Open = h.Open
		}
		if h.Close != "" {
			st.OperatingHours.Close = h.Close
		}
	}
}

func validateStation(st *models.Station) error {
	v := validate.New()
	v.Check(st.Name != "", "name", "Please add a charger name")
	v.Check(len([]rune(st.Name)) <= 100, "name", "Name cannot be more than 100 characters")
	v.Check(st.Location != "", "location", "Please add a location")
	v.Check(validate.OneOf(st.Type, models.StationTypes), "type",
		"Invalid charger type. Must be one of: "+strings.Join(models.StationTypes, ", "))
	v.Check(validate.OneOf(st.ConnectorType, models.ConnectorTypes), "connectorType",
		"Invalid connector type. Must be one of: "+strings.Join(models.ConnectorTypes, ", "))
	v.Check(validate.Between(st.Power, 1, 350), "power", "Power must be between 1 and 350 kW")
	v.Check(st.PricePerKwh >= 0, "pricePerKwh", "Price cannot be negative")
	v.Check(validate.OneOf(st.Status, models.StationStatuses), "status",
		"Invalid status. Must be one of: "+strings.Join(models.StationStatuses, ", "))
	if c := st.Coordinates; c != nil {
		v.Check(validate.Between(c.Latitude, -90, 90), "coordinates.latitude", "Latitude must be between -90 and 90")
		v.Check(validate.Between(c.Longitude, -180, 180), "coordinates.longitude", "Longitude must be between -180 and 180")
	}
	for _, a := range st.Amenities {
		v.Check(validate.OneOf(a, models.Amenities), "amenities", fmt.Sprintf("Invalid amenity: %s", a))
	}
	v.Check(validate.Clock(st.OperatingHours.Open), "operatingHours.open", "Opening time must be in HH:MM format (24-hour)")
	v.Check(validate.Clock(st.OperatingHours.Close), "operatingHours.close", "Closing time must be in HH:MM format (24-hour)")
	return v.Err("Validation failed")
}

func mapStationErr(err error) error {
	if errors.Is(err, repository.ErrStationNotFound) {
		return ErrStationNotFound
	}
	return err
}
