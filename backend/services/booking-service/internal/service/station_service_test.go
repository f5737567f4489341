package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/validate"
	"evcharge/backend/services/booking-service/internal/models"
)

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func validStationInput() StationInput {
	return StationInput{
		Name:          strPtr("  Indiranagar Hub "),
		Location:      strPtr("Bengaluru"),
		Type:          strPtr("Fast"),
		ConnectorType: strPtr("CCS2"),
		Power:         floatPtr(50),
	}
}

func newStationFixture(list ...*models.Station) (*StationService, *fakeStations, *fakeBookings) {
	stations := newFakeStations(list...)
	bookings := newFakeBookings()
	stations.bookings = bookings
	return NewStationService(stations, zap.NewNop()), stations, bookings
}

func TestCreateStationDefaults(t *testing.T) {
	svc, _, _ := newStationFixture()
	creator := &auth.User{ID: 7, Name: "Admin", Email: "admin@example.com", Role: auth.RoleAdmin}

	st, err := svc.Create(context.Background(), validStationInput(), creator)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ID)
	assert.Equal(t, "Indiranagar Hub", st.Name)
	assert.Equal(t, models.StationAvailable, st.Status)
	assert.Equal(t, models.DefaultPricePerKwh, st.PricePerKwh)
	assert.Equal(t, models.OperatingHours{Open: "00:00", Close: "23:59"}, st.OperatingHours)
	assert.Equal(t, []string{}, st.Amenities)
	assert.Equal(t, &models.Creator{ID: 7, Name: "Admin", Email: "admin@example.com"}, st.CreatedBy)
}

func TestCreateStationMissingFields(t *testing.T) {
	svc, _, _ := newStationFixture()

	_, err := svc.Create(context.Background(), StationInput{Name: strPtr("Hub"), Power: floatPtr(0)}, nil)
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Missing required fields: location, type, connectorType, power", verr.Message)
	assert.Equal(t, []string{"location", "type", "connectorType", "power"}, verr.Errors)
}

func TestCreateStationValidation(t *testing.T) {
	svc, _, _ := newStationFixture()
	in := validStationInput()
	in.Type = strPtr("Warp")
	in.Power = floatPtr(500)
	in.Amenities = &[]string{"WiFi", "Sauna"}
	in.Coordinates = &CoordinatesInput{Latitude: floatPtr(95), Longitude: floatPtr(10)}
	in.OperatingHours = &HoursInput{Open: "25:00"}

	_, err := svc.Create(context.Background(), in, nil)
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Validation failed", verr.Message)
	assert.Equal(t, "Invalid charger type. Must be one of: Slow, Fast, Rapid, Ultra-Fast", verr.Fields["type"])
	assert.Equal(t, "Power must be between 1 and 350 kW", verr.Fields["power"])
	assert.Equal(t, "Invalid amenity: Sauna", verr.Fields["amenities"])
	assert.Equal(t, "Latitude must be between -90 and 90", verr.Fields["coordinates.latitude"])
	assert.Equal(t, "Opening time must be in HH:MM format (24-hour)", verr.Fields["operatingHours.open"])
	assert.NotContains(t, verr.Fields, "operatingHours.close")
}

func TestUpdateStationPartial(t *testing.T) {
	svc, _, _ := newStationFixture(&models.Station{
		ID: 3, Name: "Hub", Location: "Pune", Type: "Fast", ConnectorType: "CCS2", Power: 50,
		Status: models.StationAvailable, PricePerKwh: 0.3, Amenities: []string{"WiFi"},
		Coordinates:    &models.Coordinates{Latitude: 18.5, Longitude: 73.8},
		OperatingHours: models.OperatingHours{Open: "06:00", Close: "22:00"},
	})

	st, err := svc.Update(context.Background(), 3, StationInput{
		PricePerKwh:    floatPtr(0.4),
		OperatingHours: &HoursInput{Close: "23:00"},
		Coordinates:    &CoordinatesInput{},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.4, st.PricePerKwh)
	assert.Equal(t, "Hub", st.Name)
	assert.Equal(t, []string{"WiFi"}, st.Amenities)
	assert.Equal(t, models.OperatingHours{Open: "06:00", Close: "23:00"}, st.OperatingHours)
	assert.Nil(t, st.Coordinates)

	_, err = svc.Update(context.Background(), 3, StationInput{Power: floatPtr(-1)})
	var verr *validate.Error
	assert.True(t, errors.As(err, &verr))

	_, err = svc.Update(context.Background(), 9, StationInput{})
	assert.Equal(t, ErrStationNotFound, err)
}

func TestUpdateStationStatus(t *testing.T) {
	svc, _, _ := newStationFixture(&models.Station{ID: 1, Name: "Hub", Status: models.StationAvailable})

	st, err := svc.UpdateStatus(context.Background(), 1, models.StationMaintenance)
	require.NoError(t, err)
	assert.Equal(t, models.StationMaintenance, st.Status)

	_, err = svc.UpdateStatus(context.Background(), 1, "Broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadRequest))
	assert.Equal(t, "Invalid status. Must be one of: Available, Occupied, Out of Service, Maintenance", err.Error())

	_, err = svc.UpdateStatus(context.Background(), 2, models.StationAvailable)
	assert.Equal(t, ErrStationNotFound, err)
}

func TestDeleteStation(t *testing.T) {
	svc, stations, bookings := newStationFixture(
		&models.Station{ID: 1, Name: "Busy"},
		&models.Station{ID: 2, Name: "Idle"},
	)
	bookings.seed(models.Booking{UserID: 1, StationID: stationPtr(1), Date: "2025-03-11", TimeSlot: "09:00-09:30",
		BookingStatus: models.BookingConfirmed, PaymentStatus: models.PaymentCompleted})
	bookings.seed(models.Booking{UserID: 1, StationID: stationPtr(2), Date: "2025-03-11", TimeSlot: "09:00-09:30",
		BookingStatus: models.BookingCancelled, PaymentStatus: models.PaymentRefunded})

	assert.Equal(t, ErrStationBusy, svc.Delete(context.Background(), 1))
	assert.Contains(t, stations.stations, int64(1))

	require.NoError(t, svc.Delete(context.Background(), 2))
	assert.NotContains(t, stations.stations, int64(2))

	assert.Equal(t, ErrStationNotFound, svc.Delete(context.Background(), 2))
}

func TestListStationsNearby(t *testing.T) {
	svc, _, _ := newStationFixture(
		&models.Station{ID: 1, Name: "Near", Status: models.StationAvailable,
			Coordinates: &models.Coordinates{Latitude: 12.9716, Longitude: 77.5946}},
		&models.Station{ID: 2, Name: "Far", Status: models.StationAvailable,
			Coordinates: &models.Coordinates{Latitude: 19.0760, Longitude: 72.8777}},
		&models.Station{ID: 3, Name: "Unmapped", Status: models.StationAvailable},
	)

	page, err := svc.List(context.Background(), ListStationsQuery{
		Latitude:  floatPtr(12.9800),
		Longitude: floatPtr(77.6000),
		RadiusKm:  floatPtr(5),
	})
	require.NoError(t, err)
	require.Len(t, page.Stations, 1)
	assert.Equal(t, "Near", page.Stations[0].Name)
	require.NotNil(t, page.Stations[0].DistanceKm)
	assert.InDelta(t, 1.1, *page.Stations[0].DistanceKm, 0.3)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 10, TotalPages: 1, TotalDocs: 1}, page.Pagination)
}

func TestListStationsBounds(t *testing.T) {
	svc, _, _ := newStationFixture(&models.Station{ID: 1, Status: models.StationAvailable})

	_, err := svc.List(context.Background(), ListStationsQuery{Latitude: floatPtr(91), Longitude: floatPtr(0)})
	assert.True(t, errors.Is(err, ErrBadRequest))

	page, err := svc.List(context.Background(), ListStationsQuery{Page: 2, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Pagination.Limit)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.True(t, page.Pagination.HasPrevPage)
	assert.Nil(t, page.Stations[0].DistanceKm)
}

func TestBoundingBox(t *testing.T) {
	box := boundingBox(0, 0, 111)
	assert.InDelta(t, -1, box.MinLat, 1e-9)
	assert.InDelta(t, 1, box.MaxLat, 1e-9)
	assert.InDelta(t, -1, box.MinLng, 1e-9)
	assert.InDelta(t, 1, box.MaxLng, 1e-9)

	polar := boundingBox(90, 10, 50)
	assert.Equal(t, -180.0, polar.MinLng)
	assert.Equal(t, 180.0, polar.MaxLng)
}
