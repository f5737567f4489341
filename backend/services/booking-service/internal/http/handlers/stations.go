package handlers

import (
	"context"
	"net/http"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/booking-service/internal/models"
	"evcharge/backend/services/booking-service/internal/service"
)

// StationService is the charger directory used by the handlers.
type StationService interface {
	Create(ctx context.Context, in service.StationInput, creator *auth.User) (*models.Station, error)
	Get(ctx context.Context, id int64) (*models.Station, error)
	Update(ctx context.Context, id int64, in service.StationInput) (*models.Station, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*models.Station, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, q service.ListStationsQuery) (*service.StationPage, error)
}

// NewListStationsHandler handles GET /api/chargers.
func NewListStationsHandler(stations StationService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := service.ListStationsQuery{
			Status:   q.Get("status"),
			Type:     q.Get("type"),
			Location: q.Get("location"),
			Page:     httpx.IntQuery(r, "page", 1),
			Limit:    httpx.IntQuery(r, "limit", 10),
		}

		floats := []struct {
			key string
			dst **float64
		}{
			{"minPower", &query.MinPower},
			{"maxPower", &query.MaxPower},
			{"latitude", &query.Latitude},
			{"longitude", &query.Longitude},
			{"radius", &query.RadiusKm},
		}
		for _, f := range floats {
			v, err := httpx.FloatQuery(r, f.key)
			if err != nil {
				httpx.Fail(w, http.StatusBadRequest, err.Error())
				return
			}
			*f.dst = v
		}

		page, err := stations.List(r.Context(), query)
		if err != nil {
			errs.WriteWith(w, err, "Server error fetching chargers")
			return
		}

		list := page.Stations
		if list == nil {
			list = []models.Station{}
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"count":      len(list),
			"pagination": page.Pagination,
			"data":       list,
		})
	}
}

// NewGetStationHandler handles GET /api/chargers/{id}.
func NewGetStationHandler(stations StationService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			errs.Write(w, service.ErrStationNotFound)
			return
		}
		st, err := stations.Get(r.Context(), id)
		if err != nil {
			errs.WriteWith(w, err, "Server error fetching charger")
			return
		}
		httpx.Data(w, http.StatusOK, st)
	}
}

// NewCreateStationHandler handles POST /api/chargers.
func NewCreateStationHandler(stations StationService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.StationInput
		if err := httpx.Decode(r, &in); err != nil {
			errs.Write(w, err)
			return
		}
		user, _ := auth.UserFromContext(r.Context())

		st, err := stations.Create(r.Context(), in, user)
		if err != nil {
			errs.WriteWith(w, err, "Server error creating charger")
			return
		}
		httpx.OK(w, http.StatusCreated, map[string]interface{}{
			"message": "Charger created successfully",
			"data":    st,
		})
	}
}

// NewUpdateStationHandler handles PUT /api/chargers/{id}.
func NewUpdateStationHandler(stations StationService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			errs.Write(w, service.ErrStationNotFound)
			return
		}
		var in service.StationInput
		if err := httpx.Decode(r, &in); err != nil {
			errs.Write(w, err)
			return
		}

		st, err := stations.Update(r.Context(), id, in)
		if err != nil {
			errs.WriteWith(w, err, "Server error updating charger")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"message": "Charger updated successfully",
			"data":    st,
		})
	}
}

// NewUpdateStationStatusHandler handles PATCH /api/chargers/{id}/status.
func NewUpdateStationStatusHandler(stations StationService, errs *ErrorWriter) http.HandlerFunc {
	type request struct {
		Status string `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			errs.Write(w, service.ErrStationNotFound)
			return
		}
		var req request
		if err := httpx.Decode(r, &req); err != nil {
			errs.Write(w, err)
			return
		}

		st, err := stations.UpdateStatus(r.Context(), id, req.Status)
		if err != nil {
			errs.WriteWith(w, err, "Server error updating charger status")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"message": "Charger status updated successfully",
			"data":    st,
		})
	}
}

// NewDeleteStationHandler handles DELETE /api/chargers/{id}.
func NewDeleteStationHandler(stations StationService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			errs.Write(w, service.ErrStationNotFound)
			return
		}
		if err := stations.Delete(r.Context(), id); err != nil {
			errs.WriteWith(w, err, "Server error deleting charger")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{"message": "Charger deleted successfully"})
	}
}
