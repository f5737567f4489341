package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/middleware"
	"evcharge/backend/services/partnership-service/internal/models"
	"evcharge/backend/services/partnership-service/internal/service"
)

// LeadService is the lead workflow used by the handlers.
type LeadService interface {
	Submit(ctx context.Context, in service.SubmitInput) (*models.Lead, error)
	List(ctx context.Context, q service.ListQuery) (*service.LeadPage, error)
	Stats(ctx context.Context) (*models.LeadStats, error)
	Get(ctx context.Context, id int64) (*models.Lead, error)
	UpdateStatus(ctx context.Context, id int64, in service.StatusUpdate) (*models.Lead, error)
	Update(ctx context.Context, id int64, changes models.LeadChanges) (*models.Lead, error)
	Delete(ctx context.Context, id int64) error
	Export(ctx context.Context) ([]models.Lead, error)
}

var errInvalidFollowUp = &service.Error{Kind: service.ErrBadRequest, Message: "Invalid followUpDate"}

// NewSubmitHandler handles POST /api/partnerships.
func NewSubmitHandler(leads LeadService, errs *ErrorWriter) http.HandlerFunc {
	type request struct {
		Name          string   `json:"name"`
		Company       string   `json:"company"`
		Email         string   `json:"email"`
		Phone         string   `json:"phone"`
		PropertyType  string   `json:"propertyType"`
		Address       string   `json:"address"`
		ParkingSpaces looseInt `json:"parkingSpaces"`
		Timeline      string   `json:"timeline"`
		Message       string   `json:"message"`
		AgreeTerms    bool     `json:"agreeTerms"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := httpx.Decode(r, &req); err != nil {
			errs.Write(w, err, "")
			return
		}

		lead, err := leads.Submit(r.Context(), service.SubmitInput{
			Name:          req.Name,
			Company:       req.Company,
			Email:         req.Email,
			Phone:         req.Phone,
			PropertyType:  req.PropertyType,
			Address:       req.Address,
			ParkingSpaces: req.ParkingSpaces.intPtr(),
			Timeline:      req.Timeline,
			Message:       req.Message,
			AgreeTerms:    req.AgreeTerms,
			IPAddress:     middleware.ClientIP(r),
			UserAgent:     r.UserAgent(),
		})
		if err != nil {
			errs.Write(w, err, "Internal server error. Please try again later.")
			return
		}

		httpx.OK(w, http.StatusCreated, map[string]interface{}{
			"message": "Partnership request submitted successfully! We will contact you within 24 hours.",
			"data": map[string]interface{}{
				"id":           lead.ID,
				"name":         lead.Name,
				"email":        lead.Email,
				"propertyType": lead.PropertyType,
				"status":       lead.Status,
				"priority":     lead.Priority,
				"submittedAt":  lead.CreatedAt,
			},
		})
	}
}

// NewListHandler handles GET /api/partnerships.
func NewListHandler(leads LeadService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := leads.List(r.Context(), service.ListQuery{
			Status:       q.Get("status"),
			PropertyType: q.Get("propertyType"),
			Priority:     q.Get("priority"),
			Search:       strings.TrimSpace(q.Get("search")),
			SortBy:       q.Get("sortBy"),
			SortOrder:    q.Get("sortOrder"),
			Page:         httpx.IntQuery(r, "page", 1),
			Limit:        httpx.IntQuery(r, "limit", 10),
		})
		if err != nil {
			errs.Write(w, err, "Internal server error")
			return
		}

		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"data":       page.Leads,
			"pagination": page.Pagination,
			"filter":     page.Filter,
		})
	}
}

// NewStatsHandler handles GET /api/partnerships/stats.
func NewStatsHandler(leads LeadService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := leads.Stats(r.Context())
		if err != nil {
			errs.Write(w, err, "Internal server error")
			return
		}
		httpx.Data(w, http.StatusOK, stats)
	}
}

// NewGetHandler handles GET /api/partnerships/{id}.
func NewGetHandler(leads LeadService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			errs.Write(w, errInvalidID, "")
			return
		}
		lead, err := leads.Get(r.Context(), id)
		if err != nil {
			errs.Write(w, err, "Internal server error")
			return
		}
		httpx.Data(w, http.StatusOK, lead)
	}
}

// NewUpdateStatusHandler handles PATCH /api/partnerships/{id}/status.
func NewUpdateStatusHandler(leads LeadService, errs *ErrorWriter) http.HandlerFunc {
	type request struct {
		Status       string   `json:"status"`
		Notes        string   `json:"notes"`
		FollowUpDate string   `json:"followUpDate"`
		AssignedTo   looseInt `json:"assignedTo"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			errs.Write(w, errInvalidID, "")
			return
		}
		var req request
		if err := httpx.Decode(r, &req); err != nil {
			errs.Write(w, err, "")
			return
		}
		followUp, err := parseDate(req.FollowUpDate)
		if err != nil {
			errs.Write(w, errInvalidFollowUp, "")
			return
		}

		in := service.StatusUpdate{
			Status:       req.Status,
			FollowUpDate: followUp,
			AssignedTo:   req.AssignedTo.int64Ptr(),
		}
		if req.Notes != "" {
			in.Notes = &req.Notes
		}

		lead, err := leads.UpdateStatus(r.Context(), id, in)
		if err != nil {
			errs.Write(w, err, "Internal server error")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"message": "Partnership updated successfully",
			"data":    lead,
		})
	}
}

// NewUpdateHandler handles PATCH /api/partnerships/{id}. Only notes, followUpDate,
// assignedTo, priority and status are read from the body.
func NewUpdateHandler(leads LeadService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			errs.Write(w, errInvalidID, "")
			return
		}
		var body map[string]json.RawMessage
		if err := httpx.Decode(r, &body); err != nil {
			errs.Write(w, err, "")
			return
		}

		changes, err := leadChanges(body)
		if err != nil {
			errs.Write(w, err, "")
			return
		}

		lead, err := leads.Update(r.Context(), id, changes)
		if err != nil {
			errs.Write(w, err, "Internal server error")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"message": "Partnership updated successfully",
			"data":    lead,
		})
	}
}

// NewDeleteHandler handles DELETE /api/partnerships/{id}.
func NewDeleteHandler(leads LeadService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			errs.Write(w, errInvalidID, "")
			return
		}
		if err := leads.Delete(r.Context(), id); err != nil {
			errs.Write(w, err, "Internal server error")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"message": "Partnership request deleted successfully",
		})
	}
}

// NewExportHandler handles GET /api/partnerships/export/csv.
func NewExportHandler(leads LeadService, errs *ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := leads.Export(r.Context())
		if err != nil {
			errs.Write(w, err, "Error exporting data")
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=partnerships.csv")
		if err := service.WriteCSV(w, all); err != nil {
			errs.logger.Warn("csv export interrupted", zap.Error(err))
		}
	}
}

func leadChanges(body map[string]json.RawMessage) (models.LeadChanges, error) {
	var changes models.LeadChanges
	invalid := func(field string) error {
		return &service.Error{Kind: service.ErrBadRequest, Message: "Invalid " + field}
	}

	str := func(key string) (*string, error) {
		raw, ok := body[key]
		if !ok || string(raw) == "null" {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid(key)
		}
		return &s, nil
	}

	var err error
	if changes.Status, err = str("status"); err != nil {
		return changes, err
	}
	if changes.Priority, err = str("priority"); err != nil {
		return changes, err
	}
	if changes.Notes, err = str("notes"); err != nil {
		return changes, err
	}

	followUp, err := str("followUpDate")
	if err != nil {
		return changes, err
	}
	if followUp != nil {
		if changes.FollowUpDate, err = parseDate(*followUp); err != nil {
			return changes, errInvalidFollowUp
		}
	}

	if raw, ok := body["assignedTo"]; ok {
		var assignee looseInt
		if err := json.Unmarshal(raw, &assignee); err != nil {
			return changes, invalid("assignedTo")
		}
		changes.AssignedTo = assignee.int64Ptr()
	}
	return changes, nil
}
