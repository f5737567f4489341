package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"evcharge/backend/libs/validate"
	"evcharge/backend/services/partnership-service/internal/models"
	"evcharge/backend/services/partnership-service/internal/repository"
)

const (
	duplicateWindow = 24 * time.Hour
	recentWindow    = 7 * 24 * time.Hour

	defaultPageSize = 10
	maxPageSize     = 100
)

var (
	phonePattern  = regexp.MustCompile(`^[\+]?[1-9][\d]{0,15}$`)
	phoneStripper = strings.NewReplacer(" ", "", "\t", "", "-", "", "(", "", ")", "")

	sortColumns = map[string]string{
		"createdAt": "created_at",
		"updatedAt": "updated_at",
		"name":      "name",
		"priority":  "priority",
		"status":    "status",
	}
)

// LeadRepository defines storage contract used by the service.
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	RecentByEmail(ctx context.Context, email string, since time.Time) (*models.Lead, error)
	GetByID(ctx context.Context, id int64) (*models.Lead, error)
	List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, int, error)
	Update(ctx context.Context, id int64, changes models.LeadChanges) (*models.Lead, error)
	Stats(ctx context.Context, recentSince time.Time) (*models.LeadStats, error)
}

// SubmitInput is the public partnership form.
type SubmitInput struct {
	Name          string
	Company       string
	Email         string
	Phone         string
	PropertyType  string
	Address       string
	ParkingSpaces *int
	Timeline      string
	Message       string
	AgreeTerms    bool
	IPAddress     string
	UserAgent     string
}

// ListQuery is the admin listing request.
type ListQuery struct {
	Status       string `json:"status,omitempty"`
	PropertyType string `json:"propertyType,omitempty"`
	Priority     string `json:"priority,omitempty"`
	Search       string `json:"search,omitempty"`
	SortBy       string `json:"-"`
	SortOrder    string `json:"-"`
	Page         int    `json:"-"`
	Limit        int    `json:"-"`
}

// Pagination describes one page of leads.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// LeadPage is one page of a listing with the filter that produced it.
type LeadPage struct {
	Leads      []models.Lead
	Pagination Pagination
	Filter     ListQuery
}

// StatusUpdate moves a lead through the pipeline.
type StatusUpdate struct {
	Status       string
	Notes        *string
	FollowUpDate *time.Time
	AssignedTo   *int64
}

// LeadService owns partnership lead intake and triage.
type LeadService struct {
	repo    LeadRepository
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewLeadService builds LeadService.
func NewLeadService(repo LeadRepository, metrics *Metrics, logger *zap.Logger) *LeadService {
	return &LeadService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// Submit validates and stores a public form submission.
func (s *LeadService) Submit(ctx context.Context, in SubmitInput) (*models.Lead, error) {
	lead := &models.Lead{
		Name:          strings.TrimSpace(in.Name),
		Company:       strings.TrimSpace(in.Company),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:         strings.TrimSpace(in.Phone),
		PropertyType:  strings.TrimSpace(in.PropertyType),
		Address:       strings.TrimSpace(in.Address),
		ParkingSpaces: in.ParkingSpaces,
		Timeline:      strings.TrimSpace(in.Timeline),
		Message:       strings.TrimSpace(in.Message),
		AgreeTerms:    in.AgreeTerms,
		Status:        models.StatusPending,
		Source:        models.DefaultSource,
		IPAddress:     orUnknown(in.IPAddress),
		UserAgent:     orUnknown(in.UserAgent),
	}
	if err := validateLead(lead); err != nil {
		return nil, err
	}

	recent, err := s.repo.RecentByEmail(ctx, lead.Email, s.now().Add(-duplicateWindow))
	if err == nil {
		return nil, &DuplicateError{SubmissionID: recent.ID}
	}
	if !errors.Is(err, repository.ErrLeadNotFound) {
		return nil, err
	}

	lead.Priority = derivePriority(lead.PropertyType, lead.ParkingSpaces)
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, err
	}

	s.metrics.incSubmitted(lead.PropertyType, lead.Priority)
	s.logger.Info("partnership request received",
		zap.Int64("lead_id", lead.ID),
		zap.String("email", lead.Email),
		zap.String("priority", lead.Priority),
	)
	return lead, nil
}

// List returns a filtered, sorted page of leads.
func (s *LeadService) List(ctx context.Context, q ListQuery) (*LeadPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns["createdAt"]
	}

	leads, total, err := s.repo.List(ctx, models.LeadFilter{
		Status:       q.Status,
		PropertyType: q.PropertyType,
		Priority:     q.Priority,
		Search:       q.Search,
		SortColumn:   column,
		Ascending:    q.SortOrder == "asc",
		Limit:        q.Limit,
		Offset:       (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return nil, err
	}

	pages := (total + q.Limit - 1) / q.Limit
	return &LeadPage{
		Leads: leads,
		Pagination: Pagination{
			Page:    q.Page,
			Limit:   q.Limit,
			Total:   total,
			Pages:   pages,
			HasNext: q.Page < pages,
			HasPrev: q.Page > 1,
		},
		Filter: q,
	}, nil
}

// Stats summarises leads, counting the last seven days as recent.
func (s *LeadService) Stats(ctx context.Context) (*models.LeadStats, error) {
	return s.repo.Stats(ctx, s.now().Add(-recentWindow))
}

// Get returns one lead.
func (s *LeadService) Get(ctx context.Context, id int64) (*models.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrLeadNotFound) {
		return nil, ErrLeadNotFound
	}
	return lead, err
}

// UpdateStatus sets the status and optionally notes, follow-up date and assignee.
func (s *LeadService) UpdateStatus(ctx context.Context, id int64, in StatusUpdate) (*models.Lead, error) {
	status := in.Status
	return s.Update(ctx, id, models.LeadChanges{
		Status:       &status,
		Notes:        in.Notes,
		FollowUpDate: in.FollowUpDate,
		AssignedTo:   in.AssignedTo,
	})
}

// Update applies admin edits.
func (s *LeadService) Update(ctx context.Context, id int64, changes models.LeadChanges) (*models.Lead, error) {
	if changes.Empty() {
		return nil, ErrNoValidFields
	}
	if changes.Status != nil && !validate.OneOf(*changes.Status, models.Statuses) {
		return nil, ErrInvalidStatus
	}
	if changes.Priority != nil && !validate.OneOf(*changes.Priority, models.Priorities) {
		return nil, ErrInvalidPriority
	}
	if changes.Notes != nil && utf8.RuneCountInString(*changes.Notes) > 500 {
		return nil, ErrNotesTooLong
	}

	lead, err := s.repo.Update(ctx, id, changes)
	switch {
	case errors.Is(err, repository.ErrLeadNotFound):
		return nil, ErrLeadNotFound
	case errors.Is(err, repository.ErrAssigneeNotFound):
		return nil, ErrAssigneeNotFound
	case err != nil:
		return nil, err
	}
	s.logger.Info("partnership request updated", zap.Int64("lead_id", id), zap.String("status", lead.Status))
	return lead, nil
}

// Delete rejects the lead instead of removing the row.
func (s *LeadService) Delete(ctx context.Context, id int64) error {
	status, notes := models.StatusRejected, "Deleted by admin"
	_, err := s.Update(ctx, id, models.LeadChanges{Status: &status, Notes: &notes})
	return err
}

// Export returns every lead, newest first.
func (s *LeadService) Export(ctx context.Context) ([]models.Lead, error) {
	leads, _, err := s.repo.List(ctx, models.LeadFilter{SortColumn: "created_at"})
	return leads, err
}

func validateLead(l *models.Lead) error {
	v := validate.New()

	switch {
	case l.Name == "":
		v.Check(false, "name", "Name is required")
	case utf8.RuneCountInString(l.Name) > 100:
		v.Check(false, "name", "Name cannot exceed 100 characters")
	}
	v.Check(utf8.RuneCountInString(l.Company) <= 100, "company", "Company name cannot exceed 100 characters")

	switch {
	case l.Email == "":
		v.Check(false, "email", "Email is required")
	case !validate.Email(l.Email):
		v.Check(false, "email", "Please provide a valid email address")
	}

	switch {
	case l.Phone == "":
		v.Check(false, "phone", "Phone number is required")
	case !ValidPhone(l.Phone):
		v.Check(false, "phone", "Please provide a valid phone number")
	}

	switch {
	case l.PropertyType == "":
		v.Check(false, "propertyType", "Property type is required")
	case !validate.OneOf(l.PropertyType, models.PropertyTypes):
		v.Check(false, "propertyType", "Invalid property type")
	}

	switch {
	case l.Address == "":
		v.Check(false, "address", "Address is required")
	case utf8.RuneCountInString(l.Address) > 500:
		v.Check(false, "address", "Address cannot exceed 500 characters")
	}

	if p := l.ParkingSpaces; p != nil {
		v.Check(*p >= 1, "parkingSpaces", "Parking spaces must be at least 1")
		v.Check(*p <= 10000, "parkingSpaces", "Parking spaces cannot exceed 10,000")
	}
	v.Check(validate.OneOf(l.Timeline, models.Timelines), "timeline", "Invalid timeline")
	v.Check(utf8.RuneCountInString(l.Message) <= 1000, "message", "Message cannot exceed 1000 characters")
	v.Check(l.AgreeTerms, "agreeTerms", "You must agree to terms and conditions")

	return v.Err("Validation failed")
}

// ValidPhone reports whether phone, ignoring spaces, dashes and parentheses, is a plausible number.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phoneStripper.Replace(phone))
}

// derivePriority ranks a new lead. The first matching rule wins.
func derivePriority(propertyType string, parkingSpaces *int) string {
	switch {
	case propertyType == "hotel" || propertyType == "hospital":
		return models.PriorityHigh
	case parkingSpaces != nil && *parkingSpaces > 100:
		return models.PriorityHigh
	case propertyType == "commercial" || propertyType == "office":
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unknown"
	}
	return v
}
