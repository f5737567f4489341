package models

import (
	"encoding/json"
	"time"
)

// Lead statuses.
const (
	StatusPending    = "pending"
	StatusContacted  = "contacted"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
)

// Lead priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DefaultSource tags leads from the public site form.
const DefaultSource = "website-footer"

// Catalog values accepted for leads.
var (
	Statuses      = []string{StatusPending, StatusContacted, StatusInProgress, StatusCompleted, StatusRejected}
	Priorities    = []string{PriorityLow, PriorityMedium, PriorityHigh}
	PropertyTypes = []string{"commercial", "residential", "retail", "hotel", "hospital", "office", "parking", "other"}
	Timelines     = []string{"immediate", "short", "medium", "long", ""}
)

var timelineText = map[string]string{
	"immediate": "Immediate (1-2 months)",
	"short":     "Short term (3-6 months)",
	"medium":    "Medium term (6-12 months)",
	"long":      "Long term (1+ years)",
}

var propertyTypeText = map[string]string{
	"commercial":  "Commercial Building",
	"residential": "Residential Complex",
	"retail":      "Shopping Center/Mall",
	"hotel":       "Hotel/Resort",
	"hospital":    "Hospital/Healthcare",
	"office":      "Office Complex",
	"parking":     "Parking Facility",
	"other":       "Other",
}

// Assignee is the admin a lead is assigned to.
type Assignee struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Lead is a partnership enquiry from a property owner.
type Lead struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Company       string     `json:"company,omitempty"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	PropertyType  string     `json:"propertyType"`
	Address       string     `json:"address"`
	ParkingSpaces *int       `json:"parkingSpaces,omitempty"`
	Timeline      string     `json:"timeline,omitempty"`
	Message       string     `json:"message,omitempty"`
	AgreeTerms    bool       `json:"agreeTerms"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	Source        string     `json:"source"`
	Notes         string     `json:"notes,omitempty"`
	AssignedTo    *Assignee  `json:"assignedTo,omitempty"`
	FollowUpDate  *time.Time `json:"followUpDate,omitempty"`
	IPAddress     string     `json:"-"`
	UserAgent     string     `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TimelineText is the human readable timeline.
func (l *Lead) TimelineText() string {
	if t, ok := timelineText[l.Timeline]; ok {
		return t
	}
	return "Not specified"
}

// PropertyTypeText is the human readable property type.
func (l *Lead) PropertyTypeText() string {
	if t, ok := propertyTypeText[l.PropertyType]; ok {
		return t
	}
	return l.PropertyType
}

// MarshalJSON adds the readable timeline and property type.
func (l Lead) MarshalJSON() ([]byte, error) {
	type plain Lead
	return json.Marshal(struct {
		plain
		TimelineText     string `json:"timelineText"`
		PropertyTypeText string `json:"propertyTypeText"`
	}{plain(l), l.TimelineText(), l.PropertyTypeText()})
}

// LeadFilter narrows lead listings.
type LeadFilter struct {
	Status       string
	PropertyType string
	Priority     string
	Search       string
	// SortColumn is a trusted column name.
	SortColumn string
	Ascending  bool
	Limit      int
	Offset     int
}

// LeadChanges carries admin edits. Nil fields are left untouched.
type LeadChanges struct {
	Status       *string
	Priority     *string
	Notes        *string
	FollowUpDate *time.Time
	AssignedTo   *int64
}

// Empty reports whether no field is set.
func (c LeadChanges) Empty() bool {
	return c.Status == nil && c.Priority == nil && c.Notes == nil && c.FollowUpDate == nil && c.AssignedTo == nil
}

// CountBy is one group of a stats breakdown.
type CountBy struct {
	Key   string `json:"_id"`
	Count int    `json:"count"`
}

// LeadStats summarises the lead table.
type LeadStats struct {
	StatusStats       []CountBy `json:"statusStats"`
	PropertyTypeStats []CountBy `json:"propertyTypeStats"`
	RecentSubmissions int       `json:"recentSubmissions"`
	TotalSubmissions  int       `json:"totalSubmissions"`
}
