package service

import (
	"encoding/csv"
	"io"
	"strconv"

	"evcharge/backend/services/partnership-service/internal/models"
)

var csvHeader = []string{
	"ID", "Name", "Company", "Email", "Phone", "Property Type", "Address", "Parking Spaces",
	"Timeline", "Message", "Status", "Priority", "Assigned To", "Created At", "Updated At",
}

const csvTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// WriteCSV writes leads as a CSV document with a header row.
func WriteCSV(w io.Writer, leads []models.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, l := range leads {
		parking := ""
		if l.ParkingSpaces != nil {
			parking = strconv.Itoa(*l.ParkingSpaces)
		}
		assignee := ""
		if l.AssignedTo != nil {
			assignee = l.AssignedTo.Name
		}
		record := []string{
			strconv.FormatInt(l.ID, 10),
			l.Name,
			l.Company,
			l.Email,
			l.Phone,
			l.PropertyType,
			l.Address,
			parking,
			l.Timeline,
			l.Message,
			l.Status,
			l.Priority,
			assignee,
			l.CreatedAt.UTC().Format(csvTimeLayout),
			l.UpdatedAt.UTC().Format(csvTimeLayout),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
