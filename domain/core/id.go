package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// ReportID identifies an archived report run
type ReportID ID

func (id ReportID) String() string { return ID(id).String() }

// NewReportID creates a time-ordered report identifier
func NewReportID() ReportID {
	return ReportID(NewID())
}

// ParseReportID parses a string into ReportID
func ParseReportID(s string) (ReportID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("report ID cannot be empty")
	}
	if strings.ContainsAny(s, `/\`) {
		return "", fmt.Errorf("report ID %q contains a path separator", s)
	}
	return ReportID(s), nil
}
