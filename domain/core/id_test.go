package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestNewReportIDOrdering tests that report IDs sort by creation time
func TestNewReportIDOrdering(t *testing.T) {
	first := NewReportID()
	second := NewReportID()
	if first.String() >= second.String() {
		t.Errorf("Expected %s to sort before %s", first, second)
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseReportID tests report ID parsing
func TestParseReportID(t *testing.T) {
	tests := []struct {
		input    string
		expected ReportID
		hasError bool
	}{
		{"report-123", ReportID("report-123"), false},
		{"  padded  ", ReportID("padded"), false},
		{"", "", true},
		{"   ", "", true},
		{"../etc", "", true},
	}

	for _, test := range tests {
		result, err := ParseReportID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}
