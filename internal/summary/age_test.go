package summary

import (
	"testing"
	"time"
)

func TestAge(t *testing.T) {
	tests := []struct {
		name        string
		dateOfBirth string
		today       time.Time
		expected    string
	}{
		{
			name:        "Day before birthday",
			dateOfBirth: "2000-06-15",
			today:       time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC),
			expected:    "23",
		},
		{
			name:        "On birthday",
			dateOfBirth: "2000-06-15",
			today:       time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
			expected:    "24",
		},
		{
			name:        "Day after birthday",
			dateOfBirth: "2000-06-15",
			today:       time.Date(2024, time.June, 16, 0, 0, 0, 0, time.UTC),
			expected:    "24",
		},
		{
			name:        "RFC3339 date of birth",
			dateOfBirth: "2000-06-15T00:00:00Z",
			today:       time.Date(2024, time.June, 16, 0, 0, 0, 0, time.UTC),
			expected:    "24",
		},
		{
			name:        "Missing date of birth",
			dateOfBirth: "",
			today:       time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
			expected:    AgeUnknown,
		},
		{
			name:        "Unparseable date of birth",
			dateOfBirth: "not-a-date",
			today:       time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
			expected:    AgeUnknown,
		},
		{
			name:        "Birth in the future",
			dateOfBirth: "2030-01-01",
			today:       time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
			expected:    AgeUnknown,
		},
		{
			name:        "Newborn",
			dateOfBirth: "2024-06-01",
			today:       time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
			expected:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Age(tt.dateOfBirth, tt.today)
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
