package summary

import (
	"strconv"
	"time"
)

// AgeUnknown is returned when a date of birth is missing or unparseable
const AgeUnknown = "N/A"

var dobLayouts = []string{"2006-01-02", time.RFC3339}

// Age computes a patient's age in whole years as of today. The year
// difference is decremented when today precedes this year's birthday.
// Missing or invalid input yields AgeUnknown rather than an error.
func Age(dateOfBirth string, today time.Time) string {
	if dateOfBirth == "" {
		return AgeUnknown
	}

	var dob time.Time
	var err error
	for _, layout := range dobLayouts {
		dob, err = time.Parse(layout, dateOfBirth)
		if err == nil {
			break
		}
	}
	if err != nil {
		return AgeUnknown
	}

	age := today.Year() - dob.Year()
	anniversary := time.Date(today.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, today.Location())
	if today.Before(anniversary) {
		age--
	}
	if age < 0 {
		return AgeUnknown
	}
	return strconv.Itoa(age)
}
