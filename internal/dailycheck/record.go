package dailycheck

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/suppcheck/internal/constants"
	"github.com/julianstephens/suppcheck/internal/models"
)

// ErrMalformedRecord is returned when a stored value is not a usable daily record
var ErrMalformedRecord = errors.New("malformed daily record")

// wireRecord mirrors models.DailyRecord with pointers so absent fields can be
// told apart from zero values.
type wireRecord struct {
	Date   *string     `json:"date"`
	Checks *wireChecks `json:"checks"`
}

type wireChecks struct {
	Morning *bool `json:"morning"`
	Lunch   *bool `json:"lunch"`
	Dinner  *bool `json:"dinner"`
}

// EncodeRecord serializes a record in the stored layout:
// {"date":"YYYY-MM-DD","checks":{"morning":b,"lunch":b,"dinner":b}}
func EncodeRecord(rec models.DailyRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to serialize record: %w", err)
	}
	return string(data), nil
}

// DecodeRecord parses a stored value. Missing slot keys are filled with false
// and reported in repaired; a missing date or checks object, an unparseable
// date, or any type mismatch yields ErrMalformedRecord.
func DecodeRecord(raw string) (rec models.DailyRecord, repaired []models.TimeSlot, err error) {
	var w wireRecord
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return models.DailyRecord{}, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if w.Date == nil {
		return models.DailyRecord{}, nil, fmt.Errorf("%w: missing date", ErrMalformedRecord)
	}
	if _, err := time.Parse(constants.DateFormat, *w.Date); err != nil {
		return models.DailyRecord{}, nil, fmt.Errorf("%w: invalid date %q", ErrMalformedRecord, *w.Date)
	}
	if w.Checks == nil {
		return models.DailyRecord{}, nil, fmt.Errorf("%w: missing checks", ErrMalformedRecord)
	}

	rec.Date = *w.Date
	slots := map[models.TimeSlot]*bool{
		models.SlotMorning: w.Checks.Morning,
		models.SlotLunch:   w.Checks.Lunch,
		models.SlotDinner:  w.Checks.Dinner,
	}
	for _, slot := range models.Slots {
		v := slots[slot]
		if v == nil {
			repaired = append(repaired, slot)
			continue
		}
		rec.Checks = rec.Checks.With(slot, *v)
	}

	return rec, repaired, nil
}
