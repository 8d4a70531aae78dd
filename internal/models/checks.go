package models

import "fmt"

// TimeSlot is one of the three daily check-in opportunities
type TimeSlot string

const (
	SlotMorning TimeSlot = "morning"
	SlotLunch   TimeSlot = "lunch"
	SlotDinner  TimeSlot = "dinner"
)

// Slots lists every slot in display order.
var Slots = []TimeSlot{SlotMorning, SlotLunch, SlotDinner}

// Valid reports whether s names one of the defined slots.
func (s TimeSlot) Valid() bool {
	switch s {
	case SlotMorning, SlotLunch, SlotDinner:
		return true
	}
	return false
}

// Label returns the capitalised slot name for display.
func (s TimeSlot) Label() string {
	switch s {
	case SlotMorning:
		return "Morning"
	case SlotLunch:
		return "Lunch"
	case SlotDinner:
		return "Dinner"
	default:
		return string(s)
	}
}

// ParseTimeSlot converts a user-supplied name into a TimeSlot.
func ParseTimeSlot(s string) (TimeSlot, error) {
	slot := TimeSlot(s)
	if !slot.Valid() {
		return "", fmt.Errorf("invalid slot: %q (expected morning, lunch or dinner)", s)
	}
	return slot, nil
}

// CheckState holds whether the supplement was taken after each meal.
// The struct shape guarantees all three slots are always present.
type CheckState struct {
	Morning bool `json:"morning"`
	Lunch   bool `json:"lunch"`
	Dinner  bool `json:"dinner"`
}

// Get returns the check for a slot. Unknown slots read as false.
func (c CheckState) Get(slot TimeSlot) bool {
	switch slot {
	case SlotMorning:
		return c.Morning
	case SlotLunch:
		return c.Lunch
	case SlotDinner:
		return c.Dinner
	}
	return false
}

// With returns a copy of c with slot set to v. Unknown slots leave c unchanged.
func (c CheckState) With(slot TimeSlot, v bool) CheckState {
	switch slot {
	case SlotMorning:
		c.Morning = v
	case SlotLunch:
		c.Lunch = v
	case SlotDinner:
		c.Dinner = v
	}
	return c
}

// DailyRecord is the persisted snapshot for a single day
type DailyRecord struct {
	Date   string     `json:"date"` // YYYY-MM-DD format
	Checks CheckState `json:"checks"`
}
