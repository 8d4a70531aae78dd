package constants

const (
	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// DisplayDateFormat is how today's date is shown to the user
	DisplayDateFormat = "Monday, January 2"
)
