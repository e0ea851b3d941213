package constants

const (
	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// DateTimeFormat is used when printing timestamps to the terminal
	DateTimeFormat = "2006-01-02 15:04"
)
