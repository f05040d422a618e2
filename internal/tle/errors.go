package tle

import "fmt"

// ParseError reports an element line pair rejected by checksum or column
// validation. Line is the 1-based input line of the offending element line,
// or 0 when the pair was validated outside of a text batch.
type ParseError struct {
	Line      int
	CatalogID int // 0 when the identifier itself could not be read
	Field     string
	Reason    string
}

func (e *ParseError) Error() string {
	msg := "tle parse"
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	if e.CatalogID > 0 {
		msg += fmt.Sprintf(" (catalog %d)", e.CatalogID)
	}
	if e.Field != "" {
		msg += ": " + e.Field
	}
	return msg + ": " + e.Reason
}

// NotFoundError reports a lookup miss.
type NotFoundError struct {
	CatalogID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog %d not found in TLE store", e.CatalogID)
}
