package domain

import "strings"

// CustomerProfile is immutable reference data owned by the customer
// directory; the pipeline never writes it.
type CustomerProfile struct {
	Email  string
	Name   string
	Age    int
	Gender string
}

// FirstName returns the first whitespace-delimited token of the customer
// name, or fallback when the name is empty.
func (c *CustomerProfile) FirstName(fallback string) string {
	fields := strings.Fields(c.Name)
	if len(fields) == 0 {
		return fallback
	}
	return fields[0]
}
