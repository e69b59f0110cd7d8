package services

import "strconv"

// formatTicketID renders a ticket id for audit resource fields.
func formatTicketID(id int64) string {
	return strconv.FormatInt(id, 10)
}
