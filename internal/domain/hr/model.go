// Package hr implements the HR Tool Server: employee lookups and
// department listings backed by Postgres.
package hr

import "time"

// Employee is the domain entity behind list_employees / get_employee.
// Salary and GovID are redacted in the tool-facing view unless the
// caller holds an unmasking role (hr-write or executive).
type Employee struct {
	ID         string
	Name       string
	Department string
	Title      string
	Email      string
	HireDate   time.Time
	Salary     float64
	GovID      string
}
