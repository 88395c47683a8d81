package models

import (
	"strings"
	"time"
)

// Client roles.
const (
	RoleClient = "client"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

// Appointment statuses.
const (
	AppointmentBooked    = "booked"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no_show"
)

// Client is a salon customer record. The campaign engine consumes it
// read-only; the consent flags gate promotional sends per channel.
type Client struct {
	ID              int       `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Role            string    `json:"role"`
	EmailPromoOptIn bool      `json:"email_promo_opt_in"`
	SMSPromoOptIn   bool      `json:"sms_promo_opt_in"`
	CreatedAt       time.Time `json:"created_at"`
}

// FullName returns the client's display name.
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Appointment is a booked salon visit, used only for audience windowing.
type Appointment struct {
	ID        int       `json:"id"`
	ClientID  int       `json:"client_id"`
	StaffID   int       `json:"staff_id,omitempty"`
	Service   string    `json:"service,omitempty"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
}
