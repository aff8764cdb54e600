package model

import "time"

// AdminSetting is a free-form key/value pair managed from the admin panel.
type AdminSetting struct {
	Key       string    `json:"key"`        // admin_settings.key
	Value     *string   `json:"value"`      // admin_settings.value
	UpdatedAt time.Time `json:"updated_at"` // admin_settings.updated_at
}

// DashboardStats are simple counts over the store.
type DashboardStats struct {
	Users       int64 `json:"users"`
	Listings    int64 `json:"listings"`
	Rentals     int64 `json:"rentals"`
	OpenTickets int64 `json:"open_tickets"`
}
