package dto

import (
	"time"

	"github.com/makkenzo/machine-license-api/internal/domain/license"
)

// MachineRequest is the body of both /api/activate and /api/validate.
type MachineRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
	MachineID  string `json:"machine_id" binding:"required"`
}

type LicenseStatusResponse struct {
	Status     license.Status `json:"status"`
	Message    string         `json:"message,omitempty"`
	ExpiryDate *time.Time     `json:"expiry_date,omitempty"`
}

// GenerateLicenseRequest carries the validity period as flat unit fields.
type GenerateLicenseRequest struct {
	CustomerName string `json:"customer_name" binding:"required"`
	Notes        string `json:"notes"`
	license.Duration
}

// UpdateLicenseRequest is a partial patch: absent fields are not touched.
type UpdateLicenseRequest struct {
	LicenseKey string            `json:"license_key" binding:"required"`
	Extend     *license.Duration `json:"extend"`
	SetActive  *bool             `json:"set_active"`
	Notes      *string           `json:"notes"`
}

type UpdateLicenseResponse struct {
	Status  string           `json:"status"`
	License *license.License `json:"license"`
}

type DeleteLicenseRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
}

type StatsResponse = license.Stats
