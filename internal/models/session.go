package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadType names the ingestion path of an upload session.
type UploadType string

const (
	UploadManual   UploadType = "manual"
	UploadCSV      UploadType = "csv"
	UploadOCR      UploadType = "ocr"
	UploadUsersCSV UploadType = "users-csv"
	UploadUsersOCR UploadType = "users-ocr"
)

// UploadStatus tracks an upload session.
type UploadStatus string

const (
	UploadProcessing UploadStatus = "processing"
	UploadCompleted  UploadStatus = "completed"
	UploadFailed     UploadStatus = "failed"
)

// UploadSession records one import run.
type UploadSession struct {
	ID               uuid.UUID    `json:"id"`
	Type             UploadType   `json:"type"`
	Status           UploadStatus `json:"status"`
	FileName         string       `json:"fileName,omitempty"`
	TotalRecords     int          `json:"totalRecords"`
	ProcessedRecords int          `json:"processedRecords"`
	ErrorMessage     string       `json:"errorMessage,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// User is a dashboard operator account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	Role         string    `json:"role"`
	Approved     bool      `json:"approved"`
	CreatedAt    time.Time `json:"createdAt"`
}

// User roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// IsAdmin reports whether the user may approve other accounts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
