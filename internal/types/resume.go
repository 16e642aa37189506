package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-live/internal/ats"
)

// Resume is an uploaded resume file. It is referenced by Name when a host
// selects it as the review target.
type Resume struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	StoragePath string    `json:"storage_path"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	PublicURL   string    `json:"public_url"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ResumeAnalysis is the persisted ATS report for a resume.
type ResumeAnalysis struct {
	ID             uuid.UUID  `json:"id"`
	ResumeID       uuid.UUID  `json:"resume_id"`
	Report         ats.Report `json:"report"`
	ExtractedChars int        `json:"extracted_chars"`
	CreatedAt      time.Time  `json:"created_at"`
}
