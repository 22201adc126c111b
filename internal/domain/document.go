package domain

import "time"

type DocumentType string

const (
	DocumentTypeInsurancePolicy DocumentType = "INSURANCE_POLICY"
	DocumentTypeLegalContract   DocumentType = "LEGAL_CONTRACT"
	DocumentTypeHRPolicy        DocumentType = "HR_POLICY"
	DocumentTypeCompliance      DocumentType = "COMPLIANCE"
	DocumentTypeUnknown         DocumentType = "UNKNOWN"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeInsurancePolicy, DocumentTypeLegalContract, DocumentTypeHRPolicy, DocumentTypeCompliance, DocumentTypeUnknown:
		return true
	}
	return false
}

// Document is the metadata recorded for an ingested file. It does not change
// after creation; re-uploading the same file yields a new DocumentID.
type Document struct {
	DocumentID      string       `json:"document_id"`
	DocumentType    DocumentType `json:"document_type"`
	UploadTimestamp time.Time    `json:"upload_timestamp"`
	FileSize        int64        `json:"file_size"`
	PageCount       *int         `json:"page_count,omitempty"`
	CompanyName     *string      `json:"company_name,omitempty"`
}

// Chunk is a contiguous, sentence-aligned slice of a document's cleaned text.
type Chunk struct {
	ID           string       `json:"id"`
	ChunkText    string       `json:"chunk_text"`
	DocumentID   string       `json:"document_id"`
	ChunkID      int          `json:"chunk_id"`
	DocumentType DocumentType `json:"document_type"`
	CompanyName  *string      `json:"company_name,omitempty"`
	PageCount    *int         `json:"page_count,omitempty"`
}

type ProcessingStatus string

const (
	StatusPending ProcessingStatus = "PENDING"
	StatusReady   ProcessingStatus = "READY"
	StatusFailed  ProcessingStatus = "FAILED"
)

type DocumentSource string

const (
	SourceUpload DocumentSource = "upload"
	SourceRemote DocumentSource = "remote"
	SourceCLI    DocumentSource = "cli"
)

// DocumentStatus tracks background ingestion of a single document.
type DocumentStatus struct {
	DocumentID   string           `gorm:"type:text;primaryKey" json:"document_id"`
	Status       ProcessingStatus `gorm:"type:text;not null;index" json:"status"`
	Error        string           `gorm:"type:text;not null;default:''" json:"error,omitempty"`
	Source       DocumentSource   `gorm:"type:text;not null;default:''" json:"source"`
	DocumentType DocumentType     `gorm:"type:text;not null;default:'UNKNOWN'" json:"document_type"`
	FileSize     int64            `gorm:"not null;default:0" json:"file_size"`
	PageCount    *int             `json:"page_count,omitempty"`
	ChunkCount   int              `gorm:"not null;default:0" json:"chunk_count"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (DocumentStatus) TableName() string { return "document_statuses" }
