package models

// Blob describes one stored upload.
type Blob struct {
	Key         string `json:"key"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	UploadedBy  string `json:"uploadedBy,omitempty"`
	CreatedAt   string `json:"createdAt"`
}
