package dto

type PresignRequestDTO struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	SizeBytes   int64  `json:"size_bytes" binding:"required"`
}

type PresignResponseDTO struct {
	FileID     string `json:"file_id"`
	StorageKey string `json:"storage_key"`
	URL        string `json:"url"`
}

type ConfirmRequestDTO struct {
	FileID    string `json:"file_id" binding:"required"`
	SHA256Hex string `json:"sha256_hex"`
}

type ConfirmResponseDTO struct {
	OK          bool   `json:"ok"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// RetentionPatchDTO accepts either the retained flag or its legacy inverse
// "within_window". Exactly one must be present.
type RetentionPatchDTO struct {
	Retained     *bool `json:"retained"`
	WithinWindow *bool `json:"within_window"`
}
