package store

import "time"

// BuildRecord captures the result of a firmware build.
type BuildRecord struct {
	Chip         string    `json:"chip"`
	Pattern      string    `json:"pattern,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	Duration     string    `json:"duration"`
	FirmwarePath string    `json:"firmware_path,omitempty"`
	ArtifactHash string    `json:"artifact_hash,omitempty"`
	SizeBytes    int64     `json:"size_bytes,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// FlashRecord captures the result of a flash operation. Status holds
// the flash status string (success, failure, timeout,
// verification_failed).
type FlashRecord struct {
	Chip         string    `json:"chip"`
	Port         string    `json:"port"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	Duration     string    `json:"duration"`
	BytesWritten int64     `json:"bytes_written,omitempty"`
	Verified     bool      `json:"verified,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// BatchRecord summarizes one batch flash run.
type BatchRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Pattern    string    `json:"pattern,omitempty"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	TotalBytes int64     `json:"total_bytes,omitempty"`
	Duration   string    `json:"duration"`
	Errors     []string  `json:"errors,omitempty"`
}

// SerialLog tracks a serial logging session.
type SerialLog struct {
	Port      string    `json:"port"`
	BaudRate  int       `json:"baud_rate"`
	Timestamp time.Time `json:"timestamp"`
	LogFile   string    `json:"log_file"`
}
