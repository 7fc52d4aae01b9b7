package scanning

import "github.com/shopspring/decimal"

// CheckData contains the fields read from a photo or scan of a paper check
type CheckData struct {
	Bank       string          `json:"bank"`
	Branch     string          `json:"branch"`
	Number     string          `json:"number"`
	ClientName string          `json:"client_name"`
	Amount     decimal.Decimal `json:"amount"`
	DueDate    string          `json:"due_date,omitempty"` // YYYY-MM-DD, empty for a sight check
}

// Scanner defines the interface for check scanning operations
type Scanner interface {
	// ScanCheck analyzes a check image/PDF and extracts its fields
	ScanCheck(imageData []byte, contentType string) (*CheckData, error)
	// Close closes the scanner and releases resources
	Close() error
}
