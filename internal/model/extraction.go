package model

// ExtractedItem is one machine-extracted field group (e.g., a digitized menu
// line) awaiting review before publication. Items are transient: once
// approved they are copied into durable catalog storage and the confidence
// value is discarded.
type ExtractedItem struct {
	Label      string  `json:"label"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// OwnerItem builds an owner-supplied item. Owner data bypasses extraction
// scoring by convention of confidence 1.0.
func OwnerItem(label, value string) ExtractedItem {
	return ExtractedItem{Label: label, Value: value, Confidence: 1.0}
}
