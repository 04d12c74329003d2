package library

// Chapter is the change-detection view of one imported file: its path and
// the modification time (unix seconds) recorded at import.
type Chapter struct {
	File     string `json:"file"`
	Modified int64  `json:"modified"`
}
