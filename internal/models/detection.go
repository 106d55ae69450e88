// Package models contains the wire and view types of the deepfake detection dashboard.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Prediction is the outcome label reported by the detection backend.
type Prediction string

const (
	PredictionReal     Prediction = "REAL"
	PredictionDeepfake Prediction = "DEEPFAKE"
)

// IsReal reports whether the prediction selects the "real" branch.
// Every label other than REAL is presented as a deepfake.
func (p Prediction) IsReal() bool {
	return p == PredictionReal
}

// ProcessingTime is a display string. The backend sends either a string
// ("120ms") or a number of seconds (1.23); numbers render as "1.23s".
type ProcessingTime string

// UnmarshalJSON accepts a string, a number or null.
func (p *ProcessingTime) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*p = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = ProcessingTime(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("invalid processing_time %s: %w", raw, err)
	}
	*p = ProcessingTime(strconv.FormatFloat(f, 'f', 2, 64) + "s")
	return nil
}

// Timestamp decodes the backend's created_at values, which may or may not
// carry a zone offset.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses s using the layouts the backend is known to emit.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp: %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		// null or a non-string: leave zero
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// DetectionResult is the success payload of an upload.
type DetectionResult struct {
	DetectionID    string         `json:"detection_id,omitempty"`
	Prediction     Prediction     `json:"prediction"`
	Confidence     float64        `json:"confidence"`
	ProcessingTime ProcessingTime `json:"processing_time"`
	Filename       string         `json:"filename,omitempty"`
	Message        string         `json:"message,omitempty"`
}

// Detection is one stored detection record as listed in the history.
type Detection struct {
	ID             string         `json:"id"`
	Filename       string         `json:"filename"`
	Prediction     Prediction     `json:"prediction"`
	Confidence     float64        `json:"confidence"`
	ProcessingTime ProcessingTime `json:"processing_time,omitempty"`
	CreatedAt      Timestamp      `json:"created_at"`
}

// HistoryPage is one page of the user's detection history.
type HistoryPage struct {
	Detections  []Detection `json:"detections"`
	Total       int         `json:"total"`
	Pages       int         `json:"pages"`
	CurrentPage int         `json:"current_page"`
}

// Stats are the aggregate detection counts for the current user.
type Stats struct {
	TotalDetections   int     `json:"total_detections"`
	RealImages        int     `json:"real_images"`
	DeepfakeImages    int     `json:"deepfake_images"`
	AverageConfidence float64 `json:"average_confidence"`
}
