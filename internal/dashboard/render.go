package dashboard

import (
	"fmt"

	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
)

// Result presentation for the two prediction branches.
const (
	TitleReal     = "✓ Real Image"
	TitleDeepfake = "⚠ Deepfake Detected"
	ColorReal     = "#10b981"
	ColorDeepfake = "#ef4444"
)

// DateLayout formats history dates.
const DateLayout = "Jan 2, 2006"

// FormatConfidence renders a [0,1] score as a percentage with two decimals.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.2f%%", c*100)
}

// RenderResult renders an upload result. The thumbnail comes from the
// user's own file; nothing is re-fetched.
func RenderResult(result models.DetectionResult, file *models.CandidateFile) models.ResultView {
	v := models.ResultView{
		Visible:            true,
		Title:              TitleDeepfake,
		TitleColor:         ColorDeepfake,
		Prediction:         string(result.Prediction),
		ConfidenceText:     FormatConfidence(result.Confidence),
		ProcessingTimeText: string(result.ProcessingTime),
	}
	if result.Prediction.IsReal() {
		v.Title = TitleReal
		v.TitleColor = ColorReal
	}
	if file != nil && len(file.Data) > 0 {
		v.ImageURL = file.DataURL()
	}
	return v
}

// RenderHistoryItem renders one history record.
func RenderHistoryItem(d models.Detection) models.HistoryItemView {
	item := models.HistoryItemView{
		ID:             d.ID,
		Filename:       d.Filename,
		Icon:           "⚠",
		Class:          "deepfake",
		Prediction:     string(d.Prediction),
		ConfidenceText: FormatConfidence(d.Confidence),
	}
	if d.Prediction.IsReal() {
		item.Icon = "✓"
		item.Class = "real"
	}
	if !d.CreatedAt.IsZero() {
		item.Date = d.CreatedAt.Format(DateLayout)
	}
	return item
}

// RenderHistory renders a history list; an empty list sets Empty.
func RenderHistory(detections []models.Detection) models.HistoryView {
	v := models.HistoryView{Items: make([]models.HistoryItemView, 0, len(detections))}
	for _, d := range detections {
		v.Items = append(v.Items, RenderHistoryItem(d))
	}
	v.Empty = len(v.Items) == 0
	return v
}

// RenderStats renders the statistics panel.
func RenderStats(s models.Stats) models.StatsView {
	return models.StatsView{
		TotalDetections:   s.TotalDetections,
		RealCount:         s.RealImages,
		DeepfakeCount:     s.DeepfakeImages,
		AvgConfidenceText: FormatConfidence(s.AverageConfidence),
	}
}
