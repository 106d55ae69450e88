package models

// StatusKind selects the styling of a status region.
type StatusKind string

const (
	StatusNone    StatusKind = ""
	StatusLoading StatusKind = "loading"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// StatusView is an inline status/message region.
type StatusView struct {
	Kind StatusKind `json:"kind"`
	Text string     `json:"text"`
}

// ResultView is the rendered outcome of the latest successful upload.
type ResultView struct {
	Visible            bool   `json:"visible"`
	Title              string `json:"title"`
	TitleColor         string `json:"titleColor"`
	Prediction         string `json:"prediction"`
	ConfidenceText     string `json:"confidenceText"`
	ProcessingTimeText string `json:"processingTimeText"`
	ImageURL           string `json:"imageUrl,omitempty"`
}

// HistoryItemView is one rendered history entry.
type HistoryItemView struct {
	ID             string `json:"id"`
	Filename       string `json:"filename"`
	Icon           string `json:"icon"`
	Class          string `json:"class"`
	Prediction     string `json:"prediction"`
	ConfidenceText string `json:"confidenceText"`
	Date           string `json:"date"`
}

// HistoryView is the rendered history list.
type HistoryView struct {
	Items   []HistoryItemView `json:"items"`
	Empty   bool              `json:"empty"`
	Message StatusView        `json:"message"`
}

// StatsView is the rendered statistics panel.
type StatsView struct {
	TotalDetections   int    `json:"totalDetections"`
	RealCount         int    `json:"realCount"`
	DeepfakeCount     int    `json:"deepfakeCount"`
	AvgConfidenceText string `json:"avgConfidenceText"`
}

// NavView holds navigation-bar visibility.
type NavView struct {
	Login     bool `json:"login"`
	Register  bool `json:"register"`
	Dashboard bool `json:"dashboard"`
	Logout    bool `json:"logout"`
}

// DashboardView is a snapshot of everything the dashboard displays.
// Version grows with every published change; a snapshot with a lower
// Version than one already shown is stale.
type DashboardView struct {
	Version          uint64      `json:"version"`
	UserDisplay      string      `json:"userDisplay"`
	ActiveTab        string      `json:"activeTab"`
	Upload           StatusView  `json:"upload"`
	Result           ResultView  `json:"result"`
	History          HistoryView `json:"history"`
	Stats            StatsView   `json:"stats"`
	Settings         StatusView  `json:"settings"`
	UploadInProgress bool        `json:"uploadInProgress"`
	SelectedFile     string      `json:"selectedFile,omitempty"`
}
