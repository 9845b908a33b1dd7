package model

import "time"

// ReportStatus is the review state of a pothole report.
type ReportStatus string

const (
	// ReportStatusPending means the report is awaiting review.
	ReportStatusPending ReportStatus = "pending"
	// ReportStatusReviewed means the report has been reviewed by the civic body.
	ReportStatusReviewed ReportStatus = "reviewed"
	// ReportStatusFixed means the pothole has been fixed.
	ReportStatusFixed ReportStatus = "fixed"
)

// Valid reports whether s is a known report status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusReviewed, ReportStatusFixed:
		return true
	}
	return false
}

// Report is a citizen pothole report.
type Report struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Location    string       `json:"location"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Description string       `json:"description"`
	Status      ReportStatus `json:"status"`
	ImageURL    string       `json:"image_url"`
	ReportedAt  time.Time    `json:"reported_at"`
}

// ConstituencyType distinguishes assembly and parliamentary constituencies.
type ConstituencyType string

const (
	// ConstituencyTypeMLA is an assembly (MLA) constituency.
	ConstituencyTypeMLA ConstituencyType = "MLA"
	// ConstituencyTypeMP is a parliamentary (MP) constituency.
	ConstituencyTypeMP ConstituencyType = "MP"
)

// Constituency is an electoral constituency resolved from a location.
type Constituency struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Type  ConstituencyType `json:"type"`
	State string           `json:"state"`
}

// LeaderboardEntry is one row of the constituency leaderboard. Scores are
// computed by the reporting backend; the gateway only orders and displays.
type LeaderboardEntry struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Constituency  string           `json:"constituency"`
	Type          ConstituencyType `json:"type"`
	ReportsCount  int              `json:"reports_count"`
	ResolvedCount int              `json:"resolved_count"`
	Score         int              `json:"score"`
}
