package dto

// ExportRequest captures GET /reports/export query parameters.
type ExportRequest struct {
	Format string `form:"format"`
	Date   string `form:"date"`
}

// WeeklyReportResponse lists the attendance rate of each school day.
type WeeklyReportResponse struct {
	From string         `json:"from"`
	To   string         `json:"to"`
	Days []DailyRateDTO `json:"days"`
}

// DailyRateDTO is the share of marked records that are Present on one date.
type DailyRateDTO struct {
	Date    string  `json:"date"`
	Label   string  `json:"label"`
	Marked  int     `json:"marked"`
	Present int     `json:"present"`
	Rate    float64 `json:"rate"`
}
