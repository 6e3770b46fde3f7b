package dto

// DashboardResponse is the JSON projection of the dashboard for the current user.
type DashboardResponse struct {
	Role     string                   `json:"role"`
	Name     string                   `json:"name"`
	Sections []string                 `json:"sections"`
	Teacher  *TeacherDashboardPayload `json:"teacher,omitempty"`
	Student  *StudentDashboardPayload `json:"student,omitempty"`
}

// TeacherDashboardPayload mirrors the teacher table for one date.
type TeacherDashboardPayload struct {
	Date    string             `json:"date"`
	Total   int                `json:"total"`
	Present int                `json:"present"`
	Absent  int                `json:"absent"`
	Late    int                `json:"late"`
	Rows    []AttendanceRowDTO `json:"rows"`
}

// AttendanceRowDTO is one roster row.
type AttendanceRowDTO struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	RollNo    string `json:"rollNo"`
	Class     string `json:"class"`
	Status    string `json:"status"`
}

// StudentDashboardPayload carries a student's percentage and chart.
type StudentDashboardPayload struct {
	Percentage float64            `json:"percentage"`
	Total      int                `json:"total"`
	Present    int                `json:"present"`
	Late       int                `json:"late"`
	Absent     int                `json:"absent"`
	History    []AttendanceDayDTO `json:"history"`
}

// AttendanceDayDTO is one dated status with its chart value.
type AttendanceDayDTO struct {
	Date   string  `json:"date"`
	Label  string  `json:"label"`
	Status string  `json:"status"`
	Value  float64 `json:"value"`
}
