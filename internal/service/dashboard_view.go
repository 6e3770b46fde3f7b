package service

import (
	"time"

	"github.com/noah-isme/sma-attendance-portal/internal/models"
	"github.com/noah-isme/sma-attendance-portal/internal/navigation"
)

// DashboardView is the view state of one dashboard variant, selected once by role.
type DashboardView interface {
	Role() models.Role
	Profile() models.Profile
	Sections() []navigation.Section
}

// AttendanceCounts aggregates one date. Unmarked students count only toward Total.
type AttendanceCounts struct {
	Total   int
	Present int
	Absent  int
	Late    int
}

// AttendanceRow is one roster line of the teacher table.
type AttendanceRow struct {
	StudentID  string
	Name       string
	RollNo     string
	Class      string
	Status     string
	BadgeClass string
}

// TeacherView is the teacher dashboard state. Refresh replaces the snapshot
// fields wholesale; they are never patched in place.
type TeacherView struct {
	Teacher    models.Profile
	Date       string
	Students   []models.Profile
	Attendance []models.AttendanceRecord
	Counts     AttendanceCounts
	Rows       []AttendanceRow
	SyncedAt   time.Time
}

var teacherSections = []navigation.Section{
	navigation.SectionDashboard,
	navigation.SectionStudents,
	navigation.SectionReports,
	navigation.SectionAddStudent,
}

// NewTeacherView prepares an empty view for date.
func NewTeacherView(teacher models.Profile, date string) *TeacherView {
	return &TeacherView{Teacher: teacher, Date: date}
}

func (v *TeacherView) Role() models.Role              { return models.RoleTeacher }
func (v *TeacherView) Profile() models.Profile        { return v.Teacher }
func (v *TeacherView) Sections() []navigation.Section { return teacherSections }

// StudentSummary holds the aggregate shown on the student dashboard.
type StudentSummary struct {
	Total      int
	Present    int
	Late       int
	Absent     int
	Percentage float64
}

// ChartData is the bar chart dataset handed to the charting script.
type ChartData struct {
	Label  string    `json:"label"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Max    float64   `json:"max"`
}

// StudentView is the student dashboard state.
type StudentView struct {
	Student  models.Profile
	Records  []models.AttendanceRecord
	Summary  StudentSummary
	Chart    ChartData
	SyncedAt time.Time
}

var studentSections = []navigation.Section{navigation.SectionDashboard}

// NewStudentView prepares an empty view.
func NewStudentView(student models.Profile) *StudentView {
	return &StudentView{Student: student}
}

func (v *StudentView) Role() models.Role              { return models.RoleStudent }
func (v *StudentView) Profile() models.Profile        { return v.Student }
func (v *StudentView) Sections() []navigation.Section { return studentSections }

// BadgeClass maps a displayed status to its badge colours.
func BadgeClass(status string) string {
	switch models.AttendanceStatus(status) {
	case models.AttendanceStatusPresent:
		return "bg-green-100 text-green-800"
	case models.AttendanceStatusAbsent:
		return "bg-red-100 text-red-800"
	case models.AttendanceStatusLate:
		return "bg-yellow-100 text-yellow-800"
	default:
		return "bg-gray-100 text-gray-800"
	}
}
