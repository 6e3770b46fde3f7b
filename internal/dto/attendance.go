package dto

// MarkAttendanceRequest marks one student on one date.
type MarkAttendanceRequest struct {
	StudentID string `form:"student_id" json:"studentId" validate:"required"`
	Status    string `form:"status" json:"status" validate:"required"`
	Date      string `form:"date" json:"date"`
}

// BulkPresentRequest marks the loaded roster present on Date.
type BulkPresentRequest struct {
	Date string `form:"date" json:"date"`
}

// EnrollStudentRequest is posted by the add-student form.
type EnrollStudentRequest struct {
	Name    string `form:"name" json:"name" validate:"required"`
	Email   string `form:"email" json:"email" validate:"required"`
	RollNo  string `form:"roll_no" json:"rollNo"`
	Class   string `form:"class" json:"class"`
	Contact string `form:"contact" json:"contact"`
}
