package service

import (
	"time"

	"shiksha-grid/internal/dto"
	"shiksha-grid/internal/model"
)

// ── model → dto 转换 ──

func toSubjectResponse(s *model.Subject) dto.SubjectResponse {
	return dto.SubjectResponse{ID: s.SubjectID, Code: s.Code, Name: s.Name}
}

func toClassroomResponse(c *model.Classroom) dto.ClassroomResponse {
	return dto.ClassroomResponse{ID: c.ClassroomID, Code: c.Code, Capacity: c.Capacity}
}

func toTeacherResponse(t *model.Teacher) dto.TeacherResponse {
	resp := dto.TeacherResponse{
		ID:         t.TeacherID,
		UserID:     t.UserID,
		Department: t.Department,
	}
	if t.User != nil {
		resp.FullName = t.User.FullName
		resp.Email = t.User.Email
	}
	return resp
}

func toSlotResponse(s *model.Slot) dto.SlotResponse {
	resp := dto.SlotResponse{
		ID:                s.SlotID,
		Subject:           dto.SubjectResponse{ID: s.SubjectID},
		Teacher:           dto.TeacherBrief{ID: s.TeacherID},
		DayOfWeek:         s.DayOfWeek,
		DayName:           dto.DayName(s.DayOfWeek),
		StartTime:         FormatClock(s.StartTime),
		EndTime:           FormatClock(s.EndTime),
		MaxCapacity:       s.MaxCapacity,
		CurrentEnrollment: s.CurrentEnrollment,
		SeatsLeft:         s.MaxCapacity - s.CurrentEnrollment,
		Notes:             s.Notes,
	}
	if s.Subject != nil {
		resp.Subject = toSubjectResponse(s.Subject)
	}
	if s.Teacher != nil && s.Teacher.User != nil {
		resp.Teacher.FullName = s.Teacher.User.FullName
	}
	if s.Classroom != nil {
		c := toClassroomResponse(s.Classroom)
		resp.Classroom = &c
	} else if s.ClassroomID != nil {
		resp.Classroom = &dto.ClassroomResponse{ID: *s.ClassroomID}
	}
	return resp
}

func toSlotResponses(slots []model.Slot) []dto.SlotResponse {
	result := make([]dto.SlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, toSlotResponse(&slots[i]))
	}
	return result
}

func toEnrollmentResponse(e *model.Enrollment) dto.EnrollmentResponse {
	resp := dto.EnrollmentResponse{
		ID:         e.EnrollmentID,
		StudentID:  e.StudentID,
		SlotID:     e.SlotID,
		SubjectID:  e.SubjectID,
		EnrolledAt: e.EnrolledAt.Format(time.RFC3339),
	}
	if e.Slot != nil {
		s := toSlotResponse(e.Slot)
		resp.Slot = &s
	}
	return resp
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.UserID,
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}
