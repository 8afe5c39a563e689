package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/models"
)

// EnrollmentView is the projection returned by enrollment endpoints.
type EnrollmentView struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	FullName        string    `json:"fullName"`
	CourseID        int64     `json:"courseId,string"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Progress        int       `json:"progress"`
	CreatedAt       time.Time `json:"createdAt"`
	InstructorName  string    `json:"instructorName"`
	InstructorEmail string    `json:"instructorEmail"`
}

// EnrollmentService records which students take which courses.
type EnrollmentService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(db *gorm.DB, audit *AuditService) (*EnrollmentService, error) {
	if db == nil {
		return nil, errors.New("enrollment service: db is required")
	}
	return &EnrollmentService{db: db, audit: audit}, nil
}

// Enroll adds the student to a published course. Enrolling twice fails with
// ErrAlreadyEnrolled, including when two requests race.
func (s *EnrollmentService) Enroll(ctx context.Context, actor Actor, courseID int64) (*EnrollmentView, error) {
	ctx = ensureContext(ctx)

	var course models.Course
	if err := s.db.WithContext(ctx).Where("id = ? AND status = ?", courseID, models.CoursePublished).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("enrollment service: load course: %w", err)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", actor.UserID, courseID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("enrollment service: check enrollment: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadyEnrolled
	}

	enrollment := models.Enrollment{UserID: actor.UserID, CourseID: courseID}
	if err := s.db.WithContext(ctx).Create(&enrollment).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadyEnrolled.WithInternal(err)
		}
		return nil, fmt.Errorf("enrollment service: enroll: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   stringPtr(actor.UserID),
		Actor:    actor.Email,
		Action:   "enrollment.create",
		Resource: "course:" + strconv.FormatInt(courseID, 10),
		Result:   AuditSuccess,
	})

	views, err := s.query(ctx, "enrollments.id = ?", enrollment.ID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("enrollment service: enrollment %s vanished", enrollment.ID)
	}
	return &views[0], nil
}

// ListForStudent returns the caller's enrollments.
func (s *EnrollmentService) ListForStudent(ctx context.Context, userID string) ([]EnrollmentView, error) {
	return s.query(ctx, "enrollments.user_id = ?", userID)
}

// ListForCourse returns a course's enrollments when instructorID owns it.
func (s *EnrollmentService) ListForCourse(ctx context.Context, instructorID string, courseID int64) ([]EnrollmentView, error) {
	ctx = ensureContext(ctx)

	var owned int64
	if err := s.db.WithContext(ctx).Model(&models.Course{}).
		Where("id = ? AND instructor_id = ?", courseID, instructorID).
		Count(&owned).Error; err != nil {
		return nil, fmt.Errorf("enrollment service: check ownership: %w", err)
	}
	if owned == 0 {
		return nil, ErrCourseNotOwned
	}
	return s.query(ctx, "enrollments.course_id = ?", courseID)
}

// ListAll returns every enrollment.
func (s *EnrollmentService) ListAll(ctx context.Context) ([]EnrollmentView, error) {
	return s.query(ctx, "1 = 1")
}

func (s *EnrollmentService) query(ctx context.Context, where string, args ...any) ([]EnrollmentView, error) {
	var views []EnrollmentView
	err := s.db.WithContext(ensureContext(ctx)).
		Table("enrollments").
		Select(`enrollments.id, enrollments.user_id, students.full_name, enrollments.course_id,
			courses.title, courses.description, enrollments.progress, enrollments.created_at,
			COALESCE(instructors.full_name, '') AS instructor_name,
			COALESCE(instructors.email, '') AS instructor_email`).
		Joins("JOIN users students ON students.id = enrollments.user_id").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Joins("LEFT JOIN users instructors ON instructors.id = courses.instructor_id").
		Where(where, args...).
		Order("enrollments.created_at ASC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("enrollment service: list enrollments: %w", err)
	}
	if views == nil {
		views = []EnrollmentView{}
	}
	return views, nil
}
