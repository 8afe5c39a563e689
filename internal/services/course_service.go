package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/events"
	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/roles"
)

// CourseView is the public projection of a course.
type CourseView struct {
	ID              int64               `json:"id,string"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Status          models.CourseStatus `json:"status"`
	InstructorID    *string             `json:"instructorId,omitempty"`
	InstructorName  string              `json:"instructorName"`
	InstructorEmail string              `json:"instructorEmail"`
}

// CourseInput carries the editable fields of a course.
type CourseInput struct {
	Title       string
	Description string
	IsDraft     bool
}

// Actor identifies the authenticated caller of a course or enrollment operation.
type Actor struct {
	UserID string
	Email  string
	Roles  []string
}

func (a Actor) has(role roles.Role) bool {
	return containsString(a.Roles, role.String())
}

// ReassignResult describes a completed instructor reassignment.
type ReassignResult struct {
	CourseID       int64  `json:"courseId,string"`
	InstructorID   string `json:"instructorId"`
	InstructorName string `json:"instructorName"`
}

// CourseService manages the course catalogue.
type CourseService struct {
	db        *gorm.DB
	roles     *RoleService
	publisher events.Publisher
	audit     *AuditService
	now       func() time.Time
}

// NewCourseService constructs a CourseService.
func NewCourseService(db *gorm.DB, roleService *RoleService, publisher events.Publisher, audit *AuditService) (*CourseService, error) {
	if db == nil {
		return nil, errors.New("course service: db is required")
	}
	if roleService == nil {
		return nil, errors.New("course service: role service is required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &CourseService{db: db, roles: roleService, publisher: publisher, audit: audit, now: utcNow}, nil
}

// ParseCourseID converts a path parameter into a course id.
func ParseCourseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrCourseNotFound
	}
	return id, nil
}

// ListPublished returns every published course.
func (s *CourseService) ListPublished(ctx context.Context) ([]CourseView, error) {
	return s.list(ctx, "status = ?", models.CoursePublished)
}

// ListDrafts returns every draft course.
func (s *CourseService) ListDrafts(ctx context.Context) ([]CourseView, error) {
	return s.list(ctx, "status = ?", models.CourseDraft)
}

// ListByInstructor returns courses owned by instructorID, optionally only drafts.
func (s *CourseService) ListByInstructor(ctx context.Context, instructorID string, draftsOnly bool) ([]CourseView, error) {
	if draftsOnly {
		return s.list(ctx, "instructor_id = ? AND status = ?", instructorID, models.CourseDraft)
	}
	return s.list(ctx, "instructor_id = ?", instructorID)
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id int64) (*CourseView, error) {
	course, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	view := toCourseView(course)
	return &view, nil
}

// Create stores a course owned by the caller.
func (s *CourseService) Create(ctx context.Context, actor Actor, input CourseInput) (*CourseView, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationError("title is required")
	}

	course := models.Course{
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Status:       models.CoursePublished,
		InstructorID: stringPtr(actor.UserID),
	}
	if input.IsDraft {
		course.Status = models.CourseDraft
	} else {
		now := s.now().UTC()
		course.PublishedAt = &now
	}

	if err := s.db.WithContext(ctx).Create(&course).Error; err != nil {
		return nil, fmt.Errorf("course service: create course: %w", err)
	}

	created, err := s.load(ctx, s.db, course.ID)
	if err != nil {
		return nil, err
	}
	if created.Status == models.CoursePublished {
		s.publishCourse(ctx, created)
	}
	view := toCourseView(created)
	return &view, nil
}

// Publish marks a course as published. Publishing a published course is a no-op.
func (s *CourseService) Publish(ctx context.Context, actor Actor, id int64) error {
	ctx = ensureContext(ctx)

	course, err := s.load(ctx, s.db, id)
	if err != nil {
		return err
	}
	if course.Status == models.CoursePublished {
		return nil
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", id).Updates(map[string]any{
		"status":       models.CoursePublished,
		"published_at": now,
	}).Error; err != nil {
		return fmt.Errorf("course service: publish course: %w", err)
	}
	course.Status = models.CoursePublished
	course.PublishedAt = &now

	s.publishCourse(ctx, course)
	s.record(ctx, actor, "course.publish", course.ID, nil)
	return nil
}

// Reassign hands a course to another identity holding the Instructor role.
func (s *CourseService) Reassign(ctx context.Context, actor Actor, courseID int64, instructorID string) (*ReassignResult, error) {
	ctx = ensureContext(ctx)

	var result *ReassignResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := s.load(ctx, tx, courseID)
		if err != nil {
			return err
		}

		var instructor models.User
		if err := tx.Where("id = ?", strings.TrimSpace(instructorID)).First(&instructor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInstructorNotFound
			}
			return fmt.Errorf("course service: load instructor: %w", err)
		}

		isInstructor, err := s.roles.WithTx(tx).IsInRole(ctx, instructor.ID, roles.Instructor.String())
		if err != nil {
			return err
		}
		if !isInstructor {
			return ErrNotInstructor
		}

		if err := tx.Model(&models.Course{}).Where("id = ?", course.ID).Update("instructor_id", instructor.ID).Error; err != nil {
			return fmt.Errorf("course service: reassign course: %w", err)
		}

		result = &ReassignResult{CourseID: course.ID, InstructorID: instructor.ID, InstructorName: instructor.FullName}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, "course.reassign", courseID, map[string]any{"instructorId": result.InstructorID})
	return result, nil
}

// Update edits title and description. Instructors may only edit their own courses.
func (s *CourseService) Update(ctx context.Context, actor Actor, id int64, input CourseInput) error {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return validationError("title is required")
	}

	course, err := s.load(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !actor.has(roles.Admin) && (course.InstructorID == nil || *course.InstructorID != actor.UserID) {
		return ErrCourseNotOwned
	}

	if err := s.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", id).Updates(map[string]any{
		"title":       title,
		"description": strings.TrimSpace(input.Description),
	}).Error; err != nil {
		return fmt.Errorf("course service: update course: %w", err)
	}
	return nil
}

// Delete removes a course and its enrollments.
func (s *CourseService) Delete(ctx context.Context, actor Actor, id int64) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.load(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.Enrollment{}).Error; err != nil {
			return fmt.Errorf("course service: delete enrollments: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Course{}).Error; err != nil {
			return fmt.Errorf("course service: delete course: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.record(ctx, actor, "course.delete", id, nil)
	return nil
}

func (s *CourseService) list(ctx context.Context, query string, args ...any) ([]CourseView, error) {
	var courses []models.Course
	if err := s.db.WithContext(ensureContext(ctx)).
		Preload("Instructor").
		Where(query, args...).
		Order("created_at ASC").
		Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("course service: list courses: %w", err)
	}

	views := make([]CourseView, 0, len(courses))
	for i := range courses {
		views = append(views, toCourseView(&courses[i]))
	}
	return views, nil
}

func (s *CourseService) load(ctx context.Context, db *gorm.DB, id int64) (*models.Course, error) {
	var course models.Course
	err := db.WithContext(ctx).Preload("Instructor").Where("id = ?", id).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("course service: load course: %w", err)
	}
	return &course, nil
}

func (s *CourseService) publishCourse(ctx context.Context, course *models.Course) {
	occurred := s.now().UTC()
	if course.PublishedAt != nil {
		occurred = *course.PublishedAt
	}
	payload := map[string]any{
		"courseId": strconv.FormatInt(course.ID, 10),
		"title":    course.Title,
	}
	if course.InstructorID != nil {
		payload["instructorId"] = *course.InstructorID
	}
	publishEvent(s.publisher, ctx, events.Event{
		Type:       events.TypeCoursePublished,
		Key:        strconv.FormatInt(course.ID, 10),
		Payload:    payload,
		OccurredAt: occurred,
	})
}

func (s *CourseService) record(ctx context.Context, actor Actor, action string, courseID int64, metadata map[string]any) {
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   stringPtr(actor.UserID),
		Actor:    actor.Email,
		Action:   action,
		Resource: "course:" + strconv.FormatInt(courseID, 10),
		Result:   AuditSuccess,
		Metadata: metadata,
	})
}

func toCourseView(course *models.Course) CourseView {
	view := CourseView{
		ID:           course.ID,
		Title:        course.Title,
		Description:  course.Description,
		Status:       course.Status,
		InstructorID: course.InstructorID,
	}
	if course.Instructor != nil {
		view.InstructorName = course.Instructor.FullName
		view.InstructorEmail = course.Instructor.Email
	}
	return view
}
