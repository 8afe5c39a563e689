package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/upskeel/lms/pkg/errors"
)

// Domain errors returned by the services. Handlers render them as-is.
var (
	ErrInvalidRole = apperrors.New("INVALID_ROLE", "Invalid role", http.StatusBadRequest)

	ErrDuplicateEmail = apperrors.New("DUPLICATE_EMAIL", "Email is already registered", http.StatusBadRequest)

	ErrWeakPassword = apperrors.New("WEAK_PASSWORD", "Password does not meet the password policy", http.StatusBadRequest)

	ErrInvalidToken = apperrors.New("INVALID_TOKEN", "Invalid or already used token", http.StatusBadRequest)

	ErrTokenExpired = apperrors.New("TOKEN_EXPIRED", "Token has expired", http.StatusBadRequest)

	ErrInvalidUser = apperrors.New("INVALID_USER", "Invalid User", http.StatusBadRequest)

	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

	ErrInstructorNotApproved = apperrors.New("INSTRUCTOR_NOT_APPROVED", "Instructor accounts require admin approval!", http.StatusUnauthorized)

	ErrEmailNotConfirmed = apperrors.New("EMAIL_NOT_CONFIRMED", "Email address has not been confirmed", http.StatusUnauthorized)

	ErrUnknownEmail = apperrors.New("INVALID_EMAIL", "Invalid Email", http.StatusBadRequest)

	ErrApprovalRequestNotFound = apperrors.New("APPROVAL_REQUEST_NOT_FOUND", "Request not found", http.StatusNotFound)

	ErrApprovalAlreadyDecided = apperrors.New("APPROVAL_ALREADY_DECIDED", "Request has already been decided", http.StatusConflict)

	ErrApprovalRequestExists = apperrors.New("APPROVAL_REQUEST_EXISTS", "An approval request already exists for this user", http.StatusConflict)

	ErrInvalidDecision = apperrors.New("INVALID_DECISION", "Decision must be Approved or Rejected", http.StatusBadRequest)

	ErrCourseNotFound = apperrors.New("COURSE_NOT_FOUND", "Course not found", http.StatusNotFound)

	ErrCourseNotOwned = apperrors.New("COURSE_NOT_FOUND", "Course not found or you do not own it", http.StatusNotFound)

	ErrInstructorNotFound = apperrors.New("INSTRUCTOR_NOT_FOUND", "Instructor not found", http.StatusNotFound)

	ErrNotInstructor = apperrors.New("NOT_INSTRUCTOR", "User is not an Instructor", http.StatusBadRequest)

	ErrAlreadyEnrolled = apperrors.New("ALREADY_ENROLLED", "You are already enrolled in this course.", http.StatusBadRequest)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate")
}

func validationError(message string) *apperrors.AppError {
	return apperrors.ErrValidation.WithMessage(message)
}
