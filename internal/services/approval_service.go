package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/upskeel/lms/internal/events"
	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/notifications"
	"github.com/upskeel/lms/pkg/logger"
	"github.com/upskeel/lms/pkg/metrics"
)

// ApprovalFilter narrows ListRequests. An empty Status lists every request.
type ApprovalFilter struct {
	Status models.ApprovalStatus
}

// ApprovalRequestView is the admin facing projection of a request.
type ApprovalRequestView struct {
	ID          string                `json:"id"`
	UserID      string                `json:"userId"`
	FullName    string                `json:"fullName"`
	Email       string                `json:"email"`
	Status      models.ApprovalStatus `json:"status"`
	RequestedAt time.Time             `json:"requestedAt"`
	ReviewedAt  *time.Time            `json:"reviewedAt"`
}

// DecisionInput identifies a request and the outcome chosen by an administrator.
type DecisionInput struct {
	RequestID  string
	Outcome    models.ApprovalStatus
	ReviewerID string
	Reviewer   string
	IPAddress  string
	UserAgent  string
}

// ApprovalOption customises the ApprovalService.
type ApprovalOption func(*ApprovalService)

// WithApprovalNotifier sets the sink used to tell instructors about decisions.
func WithApprovalNotifier(sender NotificationSender) ApprovalOption {
	return func(s *ApprovalService) {
		s.notifier = sender
	}
}

// WithApprovalEvents sets the publisher for decision events.
func WithApprovalEvents(publisher events.Publisher) ApprovalOption {
	return func(s *ApprovalService) {
		s.publisher = publisher
	}
}

// WithApprovalAudit records decisions in the audit log.
func WithApprovalAudit(audit *AuditService) ApprovalOption {
	return func(s *ApprovalService) {
		s.audit = audit
	}
}

// WithApprovalClock injects a custom time source.
func WithApprovalClock(clock func() time.Time) ApprovalOption {
	return func(s *ApprovalService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// ApprovalService implements the instructor approval state machine:
// Pending moves to Approved or Rejected exactly once.
type ApprovalService struct {
	db        *gorm.DB
	notifier  NotificationSender
	publisher events.Publisher
	audit     *AuditService
	now       func() time.Time
	log       *zap.Logger
}

// NewApprovalService constructs an ApprovalService.
func NewApprovalService(db *gorm.DB, opts ...ApprovalOption) (*ApprovalService, error) {
	if db == nil {
		return nil, errors.New("approval service: db is required")
	}
	service := &ApprovalService{
		db:        db,
		publisher: events.NopPublisher{},
		now:       utcNow,
		log:       logger.WithModule("approvals"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// WithTx returns a copy of the service bound to tx.
func (s *ApprovalService) WithTx(tx *gorm.DB) *ApprovalService {
	cpy := *s
	cpy.db = tx
	return &cpy
}

// OpenRequest gates the identity and opens its pending request. Callers run
// it inside the registration transaction.
func (s *ApprovalService) OpenRequest(ctx context.Context, user *models.User) (*models.InstructorApprovalRequest, error) {
	ctx = ensureContext(ctx)
	if user == nil || user.ID == "" {
		return nil, errors.New("approval service: identity is required")
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("is_approved", false).Error; err != nil {
		return nil, fmt.Errorf("approval service: gate identity: %w", err)
	}
	user.IsApproved = false

	request := &models.InstructorApprovalRequest{
		UserID:      user.ID,
		Email:       user.Email,
		Status:      models.ApprovalPending,
		RequestedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(request).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrApprovalRequestExists.WithInternal(err)
		}
		return nil, fmt.Errorf("approval service: open request: %w", err)
	}
	return request, nil
}

// ListRequests returns requests ordered by request time, oldest first.
func (s *ApprovalService) ListRequests(ctx context.Context, filter ApprovalFilter) ([]ApprovalRequestView, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("status must be Pending, Approved or Rejected")
	}

	query := s.db.WithContext(ensureContext(ctx)).
		Table("instructor_approval_requests AS r").
		Select("r.id, r.user_id, u.full_name, r.email, r.status, r.requested_at, r.reviewed_at").
		Joins("JOIN users u ON u.id = r.user_id")
	if filter.Status != "" {
		query = query.Where("r.status = ?", filter.Status)
	}

	var views []ApprovalRequestView
	if err := query.Order("r.requested_at ASC").Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("approval service: list requests: %w", err)
	}
	if views == nil {
		views = []ApprovalRequestView{}
	}
	return views, nil
}

// Decide settles a pending request. The request status and the identity's
// approval flag change in one transaction.
func (s *ApprovalService) Decide(ctx context.Context, input DecisionInput) (*models.InstructorApprovalRequest, error) {
	ctx = ensureContext(ctx)

	if input.Outcome != models.ApprovalApproved && input.Outcome != models.ApprovalRejected {
		return nil, ErrInvalidDecision
	}
	requestID := strings.TrimSpace(input.RequestID)
	if requestID == "" {
		return nil, ErrApprovalRequestNotFound
	}

	var request models.InstructorApprovalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", requestID).
			First(&request).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApprovalRequestNotFound
			}
			return fmt.Errorf("approval service: load request: %w", err)
		}
		if request.Status != models.ApprovalPending {
			return ErrApprovalAlreadyDecided
		}

		reviewedAt := s.now().UTC()
		updates := map[string]any{
			"status":      input.Outcome,
			"reviewed_at": reviewedAt,
			"reviewed_by": stringPtr(input.ReviewerID),
		}
		result := tx.Model(&models.InstructorApprovalRequest{}).
			Where("id = ? AND status = ?", request.ID, models.ApprovalPending).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("approval service: update request: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrApprovalAlreadyDecided
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", request.UserID).
			Update("is_approved", input.Outcome == models.ApprovalApproved).Error; err != nil {
			return fmt.Errorf("approval service: update identity: %w", err)
		}

		request.Status = input.Outcome
		request.ReviewedAt = &reviewedAt
		request.ReviewedBy = stringPtr(input.ReviewerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := strings.ToLower(string(input.Outcome))
	metrics.ApprovalDecisions.WithLabelValues(outcome).Inc()
	s.afterDecision(ctx, input, &request)
	return &request, nil
}

func (s *ApprovalService) afterDecision(ctx context.Context, input DecisionInput, request *models.InstructorApprovalRequest) {
	approved := request.Status == models.ApprovalApproved

	if s.notifier != nil {
		var fullName string
		var user models.User
		if err := s.db.WithContext(ctx).Select("full_name").Where("id = ?", request.UserID).First(&user).Error; err == nil {
			fullName = user.FullName
		}
		if err := s.notifier.Dispatch(ctx, notifications.InstructorDecisionEmail(request.Email, fullName, approved)); err != nil {
			s.log.Warn("instructor decision notification failed", zap.String("request_id", request.ID), zap.Error(err))
		}
	}

	publishEvent(s.publisher, ctx, events.Event{
		Type: events.TypeInstructorRequestDecided,
		Key:  request.UserID,
		Payload: map[string]any{
			"requestId":  request.ID,
			"userId":     request.UserID,
			"status":     request.Status,
			"reviewedBy": input.ReviewerID,
		},
		OccurredAt: *request.ReviewedAt,
	})

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(input.ReviewerID),
		Actor:     input.Reviewer,
		Action:    "instructor_request." + strings.ToLower(string(request.Status)),
		Resource:  "instructor_request:" + request.ID,
		Result:    AuditSuccess,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		Metadata:  map[string]any{"userId": request.UserID, "email": request.Email},
	})
}
