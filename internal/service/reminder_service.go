package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/selimacar/crm-notifier/environments"
	"github.com/selimacar/crm-notifier/internal/channel"
	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/pkg/logger"
)

type reminderRepository interface {
	Create(ctx context.Context, reminder *domain.Reminder) (*domain.Reminder, error)
	GetByID(ctx context.Context, id int64) (*domain.Reminder, error)
	GetDue(ctx context.Context, now time.Time) ([]domain.Reminder, error)
	MarkAttempt(ctx context.Context, id int64, attempts int, at time.Time) error
	MarkSent(ctx context.Context, id int64, lastError *string) error
	MarkFailed(ctx context.Context, id int64, lastError *string) error
	RecordError(ctx context.Context, id int64, lastError string) error
	Cancel(ctx context.Context, id int64) error
	MarkRecipientNotified(ctx context.Context, recipientID int64) error
	GetAll(ctx context.Context, state *domain.ReminderState, page, pageSize int) ([]domain.Reminder, int64, error)
	GetStats(ctx context.Context) (pending, sent, failed, cancelled int64, err error)
}

type channelDispatcher interface {
	Dispatch(ctx context.Context, t domain.ChannelType, recipient domain.Recipient, msg channel.RenderedMessage) error
}

// ReminderService owns the per-reminder delivery logic the scheduler
// drives: render, attempt accounting, per-recipient dispatch, and the
// retry/failure policy.
type ReminderService struct {
	repo     reminderRepository
	registry channelDispatcher
	cfg      environments.SchedulerConfig
}

func NewReminderService(
	repo reminderRepository,
	registry channelDispatcher,
	cfg environments.SchedulerConfig,
) *ReminderService {
	return &ReminderService{
		repo:     repo,
		registry: registry,
		cfg:      cfg,
	}
}

// ProcessDueReminders handles one tick's worth of work. Reminders are
// processed sequentially, highest priority first; one reminder's
// failure (even a panic) never aborts the batch.
func (s *ReminderService) ProcessDueReminders(ctx context.Context) ([]domain.ReminderResult, error) {
	now := time.Now()

	reminders, err := s.repo.GetDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due reminders: %w", err)
	}

	if len(reminders) == 0 {
		logger.Debugf("No due reminders to process")
		return nil, nil
	}

	// The store already orders by priority, but the contract belongs to
	// this layer: keep it even if the query changes.
	sort.SliceStable(reminders, func(i, j int) bool {
		if reminders[i].Priority.Weight() != reminders[j].Priority.Weight() {
			return reminders[i].Priority.Weight() > reminders[j].Priority.Weight()
		}
		return reminders[i].ScheduledAt.Before(reminders[j].ScheduledAt)
	})

	logger.Infof("Processing %d due reminders", len(reminders))

	results := make([]domain.ReminderResult, 0, len(reminders))
	for i := range reminders {
		results = append(results, s.processOne(ctx, &reminders[i], now))
	}

	return results, nil
}

func (s *ReminderService) processOne(ctx context.Context, reminder *domain.Reminder, now time.Time) (result domain.ReminderResult) {
	result = domain.ReminderResult{
		ReminderID: reminder.ID,
		State:      domain.ReminderPending,
		Recipients: len(reminder.Recipients),
	}

	defer func() {
		if r := recover(); r != nil {
			// Fail-isolate: the reminder is marked failed and the batch
			// continues.
			errMsg := fmt.Sprintf("panic while processing reminder: %v", r)
			logger.Errorf("Reminder %d: %s", reminder.ID, errMsg)
			if markErr := s.repo.MarkFailed(ctx, reminder.ID, &errMsg); markErr != nil {
				logger.Errorf("Failed to mark reminder %d as failed: %v", reminder.ID, markErr)
			}
			result.State = domain.ReminderFailed
			result.Success = false
			result.Error = errMsg
		}
	}()

	rendered := channel.RenderedMessage{
		Subject: RenderTemplate(reminder.Subject, reminder, now),
		Body:    RenderTemplate(reminder.Body, reminder, now),
	}

	attempts := reminder.AttemptCount + 1
	if err := s.repo.MarkAttempt(ctx, reminder.ID, attempts, now); err != nil {
		logger.Errorf("Failed to record attempt for reminder %d: %v", reminder.ID, err)
	}

	var dispatchErrors []string
	for _, recipient := range reminder.Recipients {
		if err := s.registry.Dispatch(ctx, reminder.ChannelType, recipient, rendered); err != nil {
			logger.Warnf("Reminder %d: dispatch to recipient %d failed: %v", reminder.ID, recipient.ID, err)
			dispatchErrors = append(dispatchErrors, err.Error())
			continue
		}

		result.Delivered++
		if err := s.repo.MarkRecipientNotified(ctx, recipient.ID); err != nil {
			logger.Errorf("Failed to mark recipient %d notified: %v", recipient.ID, err)
		}
	}

	var lastError *string
	if len(dispatchErrors) > 0 {
		joined := strings.Join(dispatchErrors, "; ")
		lastError = &joined
		result.Error = joined
	}

	// The reminder succeeds if at least one recipient was reached;
	// partial failure is recorded in last_error but does not fail it.
	if result.Delivered > 0 {
		if err := s.repo.MarkSent(ctx, reminder.ID, lastError); err != nil {
			logger.Errorf("Failed to mark reminder %d as sent: %v", reminder.ID, err)
			result.Error = err.Error()
			return result
		}
		result.State = domain.ReminderSent
		result.Success = true
		logger.Infof("Reminder %d sent to %d/%d recipients", reminder.ID, result.Delivered, result.Recipients)
		return result
	}

	if attempts >= s.maxAttempts() {
		if err := s.repo.MarkFailed(ctx, reminder.ID, lastError); err != nil {
			logger.Errorf("Failed to mark reminder %d as failed: %v", reminder.ID, err)
		}
		result.State = domain.ReminderFailed
		logger.Warnf("Reminder %d failed permanently after %d attempts", reminder.ID, attempts)
		return result
	}

	// Still pending; the next tick re-selects it since scheduled_at is
	// already in the past.
	if lastError != nil {
		if err := s.repo.RecordError(ctx, reminder.ID, *lastError); err != nil {
			logger.Errorf("Failed to record error for reminder %d: %v", reminder.ID, err)
		}
	}
	logger.Warnf("Reminder %d attempt %d/%d failed, will retry", reminder.ID, attempts, s.maxAttempts())

	return result
}

func (s *ReminderService) maxAttempts() int {
	if s.cfg.MaxAttempts > 0 {
		return s.cfg.MaxAttempts
	}
	return 3
}

func (s *ReminderService) CreateReminder(ctx context.Context, reminder *domain.Reminder) (*domain.Reminder, error) {
	if len(reminder.Recipients) == 0 {
		return nil, &domain.ValidationError{Reason: "at least one recipient is required"}
	}
	return s.repo.Create(ctx, reminder)
}

func (s *ReminderService) GetReminder(ctx context.Context, id int64) (*domain.Reminder, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ReminderService) CancelReminder(ctx context.Context, id int64) error {
	return s.repo.Cancel(ctx, id)
}

func (s *ReminderService) GetAllReminders(
	ctx context.Context,
	state *domain.ReminderState,
	page, pageSize int,
) ([]domain.Reminder, int64, error) {
	return s.repo.GetAll(ctx, state, page, pageSize)
}

func (s *ReminderService) GetStats(ctx context.Context) (pending, sent, failed, cancelled int64, err error) {
	return s.repo.GetStats(ctx)
}
