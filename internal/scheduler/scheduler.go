package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/internal/service"
	"github.com/selimacar/crm-notifier/pkg/logger"
)

// reminderProcessor is a minimal internal interface for the scheduler.
// It matches the ProcessDueReminders method of ReminderService and lets
// us unit test the scheduler with a small fake implementation.
type reminderProcessor interface {
	ProcessDueReminders(ctx context.Context) ([]domain.ReminderResult, error)
}

type Scheduler struct {
	reminderService reminderProcessor
	interval        time.Duration
	alertWebhook    string
	alertThreshold  int // Number of consecutive all-fail iterations before alert
	lastAlertSentAt time.Time

	// Internal state
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt     time.Time
	remindersSent int64
	runsCount     int64

	// Alert tracking
	consecutiveAllFailCount int // Count of consecutive iterations where every reminder failed
}

func NewScheduler(reminderService *service.ReminderService, interval time.Duration) *Scheduler {
	return &Scheduler{
		reminderService: reminderService,
		interval:        interval,
		running:         false,
	}
}

func (s *Scheduler) StartWithParams(
	ctx context.Context,
	intervalSeconds int,
	alertWebhook string,
	alertThreshold int,
) error {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}

	s.mu.Lock()
	s.interval = time.Duration(intervalSeconds) * time.Second
	s.alertWebhook = alertWebhook
	s.alertThreshold = alertThreshold
	s.consecutiveAllFailCount = 0
	s.mu.Unlock()

	return s.Start(ctx)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is already running")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.mu.Unlock()

	logger.Infof("Starting scheduler with interval: %v", s.interval)

	go s.run(ctx)

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneChan)

	s.processReminders(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Infof("Scheduler running. Next execution in %v", s.interval)

	for {
		select {
		case <-ticker.C:
			s.processReminders(ctx)
			logger.Debugf("Next execution in %v", s.interval)

		case <-s.stopChan:
			logger.Warnf("Scheduler received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Scheduler context cancelled")
			return
		}
	}
}

func (s *Scheduler) processReminders(ctx context.Context) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	alertWebhook := s.alertWebhook
	alertThreshold := s.alertThreshold
	s.mu.Unlock()

	logger.Infof("[Run #%d] Starting reminder processing at %s", runNumber, s.lastRunAt.Format(time.RFC3339))

	results, err := s.reminderService.ProcessDueReminders(ctx)
	if err != nil {
		logger.Errorf("[Run #%d] Error processing reminders: %v", runNumber, err)
		return
	}

	if results == nil {
		logger.Debugf("[Run #%d] No reminders to process", runNumber)
		return
	}

	// Count successful sends
	successCount := 0
	allFailed := true
	for _, r := range results {
		if r.Success {
			successCount++
			allFailed = false
		}
	}

	s.mu.Lock()
	s.remindersSent += int64(successCount)

	// Track consecutive all-fail iterations
	if allFailed && len(results) > 0 {
		s.consecutiveAllFailCount++
		logger.Warnf("[Run #%d] All %d reminders failed (consecutive count: %d/%d)",
			runNumber, len(results), s.consecutiveAllFailCount, alertThreshold)

		// Send alert if threshold reached
		if s.consecutiveAllFailCount >= alertThreshold && alertThreshold > 0 && alertWebhook != "" {
			go s.sendAlert(alertWebhook, runNumber, s.consecutiveAllFailCount, len(results))
		}
	} else {
		// Reset counter if any reminder succeeded
		if s.consecutiveAllFailCount > 0 {
			logger.Debugf(
				"[Run #%d] Resetting consecutive failure count (was: %d)",
				runNumber,
				s.consecutiveAllFailCount,
			)
		}
		s.consecutiveAllFailCount = 0
	}
	s.mu.Unlock()

	logger.Infof("[Run #%d] Processed %d reminders, %d successful, %d failed",
		runNumber, len(results), successCount, len(results)-successCount)
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	// Send stop signal
	close(stopChan)

	// Wait for goroutine to finish
	<-doneChan

	logger.Infof("Scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		Running:                 s.running,
		LastRunAt:               s.lastRunAt,
		RemindersSent:           s.remindersSent,
		RunsCount:               s.runsCount,
		Interval:                s.interval,
		ConsecutiveAllFailCount: s.consecutiveAllFailCount,
		LastAlertSentAt:         s.lastAlertSentAt,
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

func (s *Scheduler) sendAlert(webhookURL string, runNumber int64, consecutiveFailures int, remindersInBatch int) {
	alertPayload := map[string]any{
		"alert":               "consecutive_all_fail",
		"runNumber":           runNumber,
		"consecutiveFailures": consecutiveFailures,
		"remindersInBatch":    remindersInBatch,
		"timestamp":           time.Now().Format(time.RFC3339),
		"message": fmt.Sprintf(
			"All %d reminders failed for %d consecutive iterations",
			remindersInBatch,
			consecutiveFailures,
		),
	}

	jsonData, err := json.Marshal(alertPayload)
	if err != nil {
		logger.Errorf("Failed to marshal alert payload: %v", err)
		return
	}

	resp, err := http.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		logger.Errorf("Failed to send alert to webhook: %v", err)
		return
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("Failed to close alert webhook response body: %v", err)
		}
	}()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		s.mu.Lock()
		s.lastAlertSentAt = time.Now()
		s.mu.Unlock()
		logger.Infof("Alert sent successfully to %s (consecutive failures: %d)", webhookURL, consecutiveFailures)
	} else {
		logger.Warnf("Alert webhook returned status %d", resp.StatusCode)
	}
}

type SchedulerStatus struct {
	Running                 bool          `json:"running"`
	LastRunAt               time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt               time.Time     `json:"nextRunAt,omitempty"`
	RemindersSent           int64         `json:"remindersSent"`
	RunsCount               int64         `json:"runsCount"`
	Interval                time.Duration `json:"interval"`
	ConsecutiveAllFailCount int           `json:"consecutiveAllFailCount"`
	LastAlertSentAt         time.Time     `json:"lastAlertSentAt,omitempty"`
}
