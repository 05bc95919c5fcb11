package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/selimacar/crm-notifier/internal/domain"
)

// fakeProcessor is a simple test double for reminderProcessor.
type fakeProcessor struct {
	resultsToReturn []domain.ReminderResult
	errToReturn     error

	calls int
}

func (f *fakeProcessor) ProcessDueReminders(ctx context.Context) ([]domain.ReminderResult, error) {
	f.calls++
	return f.resultsToReturn, f.errToReturn
}

func TestScheduler_ProcessReminders_MixedResults(t *testing.T) {
	ctx := context.Background()

	processor := &fakeProcessor{
		resultsToReturn: []domain.ReminderResult{
			{Success: true},
			{Success: false},
			{Success: true},
		},
	}
	s := &Scheduler{
		reminderService: processor,
		interval:        time.Minute,
	}

	// Set some alert config but keep alertWebhook empty so no HTTP calls
	s.alertThreshold = 3
	s.alertWebhook = ""

	s.processReminders(ctx)

	status := s.GetStatus()
	if status.RemindersSent != 2 {
		t.Errorf("expected RemindersSent=2, got %d", status.RemindersSent)
	}
	if status.RunsCount != 1 {
		t.Errorf("expected RunsCount=1, got %d", status.RunsCount)
	}
	if status.ConsecutiveAllFailCount != 0 {
		t.Errorf("expected ConsecutiveAllFailCount=0, got %d", status.ConsecutiveAllFailCount)
	}
	if processor.calls != 1 {
		t.Fatalf("expected 1 call to ProcessDueReminders, got %d", processor.calls)
	}
}

func TestScheduler_ProcessReminders_AllFailIncrementsCounter(t *testing.T) {
	ctx := context.Background()

	processor := &fakeProcessor{
		resultsToReturn: []domain.ReminderResult{
			{Success: false},
			{Success: false},
		},
	}
	s := &Scheduler{
		reminderService: processor,
		interval:        time.Minute,
		alertThreshold:  5,  // high enough so sendAlert is not triggered
		alertWebhook:    "", // also prevents HTTP calls
	}

	s.processReminders(ctx)

	status := s.GetStatus()
	if status.RemindersSent != 0 {
		t.Errorf("expected RemindersSent=0, got %d", status.RemindersSent)
	}
	if status.RunsCount != 1 {
		t.Errorf("expected RunsCount=1, got %d", status.RunsCount)
	}
	if status.ConsecutiveAllFailCount != 1 {
		t.Errorf("expected ConsecutiveAllFailCount=1, got %d", status.ConsecutiveAllFailCount)
	}
}

func TestScheduler_ProcessReminders_SuccessResetsCounter(t *testing.T) {
	ctx := context.Background()

	processor := &fakeProcessor{
		resultsToReturn: []domain.ReminderResult{{Success: false}},
	}
	s := &Scheduler{
		reminderService: processor,
		interval:        time.Minute,
		alertThreshold:  10,
	}

	s.processReminders(ctx)
	s.processReminders(ctx)

	if got := s.GetStatus().ConsecutiveAllFailCount; got != 2 {
		t.Fatalf("expected ConsecutiveAllFailCount=2, got %d", got)
	}

	processor.resultsToReturn = []domain.ReminderResult{{Success: true}}
	s.processReminders(ctx)

	if got := s.GetStatus().ConsecutiveAllFailCount; got != 0 {
		t.Errorf("expected ConsecutiveAllFailCount reset to 0, got %d", got)
	}
}

func TestScheduler_StartAndStopToggleRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := &fakeProcessor{}
	s := &Scheduler{
		reminderService: processor,
		interval:        10 * time.Millisecond,
	}

	if s.IsRunning() {
		t.Fatalf("expected scheduler to be not running initially")
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if !s.IsRunning() {
		t.Fatalf("expected scheduler to be running after Start")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	if s.IsRunning() {
		t.Fatalf("expected scheduler to be not running after Stop")
	}
}
