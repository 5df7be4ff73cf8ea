package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/app/repository"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/licensing"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/notifications"
)

const (
	DefaultSweepInterval   = time.Hour
	DefaultArchiveInterval = 24 * time.Hour

	sweepPageSize = 500
	sweepOrigin   = "sweep"
)

// ErrArchiveDisabled is returned by ArchiveOnce without an archiver.
var ErrArchiveDisabled = errors.New("ledger archive is disabled")

// LicenseSource lists normalized licenses. Listing persists read repairs, so
// a sweep also applies due late fees.
type LicenseSource interface {
	FindMany(ctx context.Context, filter repository.LicenseFilter) ([]*licensing.Result, error)
	Calendar() licensing.Calendar
	Now() time.Time
}

// ReminderStore deduplicates and delivers reminder jobs.
type ReminderStore interface {
	Upsert(ctx context.Context, in notifications.JobInput) (*notifications.UpsertResult, error)
	ReminderDeliverer
}

// LedgerArchiver writes a snapshot of every license and returns its key.
type LedgerArchiver interface {
	Snapshot(ctx context.Context, licenses []*models.License) (string, error)
}

// ManagerConfig holds the background task settings.
type ManagerConfig struct {
	SweepInterval   time.Duration
	ArchiveInterval time.Duration
	DueSoonDays     int
	Channel         string
}

// SweepReport summarizes one overdue sweep.
type SweepReport struct {
	Licenses   int           `json:"licenses"`
	Candidates int           `json:"candidates"`
	Created    int           `json:"created"`
	Duplicates int           `json:"duplicates"`
	Enqueued   int           `json:"enqueued"`
	Delivered  int           `json:"delivered"`
	Errors     int           `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

// Manager owns the job queue and the periodic overdue sweep and ledger
// archive. Without a queue, reminders are delivered inline by the sweep.
type Manager struct {
	queue     *Queue
	licenses  LicenseSource
	reminders ReminderStore
	archiver  LedgerArchiver
	cfg       ManagerConfig

	sweepMu sync.Mutex

	sweepTicker   *time.Ticker
	archiveTicker *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

// NewManager wires the background tasks. queue and archiver may be nil.
func NewManager(queue *Queue, licenses LicenseSource, reminders ReminderStore, archiver LedgerArchiver, cfg ManagerConfig) *Manager {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.ArchiveInterval <= 0 {
		cfg.ArchiveInterval = DefaultArchiveInterval
	}
	if cfg.DueSoonDays < 0 {
		cfg.DueSoonDays = 0
	}
	return &Manager{
		queue:     queue,
		licenses:  licenses,
		reminders: reminders,
		archiver:  archiver,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	if m.queue != nil {
		m.queue.Start()
	}

	m.sweepTicker = time.NewTicker(m.cfg.SweepInterval)
	m.wg.Add(1)
	go m.sweepWorker(m.stopCh)

	if m.archiver != nil {
		m.archiveTicker = time.NewTicker(m.cfg.ArchiveInterval)
		m.wg.Add(1)
		go m.archiveWorker(m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}
	if m.archiveTicker != nil {
		m.archiveTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	if m.queue != nil {
		m.queue.Stop()
	}

	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) sweepWorker(stop <-chan struct{}) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started overdue sweep worker (interval: %s)", m.cfg.SweepInterval)

	for {
		select {
		case <-stop:
			log.Info("[JobQueue Manager] Overdue sweep worker stopping")
			return
		case <-m.sweepTicker.C:
			report, err := m.SweepOnce(context.Background())
			if err != nil {
				log.Errorf("[JobQueue Manager] Overdue sweep error: %v", err)
				continue
			}
			log.Infof("[JobQueue Manager] Overdue sweep: %d licenses, %d created, %d duplicates, %d enqueued",
				report.Licenses, report.Created, report.Duplicates, report.Enqueued)
		}
	}
}

func (m *Manager) archiveWorker(stop <-chan struct{}) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started ledger archive worker (interval: %s)", m.cfg.ArchiveInterval)

	for {
		select {
		case <-stop:
			log.Info("[JobQueue Manager] Ledger archive worker stopping")
			return
		case <-m.archiveTicker.C:
			if _, err := m.ArchiveOnce(context.Background()); err != nil {
				log.Errorf("[JobQueue Manager] Ledger archive error: %v", err)
			}
		}
	}
}

// SweepOnce normalizes every non-cancelled license, upserts one reminder per
// client document and enqueues the newly created jobs. Duplicates are not
// enqueued again. Sweeps never overlap.
func (m *Manager) SweepOnce(ctx context.Context) (*SweepReport, error) {
	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()

	started := time.Now()
	licenses, err := m.listLicenses(ctx, []string{models.LicenseStatusCancelled})
	if err != nil {
		return nil, err
	}

	now := m.licenses.Now()
	candidates := notifications.BuildReminders(licenses, now, notifications.ReminderOptions{
		Calendar:    m.licenses.Calendar(),
		DueSoonDays: m.cfg.DueSoonDays,
		Channel:     m.cfg.Channel,
		Origin:      sweepOrigin,
	})

	report := &SweepReport{Licenses: len(licenses), Candidates: len(candidates)}
	for _, in := range candidates {
		res, err := m.reminders.Upsert(ctx, in)
		if err != nil {
			report.Errors++
			log.Errorf("[JobQueue Manager] Failed to upsert reminder for %s: %v", in.RucOrDni, err)
			continue
		}
		if res.Duplicate {
			report.Duplicates++
			continue
		}
		report.Created++

		queued, err := m.DispatchReminder(ctx, res.Job)
		if err != nil {
			report.Errors++
			continue
		}
		if queued {
			report.Enqueued++
		} else {
			report.Delivered++
		}
	}
	report.Duration = time.Since(started)
	return report, nil
}

// DispatchReminder enqueues a stored notification job for delivery. Without
// a queue the job is delivered inline. queued reports which happened.
func (m *Manager) DispatchReminder(ctx context.Context, job *models.NotificationJob) (queued bool, err error) {
	if m.queue != nil {
		payload := LicenseReminderJobPayload{NotificationJobID: job.ID, RucOrDni: job.RucOrDni}
		if _, err := m.queue.EnqueueJob(ctx, JobTypeLicenseReminder, payload.ToMap()); err != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue reminder %s: %v", job.ID, err)
			return false, err
		}
		return true, nil
	}
	if _, err := m.reminders.Deliver(ctx, job.ID); err != nil {
		return false, err
	}
	return false, nil
}

// ArchiveOnce snapshots every license, cancelled ones included.
func (m *Manager) ArchiveOnce(ctx context.Context) (string, error) {
	if m.archiver == nil {
		return "", ErrArchiveDisabled
	}
	licenses, err := m.listLicenses(ctx, nil)
	if err != nil {
		return "", err
	}
	key, err := m.archiver.Snapshot(ctx, licenses)
	if err != nil {
		return "", err
	}
	log.Infof("[JobQueue Manager] Archived %d licenses to %s", len(licenses), key)
	return key, nil
}

func (m *Manager) listLicenses(ctx context.Context, exclude []string) ([]*models.License, error) {
	var out []*models.License
	for offset := 0; ; offset += sweepPageSize {
		page, err := m.licenses.FindMany(ctx, repository.LicenseFilter{
			ExcludeStatus: exclude,
			Limit:         sweepPageSize,
			Offset:        offset,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list licenses: %w", err)
		}
		for _, res := range page {
			if res != nil && res.License != nil {
				out = append(out, res.License)
			}
		}
		if len(page) < sweepPageSize {
			return out, nil
		}
	}
}
