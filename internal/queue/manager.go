package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/infra/config"
	"github.com/skelding/pdfpress/internal/infra/logger"
	"github.com/skelding/pdfpress/internal/store"
)

// Dispatcher runs the handler for a record's kind and returns the
// artifact path.
type Dispatcher interface {
	Run(ctx context.Context, rec *domain.JobRecord) (string, error)
}

// Manager owns all queue state. Every mutation happens under mu; jobs
// themselves run outside it on the worker pool.
type Manager struct {
	mu sync.Mutex

	records      map[string]*domain.JobRecord
	pending      []string
	queuedByKey  map[string]int
	runningByKey map[string]int
	globalRun    int

	dispatcher Dispatcher
	store      *store.TempStore
	log        *logger.Logger

	concurrency   int
	maxPerUser    int
	jobTimeout    time.Duration
	jobTTL        time.Duration
	outputTTL     time.Duration
	shutdownGrace time.Duration

	newJobChan chan struct{}

	// baseCtx parents every job context. It outlives the serve context
	// so running jobs get their grace period, then cancelling it kills
	// whatever is left.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	wg sync.WaitGroup
}

func NewManager(cfg *config.Config, disp Dispatcher, st *store.TempStore, log *logger.Logger) *Manager {
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		records:      make(map[string]*domain.JobRecord),
		queuedByKey:  make(map[string]int),
		runningByKey: make(map[string]int),
		dispatcher:   disp,
		store:        st,
		log:          log,

		concurrency:   cfg.Queue.Concurrency,
		maxPerUser:    cfg.Queue.MaxPerUser,
		jobTimeout:    cfg.Queue.JobTimeout,
		jobTTL:        cfg.Queue.JobTTL,
		outputTTL:     cfg.Queue.OutputTTL,
		shutdownGrace: cfg.Queue.ShutdownGrace,

		// One slot per worker so a burst of wakes does not collapse
		// into a single pickup.
		newJobChan: make(chan struct{}, cfg.Queue.Concurrency),

		baseCtx:    base,
		baseCancel: cancel,
	}
}

// Start launches the worker pool and the reaper. ctx stops pickup of new
// work; call Stop afterwards to drain.
func (m *Manager) Start(ctx context.Context) {
	for i := 0; i < m.concurrency; i++ {
		m.wg.Add(1)
		go m.workerLoop(ctx, i)
	}
	m.wg.Add(1)
	go m.reapLoop(ctx)
	m.log.Info("queue: started %d workers (max %d per client)", m.concurrency, m.maxPerUser)
}

// Stop waits for running jobs up to the shutdown grace, then cancels
// their contexts, which kills any child processes.
func (m *Manager) Stop() {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(m.shutdownGrace):
		m.log.Warn("queue: grace period expired, cancelling in-flight jobs")
		m.baseCancel()
		<-done
	}
	m.baseCancel()
	m.log.Info("queue: stopped")
}

// Enqueue admits a record unconditionally; capacity is enforced at
// dispatch, not here.
func (m *Manager) Enqueue(clientKey string, payload domain.Payload, cleanup []string) *domain.JobRecord {
	rec := &domain.JobRecord{
		ID:           ksuid.New().String(),
		Kind:         payload.Kind(),
		ClientKey:    clientKey,
		Status:       domain.StatusQueued,
		Payload:      payload,
		Metrics:      make(map[string]int64),
		CreatedAt:    time.Now(),
		CleanupFiles: cleanup,
	}

	m.mu.Lock()
	m.records[rec.ID] = rec
	m.pending = append(m.pending, rec.ID)
	m.queuedByKey[clientKey]++
	m.mu.Unlock()

	m.wake()
	m.log.Info("queue: job %s enqueued (%s) for %s", rec.ID, rec.Kind, clientKey)
	return rec
}

// Get returns a point-in-time snapshot of one record.
func (m *Manager) Get(id string) (domain.JobView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return domain.JobView{}, false
	}
	return snapshot(rec), true
}

// List snapshots every record, oldest first.
func (m *Manager) List() []domain.JobView {
	m.mu.Lock()
	defer m.mu.Unlock()

	views := make([]domain.JobView, 0, len(m.records))
	for _, rec := range m.records {
		views = append(views, snapshot(rec))
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views
}

func (m *Manager) wake() {
	select {
	case m.newJobChan <- struct{}{}:
	default:
		// A wake is already pending for every worker.
	}
}

// snapshot must be called with mu held. Metrics are only copied once the
// record is terminal; while running the handler owns the map.
func snapshot(rec *domain.JobRecord) domain.JobView {
	v := domain.JobView{
		ID:         rec.ID,
		Kind:       rec.Kind,
		Status:     rec.Status,
		Progress:   int(rec.Progress.Load()),
		Error:      rec.Error,
		ErrorCode:  rec.ErrorCode,
		OutputPath: rec.OutputPath,
		CreatedAt:  rec.CreatedAt,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	}
	if rec.Status.Terminal() && len(rec.Metrics) > 0 {
		v.Metrics = make(map[string]int64, len(rec.Metrics))
		for k, val := range rec.Metrics {
			v.Metrics[k] = val
		}
	}
	return v
}
