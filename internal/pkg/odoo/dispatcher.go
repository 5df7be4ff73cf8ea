package odoo

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/metrics"
)

// Dispatcher pushes payments in the background. Dispatch never blocks: when
// the buffer is full the payment is dropped and logged, and the accounting
// side is expected to reconcile on external_transaction_id.
type Dispatcher struct {
	pusher  Pusher
	active  bool
	workers int
	queue   chan models.Transaction

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewDispatcher(pusher Pusher, cfg Config) *Dispatcher {
	cfg.applyDefaults()
	return &Dispatcher{
		pusher:  pusher,
		active:  cfg.Active(),
		workers: cfg.Workers,
		queue:   make(chan models.Transaction, cfg.Buffer),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	log.Infof("[OdooSync] Dispatcher started with %d workers (active=%t)", d.workers, d.active)
}

// Stop stops accepting payments, pushes what is already buffered and waits
// for the workers to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
	log.Info("[OdooSync] Dispatcher stopped")
}

// Dispatch queues tx for delivery and reports whether it was accepted.
func (d *Dispatcher) Dispatch(tx models.Transaction) bool {
	if !d.active {
		metrics.OdooSync.WithLabelValues("skipped").Inc()
		log.Debugf("[OdooSync] Sync disabled, not pushing %s", tx.TransactionID)
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		metrics.OdooSync.WithLabelValues("dropped").Inc()
		log.Warnf("[OdooSync] Dispatcher not running, dropping %s", tx.TransactionID)
		return false
	}

	select {
	case d.queue <- tx:
		return true
	default:
		metrics.OdooSync.WithLabelValues("dropped").Inc()
		log.Warnf("[OdooSync] Buffer full (%d), dropping %s", cap(d.queue), tx.TransactionID)
		return false
	}
}

// Pending returns the number of buffered payments.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case tx := <-d.queue:
			d.push(id, tx)
		case <-d.stopCh:
			for {
				select {
				case tx := <-d.queue:
					d.push(id, tx)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) push(worker int, tx models.Transaction) {
	start := time.Now()
	res := d.pusher.PushPayment(context.Background(), tx)
	metrics.OdooSyncDuration.Observe(time.Since(start).Seconds())

	if res.OK {
		metrics.OdooSync.WithLabelValues("ok").Inc()
		log.Infof("[OdooSync] Worker %d pushed %s (license=%s, status=%d)", worker, tx.TransactionID, tx.LicenseID, res.Status)
		return
	}
	metrics.OdooSync.WithLabelValues("failed").Inc()
	log.Warnf("[OdooSync] Worker %d failed to push %s (status=%d): %s", worker, tx.TransactionID, res.Status, res.Error)
}
