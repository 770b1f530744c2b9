package alert

import (
	"sync"

	"go.uber.org/zap"

	"github.com/bryanwahyu/fileguard/internal/domain/threats"
)

const defaultBuffer = 64

type item struct {
	userID  string
	finding threats.Finding
}

// Dispatcher delivers security alerts from a bounded queue so a slow
// notification channel can never stall activity recording. When the queue is
// full the alert is dropped and logged, never blocked on.
type Dispatcher struct {
	log   *zap.Logger
	queue chan item
	wg    sync.WaitGroup
}

func NewDispatcher(log *zap.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	d := &Dispatcher{
		log:   log,
		queue: make(chan item, buffer),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Notify enqueues an alert without blocking.
func (d *Dispatcher) Notify(userID string, f threats.Finding) {
	select {
	case d.queue <- item{userID: userID, finding: f}:
	default:
		d.log.Warn("alert queue full, dropping alert",
			zap.String("user_id", userID),
			zap.String("finding_type", f.Type),
		)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for it := range d.queue {
		d.log.Error("SECURITY ALERT",
			zap.String("user_id", it.userID),
			zap.String("finding_type", it.finding.Type),
			zap.String("severity", string(it.finding.Severity)),
			zap.String("description", it.finding.Description),
			zap.Any("evidence", it.finding.Evidence),
		)
	}
}

// Close drains and stops the worker.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}

var _ threats.Notifier = (*Dispatcher)(nil)
