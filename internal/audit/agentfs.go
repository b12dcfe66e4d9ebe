package audit

/*
Файл agentfs.go реализует асинхронную запись журнала аудита шлюза.

- Non-blocking Logging: Log никогда не блокирует горячий путь маршрутизации.
  При переполнении буфера запись сбрасывается в zap (Load Shedding).
- Batching: записи копятся и уходят в хранилище пачкой по таймеру или по достижении 100 штук.
- Drain: Stop закрывает вход, воркер вычитывает остаток канала и делает финальный flush.
- Fire-and-forget: запись идет с Background контекстом, отмена входящего запроса её не откатывает.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const batchSize = 100

// StorageInterface определяет, куда физически сохраняются записи
type StorageInterface interface {
	WriteBatch(ctx context.Context, entries []LogEntry) error
}

// Auditor: то, что нужно маршрутизатору от журнала
type Auditor interface {
	Log(entry LogEntry)
}

type Writer struct {
	ch            chan LogEntry
	repo          StorageInterface
	logger        *zap.Logger
	flushInterval time.Duration
	fill          prometheus.Gauge // может быть nil

	wg     sync.WaitGroup
	mu     sync.RWMutex // защищает закрытие канала от конкурентных Log
	closed bool
}

func NewWriter(repo StorageInterface, bufferSize int, flushInterval time.Duration, fill prometheus.Gauge, logger *zap.Logger) *Writer {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	return &Writer{
		ch:            make(chan LogEntry, bufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "audit-writer")),
		flushInterval: flushInterval,
		fill:          fill,
	}
}

func (w *Writer) Start() {
	w.wg.Add(1)
	go w.worker()
}

// Stop запирает вход в канал и ждет, пока воркер всё допишет.
func (w *Writer) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	w.logger.Info("stopping audit writer: flushing buffer...")
	w.wg.Wait()
	w.logger.Info("audit writer stopped gracefully")
}

func (w *Writer) Log(entry LogEntry) {
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().UnixMilli()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.logger.Warn("audit entry dropped: writer is stopping", zap.String("correlation_id", entry.CorrelationID))
		return
	}

	select {
	case w.ch <- entry:
		if w.fill != nil {
			w.fill.Set(float64(len(w.ch)))
		}
	default:
		// Backpressure: не теряем факт запроса, хотя бы в логе процесса
		w.logger.Error("audit_buffer_overflow",
			zap.String("correlation_id", entry.CorrelationID),
			zap.String("agent", entry.Agent),
			zap.String("outcome", string(entry.Outcome)),
		)
	}
}

func (w *Writer) worker() {
	defer w.wg.Done()

	batch := make([]LogEntry, 0, batchSize)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст может быть уже закрыт
		if err := w.repo.WriteBatch(context.Background(), batch); err != nil {
			w.logger.Error("audit flush failed", zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
		if w.fill != nil {
			w.fill.Set(float64(len(w.ch)))
		}
	}

	for {
		select {
		case entry, ok := <-w.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
