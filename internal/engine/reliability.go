package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/connectors"
)

// BreakerSettings: параметры предохранителя, одинаковые для всех агентов
type BreakerSettings struct {
	MaxRequests uint32        // пробных запросов в half-open
	Interval    time.Duration // период сброса счетчиков в closed
	Timeout     time.Duration // через сколько open переходит в half-open
	MaxFailures uint32        // подряд идущих транспортных ошибок до размыкания
}

// ReliabilityWrapper держит отдельный предохранитель на каждого агента.
// Ретраев нет: открытый предохранитель сразу дает TransportError.
type ReliabilityWrapper struct {
	next     connectors.AgentCaller
	breakers map[string]*gobreaker.CircuitBreaker
	logger   *zap.Logger
}

func NewReliabilityWrapper(next connectors.AgentCaller, agents []string, st BreakerSettings, metrics *Metrics, logger *zap.Logger) *ReliabilityWrapper {
	logger = logger.Named("reliability")
	if st.MaxFailures == 0 {
		st.MaxFailures = 5
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker, len(agents))
	for _, agent := range agents {
		maxFailures := st.MaxFailures
		breakers[agent] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        agent,
			MaxRequests: st.MaxRequests,
			Interval:    st.Interval,
			Timeout:     st.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("agent", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
				if metrics != nil {
					metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerGauge(to))
				}
			},
		})
		if metrics != nil {
			metrics.CircuitBreakerState.WithLabelValues(agent).Set(0)
		}
	}

	return &ReliabilityWrapper{next: next, breakers: breakers, logger: logger}
}

func (w *ReliabilityWrapper) Call(ctx context.Context, c connectors.Call) connectors.Result {
	cb, ok := w.breakers[c.Agent]
	if !ok {
		return w.next.Call(ctx, c)
	}

	var (
		res    connectors.Result
		called bool
	)
	_, err := cb.Execute(func() (interface{}, error) {
		called = true
		res = w.next.Call(ctx, c)
		// Только транспорт считается отказом агента; бизнес-ошибки и кривой JSON: нет
		if res.Kind == connectors.KindTransportError {
			return nil, res.Err
		}
		return nil, nil
	})

	if !called {
		return connectors.TransportFailure(fmt.Errorf("circuit breaker %s: %w", c.Agent, err))
	}
	return res
}

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}
