package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bestpay-client/internal/bestpay"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type opStats struct {
	calls          Counter
	transportErrs  Counter
	formatErrs     Counter
	latencyTotalMS Counter
}

// GatewayStats counts gateway calls per operation. It is a bestpay.Recorder.
type GatewayStats struct {
	mu  sync.RWMutex
	ops map[bestpay.Operation]*opStats
}

func NewGatewayStats() *GatewayStats {
	return &GatewayStats{ops: make(map[bestpay.Operation]*opStats)}
}

func (s *GatewayStats) Record(_ context.Context, ex bestpay.Exchange) error {
	st := s.get(ex.Operation)
	st.calls.Inc()
	st.latencyTotalMS.Add(uint64(ex.Latency / time.Millisecond))

	switch ex.ErrorKind {
	case bestpay.ErrorKindTransport:
		st.transportErrs.Inc()
	case bestpay.ErrorKindResponseFormat:
		st.formatErrs.Inc()
	}
	return nil
}

func (s *GatewayStats) get(op bestpay.Operation) *opStats {
	s.mu.RLock()
	st, ok := s.ops[op]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.ops[op]; !ok {
		st = &opStats{}
		s.ops[op] = st
	}
	return st
}

// OperationSnapshot is a point-in-time copy of one operation's counters.
type OperationSnapshot struct {
	Calls            uint64 `json:"calls"`
	TransportErrors  uint64 `json:"transportErrors"`
	ResponseFormat   uint64 `json:"responseFormatErrors"`
	AverageLatencyMS uint64 `json:"averageLatencyMs"`
}

func (s *GatewayStats) Snapshot() map[bestpay.Operation]OperationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[bestpay.Operation]OperationSnapshot, len(s.ops))
	for op, st := range s.ops {
		snap := OperationSnapshot{
			Calls:           st.calls.Load(),
			TransportErrors: st.transportErrs.Load(),
			ResponseFormat:  st.formatErrs.Load(),
		}
		if snap.Calls > 0 {
			snap.AverageLatencyMS = st.latencyTotalMS.Load() / snap.Calls
		}
		out[op] = snap
	}
	return out
}
