// Package portsched implements a programmable egress packet scheduler for
// a single network port: CoS queues, a selectable scheduling discipline,
// ECN marking, the online estimators that feed it, and an optional
// token-bucket shaper. Packet classification, configuration ingestion,
// telemetry sinks and the outer driver loop are external collaborators;
// Port only implements the scheduler/marker core between them.
package portsched

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/quiclab/portsched/internal/admission"
	"github.com/quiclab/portsched/internal/clock"
	"github.com/quiclab/portsched/internal/estimator"
	"github.com/quiclab/portsched/internal/invariant"
	"github.com/quiclab/portsched/internal/marker"
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
	"github.com/quiclab/portsched/internal/scheduler"
	"github.com/quiclab/portsched/internal/shaper"
	"github.com/quiclab/portsched/logging"
	"github.com/quiclab/portsched/telemetry"
)

// Port composes admission control, CoS queues, a scheduling discipline,
// an ECN marker and its estimators, and an optional shaper into the data
// plane for one egress port. Enqueue and Dequeue are not safe for
// concurrent use by multiple goroutines: the scheduler is single-threaded
// and cooperative by design, and the caller (a qdisc lock, an event loop)
// is responsible for serializing the data path.
type Port struct {
	id  string
	cfg *Config
	clk clock.Clock

	queues     []*queue.Queue
	admission  *admission.Controller
	discipline scheduler.Discipline
	markPolicy marker.Policy

	weightSumEst *estimator.WeightSum
	roundTimeEst *estimator.RoundTime
	drainEst     *estimator.DrainRate

	bucket *shaper.TokenBucket

	logger    *logging.PortLogger
	metrics   *telemetry.Metrics
	telemetry Telemetry

	lastIdleCheck monotime.Time

	weightTick  chan struct{}
	cancelTimer context.CancelFunc
	timerGroup  *errgroup.Group
}

// New validates and populates cfg, wires a scheduler/marker core around
// it, and returns a ready-to-use Port with a fresh random identifier. A
// nil cfg is valid and equivalent to an empty one. telemetry may be nil,
// in which case trace lines are discarded; reg may be nil, in which case
// a private registry is used.
func New(cfg *Config, tel Telemetry, reg *prometheus.Registry) (*Port, error) {
	return newPort(uuid.NewString(), cfg, clock.Real{}, tel, reg)
}

func newPort(id string, cfg *Config, clk clock.Clock, tel Telemetry, reg *prometheus.Registry) (*Port, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	cfg = populateConfig(cfg)

	queues := make([]*queue.Queue, cfg.QueueNum)
	for i := range queues {
		queues[i] = queue.New(
			protocol.QueueIndex(i),
			cfg.QueueWeight[i],
			cfg.QueueQuantum[i],
			cfg.QueueThresh[i],
			queueBufferLimit(cfg, i),
		)
	}

	admCtl := &admission.Controller{
		Mode:            admissionMode(cfg.BufferMode),
		SharedBufferLim: cfg.SharedBufferBytes,
	}

	prioCount := protocol.QueueIndex(cfg.PrioQueueNum)
	var discipline scheduler.Discipline
	var roundTimeEst *estimator.RoundTime
	switch {
	case int(prioCount) == cfg.QueueNum:
		discipline = scheduler.NewSP(queues)
	case cfg.usesWFQ():
		wfq := scheduler.NewWFQ(queues[prioCount:])
		if prioCount == 0 {
			discipline = wfq
		} else {
			discipline = scheduler.NewPrioWFQ(queues, prioCount, wfq)
		}
	default:
		roundTimeEst = &estimator.RoundTime{
			Alpha:             cfg.EstimateRoundAlpha,
			IntervalBytes:     cfg.EstimateIntervalBytes,
			LinkCapacityBP:    cfg.LinkCapacityBPS,
			MaxIdleIterations: cfg.EstimateMaxIdleIterations,
		}
		wrr := scheduler.NewWRR(queues[prioCount:], cfg.LinkCapacityBPS, roundTimeEst)
		if prioCount == 0 {
			discipline = wrr
		} else {
			discipline = scheduler.NewPrioWRR(queues, prioCount, wrr)
		}
	}

	params := marker.Params{
		PortThresh:     cfg.PortThresh,
		MeanPktSize:    float64(cfg.MeanPktSize),
		LinkCapacityBP: cfg.LinkCapacityBPS,
	}

	var weightSumEst *estimator.WeightSum
	var markPolicy marker.Policy
	switch cfg.MarkingScheme {
	case MarkingPerQueue:
		markPolicy = marker.PerQueue{Params: params}
	case MarkingPerPort:
		markPolicy = marker.PerPort{Params: params}
	case MarkingMQGen:
		if _, ok := discipline.(scheduler.WeightSumSource); !ok {
			return nil, configErrorf("MarkingScheme", "MQ-Gen requires a WFQ or WRR lower tier")
		}
		weightSumEst = &estimator.WeightSum{
			Alpha:          cfg.EstimateWeightAlpha,
			IntervalBytes:  cfg.EstimateIntervalBytes,
			LinkCapacityBP: cfg.LinkCapacityBPS,
		}
		markPolicy = marker.MQECNGen{Params: params, Estimate: weightSumEst, ByQuantum: roundTimeEst != nil}
	case MarkingMQRR:
		if roundTimeEst == nil {
			return nil, configErrorf("MarkingScheme", "MQ-RR requires a WRR lower tier")
		}
		markPolicy = marker.MQECNRR{Params: params, RoundTime: roundTimeEst}
	case MarkingLatency:
		markPolicy = marker.Latency{Params: params}
	case MarkingPIE:
		markPolicy = marker.PIELike{Params: params, DrainEst: marker.QueueDrainRate{}}
	case MarkingCoDel:
		markPolicy = marker.Codel{
			Target:   time.Duration(cfg.CodelTargetNS),
			Interval: time.Duration(cfg.CodelIntervalNS),
		}
	default:
		return nil, configErrorf("MarkingScheme", "unknown marking scheme %q", cfg.MarkingScheme)
	}

	// The drain-rate estimator is maintained on every dequeue regardless
	// of marking scheme, mirroring the kernel source's always-on
	// dq_count bookkeeping.
	drainEst := &estimator.DrainRate{
		Beta:           cfg.EstimateRateAlpha,
		DQThreshBytes:  cfg.DQThreshBytes,
		LinkCapacityBP: cfg.LinkCapacityBPS,
	}

	var bucket *shaper.TokenBucket
	if bucketNS := effectiveBucketNS(cfg); bucketNS > 0 {
		bucket = shaper.NewTokenBucket(cfg.LinkCapacityBPS, bucketNS, clk.Now())
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if tel == nil {
		tel = telemetry.NewWriter(io.Discard)
	}

	p := &Port{
		id:            id,
		cfg:           cfg,
		clk:           clk,
		queues:        queues,
		admission:     admCtl,
		discipline:    discipline,
		markPolicy:    markPolicy,
		weightSumEst:  weightSumEst,
		roundTimeEst:  roundTimeEst,
		drainEst:      drainEst,
		bucket:        bucket,
		logger:        logging.NewPortLogger(id, cfg.Debug),
		metrics:       telemetry.NewMetrics(reg, id),
		telemetry:     tel,
		lastIdleCheck: clk.Now(),
	}

	if cfg.EstimateWeightEnableTimer && cfg.MarkingScheme == MarkingMQGen {
		p.startWeightTimer()
	}

	return p, nil
}

func admissionMode(mode BufferMode) admission.Mode {
	if mode == BufferStatic {
		return admission.Static
	}
	return admission.Shared
}

func queueBufferLimit(cfg *Config, i int) protocol.ByteCount {
	if cfg.BufferMode == BufferStatic {
		return cfg.QueueBufferBytes[i]
	}
	return protocol.MaxByteCount
}

// effectiveBucketNS reconciles the shaper's two equivalent size knobs
// (spec.md §6: "bucket_bytes / bucket_ns"), taking whichever yields the
// larger ns-equivalent bucket capacity at the configured link rate.
func effectiveBucketNS(cfg *Config) int64 {
	bucketNS := cfg.BucketDurationNS
	if cfg.LinkCapacityBPS > 0 && cfg.BucketBytes > 0 {
		bytesNS := int64(float64(cfg.BucketBytes) * 8 / cfg.LinkCapacityBPS * 1e9)
		if bytesNS > bucketNS {
			bucketNS = bytesNS
		}
	}
	return bucketNS
}

// Enqueue classifies pkt's already-assigned queue (clamping an
// out-of-range index to the last queue, per spec: "this clamp is a
// contract, not an error"), runs admission control, and on acceptance
// applies enqueue-side marking.
func (p *Port) Enqueue(pkt Packet) EnqueueResult {
	now := p.clk.Now()
	p.drainWeightTick(now)
	// Idle-period decay must land before the enqueue-time marking
	// predicate reads Ŵ/round_time, matching the kernel's
	// dwrr_qdisc_enqueue (sch_dwrr/main.c:465-498), which applies it at
	// the top of enqueue rather than leaving it to the next dequeue.
	p.checkIdle(now)

	idx := pkt.Queue
	if idx < 0 || int(idx) >= len(p.queues) {
		idx = protocol.QueueIndex(len(p.queues) - 1)
	}
	q := p.queues[idx]

	pktBytes := pkt.Length + p.cfg.FramingOverheadBytes
	if !p.admission.Admit(q, pktBytes) {
		p.metrics.IncDrop(protocol.DropBufferFull)
		p.logger.LogDrop(idx, protocol.DropBufferFull, pktBytes)
		return EnqueueResult{Accepted: false, Reason: protocol.DropBufferFull}
	}

	pkt.Queue = idx
	pkt.Length = pktBytes
	q.PushBack(pkt)
	p.admission.OnEnqueue(pktBytes)
	p.discipline.OnEnqueue(idx, now)

	tail, ok := q.PeekTail()
	invariant.Assert(ok, "port: enqueue onto queue %d left no tail packet", idx)
	if p.markPolicy.OnEnqueue(q, tail, p.admission.TotalBytes(), now) {
		tail.CE = true
		p.metrics.IncMark(string(p.cfg.MarkingScheme))
		p.logger.LogMark(idx, string(p.cfg.MarkingScheme), q.Bytes())
	}

	p.metrics.SetQueueDepth(idx, q.Bytes())
	return EnqueueResult{Accepted: true}
}

// Dequeue selects the next packet per the configured discipline, applies
// the shaper (if any) and dequeue-side marking, and returns it. ok is
// false when no queue is eligible; WakeSet distinguishes "nothing
// backlogged" from "the shaper is holding a ready packet for tokens".
func (p *Port) Dequeue() DequeueResult {
	now := p.clk.Now()
	p.drainWeightTick(now)
	p.sampleWeightSum(now)
	p.checkIdle(now)

	idx, ok := p.discipline.SelectForDequeue(now)
	if !ok {
		return DequeueResult{}
	}
	q := p.queues[idx]
	head, ok := q.PeekHead()
	invariant.Assert(ok, "port: selected queue %d has no head packet", idx)

	if p.bucket != nil {
		dec := p.bucket.TryDequeue(head.Length, now)
		if !dec.Emit {
			wait := dec.WakeAt.Sub(now)
			p.metrics.IncShaperDefer()
			p.logger.LogShaperDefer(wait)
			return DequeueResult{WakeAt: int64(dec.WakeAt), WakeSet: true}
		}
	}

	pkt, ok := q.PopFront()
	invariant.Assert(ok, "port: selected queue %d drained between peek and pop", idx)
	p.discipline.OnDequeue(idx, pkt.Length, now)
	p.admission.OnDequeue(pkt.Length)
	p.drainEst.OnDequeue(q, pkt.Length, now)

	if p.markPolicy.OnDequeue(q, &pkt, now) {
		pkt.CE = true
		p.metrics.IncMark(string(p.cfg.MarkingScheme))
		p.logger.LogMark(idx, string(p.cfg.MarkingScheme), q.Bytes())
	}

	p.metrics.SetQueueDepth(idx, q.Bytes())
	p.logger.LogSelect(disciplineName(p.discipline), idx)
	return DequeueResult{Packet: pkt, Ok: true}
}

// sampleWeightSum implements the data-path-polling variant of the
// weight-sum EWMA (spec.md §4.7(b)): a no-op whenever the explicit-timer
// variant is in use, or the marking scheme doesn't consume it.
func (p *Port) sampleWeightSum(now monotime.Time) {
	if p.weightSumEst == nil || p.cfg.EstimateWeightEnableTimer {
		return
	}
	if ws, ok := p.discipline.(scheduler.WeightSumSource); ok {
		p.weightSumEst.Poll(int64(now), ws.ActiveShareSum())
	}
}

// checkIdle applies the idle-period EWMA decay (spec.md §4.7) once the
// discipline's active share sum drops to zero, tracking how long it's
// stayed there since the last check.
func (p *Port) checkIdle(now monotime.Time) {
	ws, ok := p.discipline.(scheduler.WeightSumSource)
	if !ok || ws.ActiveShareSum() != 0 {
		p.lastIdleCheck = now
		return
	}
	idle := now.Sub(p.lastIdleCheck)
	if idle <= 0 {
		return
	}
	if p.weightSumEst != nil {
		p.weightSumEst.DecayIdle(int64(idle))
	}
	if p.roundTimeEst != nil {
		p.roundTimeEst.DecayIdle(float64(idle), p.cfg.EstimateQuantumAlpha)
	}
	p.lastIdleCheck = now
}

// startWeightTimer launches the optional explicit-timer goroutine for the
// weight-sum EWMA (spec.md §5: "the only cross-context interaction").
// The timer never touches estimator state itself — it only signals a
// buffered channel that the data path drains on its own thread, so the
// estimator "shares no state without it".
func (p *Port) startWeightTimer() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelTimer = cancel
	p.weightTick = make(chan struct{}, 1)

	g, ctx := errgroup.WithContext(ctx)
	p.timerGroup = g

	period := weightSumPeriod(p.cfg)
	g.Go(func() error {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				select {
				case p.weightTick <- struct{}{}:
				default:
					// Data path hasn't drained the last tick; drop this
					// one rather than block the timer goroutine.
				}
			}
		}
	})
}

func weightSumPeriod(cfg *Config) time.Duration {
	if cfg.LinkCapacityBPS <= 0 {
		return time.Second
	}
	return time.Duration(cfg.EstimateIntervalBytes * 8 / cfg.LinkCapacityBPS * 1e9)
}

// drainWeightTick applies at most one pending timer tick to the
// weight-sum EWMA, called at the start of every data-path operation so
// the update happens on the data path's own serial context.
func (p *Port) drainWeightTick(now monotime.Time) {
	if p.weightTick == nil {
		return
	}
	select {
	case <-p.weightTick:
		if ws, ok := p.discipline.(scheduler.WeightSumSource); ok && p.weightSumEst != nil {
			p.weightSumEst.Tick(int64(now), ws.ActiveShareSum())
		}
	default:
	}
}

func disciplineName(d scheduler.Discipline) string {
	switch d.(type) {
	case *scheduler.SP:
		return "SP"
	case *scheduler.WFQ:
		return "WFQ"
	case *scheduler.WRR:
		return "WRR"
	case *scheduler.PrioWFQ:
		return "Prio+WFQ"
	case *scheduler.PrioWRR:
		return "Prio+WRR"
	default:
		return "unknown"
	}
}

// Configure applies a runtime configuration change (spec.md §6:
// "configure(key, value)"). Only the per-queue override keys and debug
// logging are mutable after construction; anything that would require
// rebuilding the marker or discipline (marking_scheme, queue_num, the
// two-tier split) needs a fresh Port.
func (p *Port) Configure(key string, value any) error {
	switch key {
	case "debug":
		v, ok := value.(bool)
		if !ok {
			return configErrorf(key, "want bool, got %T", value)
		}
		p.cfg.Debug = v
		p.logger = logging.NewPortLogger(p.id, v)
	case "queue_weight":
		v, ok := value.([]float64)
		if !ok {
			return configErrorf(key, "want []float64, got %T", value)
		}
		if len(v) != len(p.queues) {
			return configErrorf(key, "want %d entries, got %d", len(p.queues), len(v))
		}
		for i, w := range v {
			if w <= 0 {
				return configErrorf(key, "queue %d: non-positive weight %v", i, w)
			}
		}
		for i, q := range p.queues {
			q.Weight = v[i]
		}
		p.cfg.QueueWeight = v
	case "queue_quantum":
		v, ok := value.([]protocol.ByteCount)
		if !ok {
			return configErrorf(key, "want []protocol.ByteCount, got %T", value)
		}
		if len(v) != len(p.queues) {
			return configErrorf(key, "want %d entries, got %d", len(p.queues), len(v))
		}
		for i, qv := range v {
			if qv <= 0 {
				return configErrorf(key, "queue %d: non-positive quantum %v", i, qv)
			}
		}
		for i, q := range p.queues {
			q.Quantum = v[i]
		}
		p.cfg.QueueQuantum = v
	case "queue_thresh":
		v, ok := value.([]float64)
		if !ok {
			return configErrorf(key, "want []float64, got %T", value)
		}
		if len(v) != len(p.queues) {
			return configErrorf(key, "want %d entries, got %d", len(p.queues), len(v))
		}
		for i, q := range p.queues {
			q.ThreshK = v[i]
		}
		p.cfg.QueueThresh = v
	default:
		return configErrorf(key, "unknown or immutable configuration key")
	}
	return nil
}

// TraceTotal writes the current total byte occupancy to the telemetry
// sink, tagged with tick.
func (p *Port) TraceTotal(tick int64) error {
	return p.telemetry.TraceTotal(tick, p.admission.TotalBytes())
}

// TracePerQueue writes the current per-queue byte occupancy to the
// telemetry sink, tagged with tick.
func (p *Port) TracePerQueue(tick int64) error {
	bytes := make([]protocol.ByteCount, len(p.queues))
	for i, q := range p.queues {
		bytes[i] = q.Bytes()
	}
	return p.telemetry.TracePerQueue(tick, bytes)
}

// Close stops the optional weight-sum timer goroutine, if one was
// started, and waits for it to exit.
func (p *Port) Close() error {
	if p.cancelTimer != nil {
		p.cancelTimer()
	}
	if p.timerGroup != nil {
		return p.timerGroup.Wait()
	}
	return nil
}
