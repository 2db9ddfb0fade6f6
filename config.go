package portsched

import "github.com/quiclab/portsched/internal/protocol"

// MarkingScheme selects one of the six ECN-marking policies plus the
// optional CoDel variant (spec.md §4.6, §6's marking_scheme key).
type MarkingScheme string

const (
	MarkingPerQueue MarkingScheme = "PerQueue"
	MarkingPerPort  MarkingScheme = "PerPort"
	MarkingMQGen    MarkingScheme = "MQ-Gen"
	MarkingMQRR     MarkingScheme = "MQ-RR"
	MarkingLatency  MarkingScheme = "Latency"
	MarkingPIE      MarkingScheme = "PIE"
	MarkingCoDel    MarkingScheme = "CoDel"
)

// BufferMode selects shared vs. static buffer accounting (spec.md §4.1, §6).
type BufferMode string

const (
	BufferShared BufferMode = "Shared"
	BufferStatic BufferMode = "Static"
)

// Config mirrors spec.md §6's configuration surface field-for-field, plus
// the features SPEC_FULL.md §4 supplements from original_source. All
// fields are optional; Configure/New fills defaults via populateConfig
// and rejects invalid combinations via validateConfig. A nil *Config is
// valid and equivalent to an empty one, matching the teacher's own
// validateConfig(nil) contract.
type Config struct {
	// QueueNum is the total number of CoS queues, 1..64. Default 8.
	QueueNum int
	// PrioQueueNum is the size of the strict-priority tier (queues
	// [0, PrioQueueNum)); the remainder forms the WFQ or WRR tier.
	// Default 1.
	PrioQueueNum int
	// WFQQueueNum / WRRQueueNum select the lower-tier discipline for the
	// remaining QueueNum-PrioQueueNum queues. Exactly one may be
	// non-zero; it must equal QueueNum-PrioQueueNum. Default: WRRQueueNum
	// = QueueNum-1 (matching the 1/7 prio/wrr default split).
	WFQQueueNum int
	WRRQueueNum int

	// MeanPktSize is K, the mean packet size in bytes used to scale
	// every threshold and buffer budget. Default 1500.
	MeanPktSize protocol.ByteCount
	// PortThresh is the per-port ECN threshold, in K units. Default 65.
	PortThresh float64

	// QueueWeight[i] (WFQ), QueueQuantum[i] (WRR), QueueThresh[i]
	// (per-queue ECN threshold, in K units) override the uniform
	// defaults (weight=1, quantum=MeanPktSize, thresh=PortThresh) for
	// queue i. A nil or short slice falls back to the default for the
	// missing indices.
	QueueWeight  []float64
	QueueQuantum []protocol.ByteCount
	QueueThresh  []float64

	// MarkingScheme selects the ECN policy. Default MarkingPerQueue.
	MarkingScheme MarkingScheme
	// LinkCapacityBPS is C, bits/sec. Default 10e9 (10 Gbps).
	LinkCapacityBPS float64

	// DQThreshBytes is the drain-rate estimator's measurement-window
	// start threshold. Default 10000.
	DQThreshBytes protocol.ByteCount

	// EWMA gains, each in (0,1). Defaults per spec.md §6: 0.75-0.875.
	EstimateWeightAlpha   float64
	EstimateRoundAlpha    float64
	EstimateQuantumAlpha  float64
	EstimateRateAlpha     float64
	// EstimateIntervalBytes is the weight-sum/round-time sampling
	// cadence, expressed as the transmission time of N bytes. Default 1500.
	EstimateIntervalBytes float64
	// EstimateWeightEnableTimer selects the explicit-timer weight-sum
	// EWMA update path over data-path polling. Default false.
	EstimateWeightEnableTimer bool
	// EstimateMaxIdleIterations caps the round-time idle-decay loop
	// (SPEC_FULL.md §4 item 4; kernel DWRR_QDISC_MAX_ITERATION). Default 16.
	EstimateMaxIdleIterations int

	// BufferMode selects shared vs. static buffer accounting. Default BufferShared.
	BufferMode BufferMode
	// SharedBufferBytes is the shared-mode total budget. Default
	// 1000*MeanPktSize (qlim=1000 mean packets).
	SharedBufferBytes protocol.ByteCount
	// QueueBufferBytes[i] overrides the static-mode per-queue budget
	// (default 1000*MeanPktSize, an independent "qlim" per queue).
	QueueBufferBytes []protocol.ByteCount

	// BucketBytes / BucketDurationNS size the token-bucket shaper.
	// Defaults: 2500 bytes / 25000 ns.
	BucketBytes      protocol.ByteCount
	BucketDurationNS int64

	// FramingOverheadBytes is added to every packet's accounted length
	// before any byte-based threshold or shaper computation
	// (SPEC_FULL.md §4 item 2; kernel skb_size() accounting). Default 0.
	FramingOverheadBytes protocol.ByteCount

	// CodelTargetNS / CodelIntervalNS configure the optional CoDel
	// marker, only consulted when MarkingScheme == MarkingCoDel.
	// Defaults: 5ms target / 100ms interval, the canonical CoDel values.
	CodelTargetNS   int64
	CodelIntervalNS int64

	// Debug enables throttled per-decision diagnostics. Default false.
	Debug bool
}

const (
	defaultQueueNum              = 8
	defaultPrioQueueNum          = 1
	defaultMeanPktSize           = 1500
	defaultPortThresh            = 65
	defaultLinkCapacityBPS       = 10e9
	defaultDQThreshBytes         = 10000
	defaultEstimateWeightAlpha   = 0.875
	defaultEstimateRoundAlpha    = 0.75
	defaultEstimateQuantumAlpha  = 0.75
	defaultEstimateRateAlpha     = 0.875
	defaultEstimateIntervalBytes = 1500
	defaultMaxIdleIterations     = 16
	defaultBucketBytes           = 2500
	defaultBucketDurationNS      = 25_000
	defaultQlimMeanPackets       = 1000
	defaultCodelTargetNS         = 5_000_000
	defaultCodelIntervalNS       = 100_000_000
)

// populateConfig returns a fully-defaulted copy of in (nil is treated as
// an empty Config), mirroring the teacher's populateConfig(nil) contract.
func populateConfig(in *Config) *Config {
	var c Config
	if in != nil {
		c = *in
	}

	if c.QueueNum == 0 {
		c.QueueNum = defaultQueueNum
	}
	if c.PrioQueueNum == 0 && c.WFQQueueNum == 0 && c.WRRQueueNum == 0 {
		c.PrioQueueNum = defaultPrioQueueNum
		c.WRRQueueNum = c.QueueNum - c.PrioQueueNum
	}
	if c.MeanPktSize == 0 {
		c.MeanPktSize = defaultMeanPktSize
	}
	if c.PortThresh == 0 {
		c.PortThresh = defaultPortThresh
	}
	if c.MarkingScheme == "" {
		c.MarkingScheme = MarkingPerQueue
	}
	if c.LinkCapacityBPS == 0 {
		c.LinkCapacityBPS = defaultLinkCapacityBPS
	}
	if c.DQThreshBytes == 0 {
		c.DQThreshBytes = defaultDQThreshBytes
	}
	if c.EstimateWeightAlpha == 0 {
		c.EstimateWeightAlpha = defaultEstimateWeightAlpha
	}
	if c.EstimateRoundAlpha == 0 {
		c.EstimateRoundAlpha = defaultEstimateRoundAlpha
	}
	if c.EstimateQuantumAlpha == 0 {
		c.EstimateQuantumAlpha = defaultEstimateQuantumAlpha
	}
	if c.EstimateRateAlpha == 0 {
		c.EstimateRateAlpha = defaultEstimateRateAlpha
	}
	if c.EstimateIntervalBytes == 0 {
		c.EstimateIntervalBytes = defaultEstimateIntervalBytes
	}
	if c.EstimateMaxIdleIterations == 0 {
		c.EstimateMaxIdleIterations = defaultMaxIdleIterations
	}
	if c.BufferMode == "" {
		c.BufferMode = BufferShared
	}
	if c.SharedBufferBytes == 0 {
		c.SharedBufferBytes = protocol.ByteCount(defaultQlimMeanPackets) * c.MeanPktSize
	}
	if c.BucketBytes == 0 {
		c.BucketBytes = defaultBucketBytes
	}
	if c.BucketDurationNS == 0 {
		c.BucketDurationNS = defaultBucketDurationNS
	}
	if c.CodelTargetNS == 0 {
		c.CodelTargetNS = defaultCodelTargetNS
	}
	if c.CodelIntervalNS == 0 {
		c.CodelIntervalNS = defaultCodelIntervalNS
	}

	c.QueueWeight = fillFloat64(c.QueueWeight, c.QueueNum, 1)
	c.QueueQuantum = fillByteCount(c.QueueQuantum, c.QueueNum, c.MeanPktSize)
	c.QueueThresh = fillFloat64(c.QueueThresh, c.QueueNum, c.PortThresh)
	c.QueueBufferBytes = fillByteCount(c.QueueBufferBytes, c.QueueNum, protocol.ByteCount(defaultQlimMeanPackets)*c.MeanPktSize)

	return &c
}

func fillFloat64(in []float64, n int, fallback float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(in) && in[i] != 0 {
			out[i] = in[i]
		} else {
			out[i] = fallback
		}
	}
	return out
}

func fillByteCount(in []protocol.ByteCount, n int, fallback protocol.ByteCount) []protocol.ByteCount {
	out := make([]protocol.ByteCount, n)
	for i := range out {
		if i < len(in) && in[i] != 0 {
			out[i] = in[i]
		} else {
			out[i] = fallback
		}
	}
	return out
}

// validateConfig checks a Config for the configuration faults spec.md §7
// requires to be "caught by the config validator before packets flow":
// non-positive weight/quantum, out-of-range split, unknown marking scheme.
// It runs on the caller's Config before populateConfig, so zero values
// (which populateConfig replaces with defaults) are accepted; a nil c is
// valid (nothing to validate).
func validateConfig(c *Config) error {
	if c == nil {
		return nil
	}
	if c.QueueNum < 0 || c.QueueNum > protocol.MaxQueues {
		return configErrorf("QueueNum", "must be in [0, %d], got %d", protocol.MaxQueues, c.QueueNum)
	}
	if c.PrioQueueNum < 0 || (c.QueueNum != 0 && c.PrioQueueNum > c.QueueNum) {
		return configErrorf("PrioQueueNum", "must be in [0, QueueNum], got %d", c.PrioQueueNum)
	}
	if c.WFQQueueNum != 0 && c.WRRQueueNum != 0 {
		return configErrorf("WFQQueueNum/WRRQueueNum", "exactly one of WFQQueueNum, WRRQueueNum may be set")
	}
	if c.QueueNum != 0 {
		lowerNum := c.QueueNum - c.PrioQueueNum
		if c.WFQQueueNum != 0 && c.WFQQueueNum != lowerNum {
			return configErrorf("WFQQueueNum", "must equal QueueNum-PrioQueueNum (%d), got %d", lowerNum, c.WFQQueueNum)
		}
		if c.WRRQueueNum != 0 && c.WRRQueueNum != lowerNum {
			return configErrorf("WRRQueueNum", "must equal QueueNum-PrioQueueNum (%d), got %d", lowerNum, c.WRRQueueNum)
		}
	}

	switch c.MarkingScheme {
	case MarkingPerQueue, MarkingPerPort, MarkingMQGen, MarkingMQRR, MarkingLatency, MarkingPIE, MarkingCoDel, "":
	default:
		return configErrorf("MarkingScheme", "unknown marking scheme %q", c.MarkingScheme)
	}

	switch c.BufferMode {
	case BufferShared, BufferStatic, "":
	default:
		return configErrorf("BufferMode", "unknown buffer mode %q", c.BufferMode)
	}

	for i, w := range c.QueueWeight {
		if w <= 0 {
			return configErrorf("QueueWeight", "queue %d has non-positive weight %v", i, w)
		}
	}
	for i, q := range c.QueueQuantum {
		if q <= 0 {
			return configErrorf("QueueQuantum", "queue %d has non-positive quantum %v", i, q)
		}
	}
	if c.LinkCapacityBPS < 0 {
		return configErrorf("LinkCapacityBPS", "must be non-negative, got %v", c.LinkCapacityBPS)
	}
	return nil
}

// usesWFQ reports whether the lower tier is WFQ (vs. WRR), valid only
// after populateConfig.
func (c *Config) usesWFQ() bool { return c.WFQQueueNum > 0 }
