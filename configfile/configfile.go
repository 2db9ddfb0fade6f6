// Package configfile loads a portsched.Config from a YAML file, the way
// the retrieval pack's PII pattern registry is loaded (tokligence's
// internal/firewall/pii_patterns_loader.go: os.ReadFile + yaml.Unmarshal,
// wrapped errors) rather than a bespoke parser.
package configfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quiclab/portsched"
)

// file mirrors portsched.Config field-for-field under yaml tags matching
// spec.md §6's configuration-surface key names, so a config file reads
// like the spec's own option table.
type file struct {
	QueueNum     int `yaml:"queue_num"`
	PrioQueueNum int `yaml:"prio_queue_num"`
	WFQQueueNum  int `yaml:"wfq_queue_num"`
	WRRQueueNum  int `yaml:"wrr_queue_num"`

	MeanPktSize int64   `yaml:"mean_pktsize"`
	PortThresh  float64 `yaml:"port_thresh"`

	QueueWeight  []float64 `yaml:"queue_weight"`
	QueueQuantum []int64   `yaml:"queue_quantum"`
	QueueThresh  []float64 `yaml:"queue_thresh"`

	MarkingScheme   string  `yaml:"marking_scheme"`
	LinkCapacityBPS float64 `yaml:"link_capacity"`
	DQThreshBytes   int64   `yaml:"dq_thresh"`

	EstimateWeightAlpha       float64 `yaml:"estimate_weight_alpha"`
	EstimateRoundAlpha        float64 `yaml:"estimate_round_alpha"`
	EstimateQuantumAlpha      float64 `yaml:"estimate_quantum_alpha"`
	EstimateRateAlpha         float64 `yaml:"estimate_rate_alpha"`
	EstimateIntervalBytes     float64 `yaml:"estimate_interval_bytes"`
	EstimateWeightEnableTimer bool    `yaml:"estimate_weight_enable_timer"`
	EstimateMaxIdleIterations int     `yaml:"estimate_max_idle_iterations"`

	BufferMode        string  `yaml:"buffer_mode"`
	SharedBufferBytes int64   `yaml:"shared_buffer_bytes"`
	QueueBufferBytes  []int64 `yaml:"queue_buffer_bytes"`

	BucketBytes      int64 `yaml:"bucket_bytes"`
	BucketDurationNS int64 `yaml:"bucket_ns"`

	FramingOverheadBytes int64 `yaml:"framing_overhead_bytes"`

	CodelTargetNS   int64 `yaml:"codel_target_ns"`
	CodelIntervalNS int64 `yaml:"codel_interval_ns"`

	Debug bool `yaml:"debug"`
}

// Load reads path and returns the portsched.Config it describes. Missing
// keys are left zero, so the usual Config defaulting (populateConfig,
// applied by portsched.New) still takes effect for anything the file
// doesn't set.
func Load(path string) (*portsched.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configfile: read %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("configfile: parse %s: %w", path, err)
	}

	return f.toConfig(), nil
}

func (f file) toConfig() *portsched.Config {
	return &portsched.Config{
		QueueNum:                  f.QueueNum,
		PrioQueueNum:              f.PrioQueueNum,
		WFQQueueNum:               f.WFQQueueNum,
		WRRQueueNum:               f.WRRQueueNum,
		MeanPktSize:               portsched.ByteCount(f.MeanPktSize),
		PortThresh:                f.PortThresh,
		QueueWeight:               f.QueueWeight,
		QueueQuantum:              toByteCounts(f.QueueQuantum),
		QueueThresh:               f.QueueThresh,
		MarkingScheme:             portsched.MarkingScheme(f.MarkingScheme),
		LinkCapacityBPS:           f.LinkCapacityBPS,
		DQThreshBytes:             portsched.ByteCount(f.DQThreshBytes),
		EstimateWeightAlpha:       f.EstimateWeightAlpha,
		EstimateRoundAlpha:        f.EstimateRoundAlpha,
		EstimateQuantumAlpha:      f.EstimateQuantumAlpha,
		EstimateRateAlpha:         f.EstimateRateAlpha,
		EstimateIntervalBytes:     f.EstimateIntervalBytes,
		EstimateWeightEnableTimer: f.EstimateWeightEnableTimer,
		EstimateMaxIdleIterations: f.EstimateMaxIdleIterations,
		BufferMode:                portsched.BufferMode(f.BufferMode),
		SharedBufferBytes:         portsched.ByteCount(f.SharedBufferBytes),
		QueueBufferBytes:          toByteCounts(f.QueueBufferBytes),
		BucketBytes:               portsched.ByteCount(f.BucketBytes),
		BucketDurationNS:          f.BucketDurationNS,
		FramingOverheadBytes:      portsched.ByteCount(f.FramingOverheadBytes),
		CodelTargetNS:             f.CodelTargetNS,
		CodelIntervalNS:           f.CodelIntervalNS,
		Debug:                     f.Debug,
	}
}

func toByteCounts(in []int64) []portsched.ByteCount {
	if in == nil {
		return nil
	}
	out := make([]portsched.ByteCount, len(in))
	for i, v := range in {
		out[i] = portsched.ByteCount(v)
	}
	return out
}
