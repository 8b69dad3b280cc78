package compatibility

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// RuleStats is a snapshot of one rule's execution counters
type RuleStats struct {
	RuleName        string
	Evaluations     int64
	Successes       int64
	Faults          int64
	BreakingChanges int64
	TotalDuration   time.Duration
}

// AverageDuration returns the mean evaluation time
func (s RuleStats) AverageDuration() time.Duration {
	if s.Evaluations == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Evaluations)
}

type ruleCounters struct {
	evaluations     atomic.Int64
	successes       atomic.Int64
	faults          atomic.Int64
	breakingChanges atomic.Int64
	nanos           atomic.Int64
}

// statsCollector keeps per-rule counters
type statsCollector struct {
	counters sync.Map // rule name -> *ruleCounters
}

func (s *statsCollector) record(result *RuleResult) {
	v, _ := s.counters.LoadOrStore(result.RuleName, &ruleCounters{})
	c := v.(*ruleCounters)
	c.evaluations.Add(1)
	if result.Success {
		c.successes.Add(1)
	} else {
		c.faults.Add(1)
	}
	c.breakingChanges.Add(int64(len(result.BreakingChanges)))
	c.nanos.Add(int64(result.Duration))
}

func (s *statsCollector) snapshot() []RuleStats {
	var out []RuleStats
	s.counters.Range(func(key, value interface{}) bool {
		c := value.(*ruleCounters)
		out = append(out, RuleStats{
			RuleName:        key.(string),
			Evaluations:     c.evaluations.Load(),
			Successes:       c.successes.Load(),
			Faults:          c.faults.Load(),
			BreakingChanges: c.breakingChanges.Load(),
			TotalDuration:   time.Duration(c.nanos.Load()),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].RuleName < out[j].RuleName })
	return out
}

func (s *statsCollector) reset() {
	s.counters.Range(func(key, _ interface{}) bool {
		s.counters.Delete(key)
		return true
	})
}
