// Package classify runs the registered matchers against each observation and
// turns their output into findings. The classifier holds no catalogue state;
// persistence belongs to the store.
package classify

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mckeimic/mitmscripts/internal/finding"
	"github.com/mckeimic/mitmscripts/internal/matcher"
	"github.com/mckeimic/mitmscripts/internal/observation"
)

// Stats is a point-in-time snapshot of classifier counters.
type Stats struct {
	Observations    uint64 `json:"observations"`
	Skipped         uint64 `json:"skipped"`
	MatcherFailures uint64 `json:"matcher_failures"`
	Findings        uint64 `json:"findings"`
}

// Classifier is stateless apart from diagnostic counters and is safe for
// concurrent use from any number of proxy connections.
type Classifier struct {
	registry *matcher.Registry
	logger   *zap.SugaredLogger

	observations    atomic.Uint64
	skipped         atomic.Uint64
	matcherFailures atomic.Uint64
	findings        atomic.Uint64
}

// New builds a classifier over the given registry. A nil logger disables
// diagnostics.
func New(registry *matcher.Registry, logger *zap.SugaredLogger) *Classifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Classifier{
		registry: registry,
		logger:   logger,
	}
}

// Classify runs every registered matcher against one observation and returns
// the resulting findings. A malformed observation is skipped whole. A matcher
// that errors or panics is logged and counted; the remaining matchers still
// run. Nothing here is ever fatal to the flow of later observations.
func (c *Classifier) Classify(obs *observation.Observation) []finding.Finding {
	c.observations.Add(1)

	if err := obs.Validate(); err != nil {
		c.skipped.Add(1)
		c.logger.Warnw("observation skipped", "error", err)
		return nil
	}

	seen := time.Now().UTC()
	var findings []finding.Finding

	for _, m := range c.registry.Matchers() {
		details, err := c.runMatcher(m, obs)
		if err != nil {
			c.matcherFailures.Add(1)
			c.logger.Warnw("matcher failed",
				"kind", m.Kind(),
				"host", obs.Host,
				"url", obs.URL.String(),
				"error", err,
			)
			continue
		}
		for _, d := range details {
			findings = append(findings, finding.New(obs.Host, m.Kind(), d, seen))
		}
	}

	c.findings.Add(uint64(len(findings)))
	return findings
}

// runMatcher isolates one matcher invocation, converting a panic into an
// error so a single misbehaving matcher cannot take down classification.
func (c *Classifier) runMatcher(m matcher.Matcher, obs *observation.Observation) (details []finding.Detail, err error) {
	defer func() {
		if r := recover(); r != nil {
			details = nil
			err = fmt.Errorf("matcher %s panicked: %v", m.Kind(), r)
		}
	}()
	return m.Match(obs)
}

// Stats returns a snapshot of the diagnostic counters.
func (c *Classifier) Stats() Stats {
	return Stats{
		Observations:    c.observations.Load(),
		Skipped:         c.skipped.Load(),
		MatcherFailures: c.matcherFailures.Load(),
		Findings:        c.findings.Load(),
	}
}
