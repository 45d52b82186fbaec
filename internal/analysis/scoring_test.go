package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func severityRank(d Decision) int {
	switch d {
	case DecisionPass:
		return 0
	case DecisionFlag:
		return 1
	default:
		return 2
	}
}

func TestThresholdScorer(t *testing.T) {
	scorer := NewThresholdScorer()

	tests := []struct {
		name     string
		accuracy float64
		speed    float64
		decision Decision
		risk     RiskLevel
	}{
		{"healthy typing", 95, 45, DecisionPass, RiskLow},
		{"severely degraded typing", 40, 3, DecisionEscalate, RiskHigh},
		{"low accuracy alone", 55, 40, DecisionFlag, RiskMedium},
		{"low speed alone", 90, 15, DecisionFlag, RiskMedium},
		{"accuracy below escalation floor", 44, 40, DecisionEscalate, RiskHigh},
		{"speed below escalation floor", 90, 7, DecisionEscalate, RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := scorer.Score([]BehavioralPoint{{Accuracy: tt.accuracy, SpeedWPM: tt.speed}})
			assert.Equal(t, tt.decision, out.Decision)
			assert.Equal(t, tt.risk, out.RiskLevel)
			assert.GreaterOrEqual(t, out.Confidence, 0.0)
			assert.LessOrEqual(t, out.Confidence, 1.0)
		})
	}

	t.Run("averages across points", func(t *testing.T) {
		out := scorer.Score([]BehavioralPoint{
			{Accuracy: 90, SpeedWPM: 40},
			{Accuracy: 30, SpeedWPM: 10},
		})
		assert.InDelta(t, 60.0, out.MeanAccuracy, 0.001)
		assert.InDelta(t, 25.0, out.MeanSpeedWPM, 0.001)
	})

	t.Run("monotonic severity", func(t *testing.T) {
		// Walking both metrics downward must never lower the severity.
		prev := -1
		for acc := 100.0; acc >= 0; acc -= 5 {
			speed := acc / 2
			out := scorer.Score([]BehavioralPoint{{Accuracy: acc, SpeedWPM: speed}})
			rank := severityRank(out.Decision)
			assert.GreaterOrEqual(t, rank, prev, "severity dropped at accuracy %v", acc)
			prev = rank
		}
	})
}
