package analysis

// Outcome is what a scorer derives from the working set. MeanAccuracy and
// MeanSpeedWPM are supporting metrics used to derive the triple; they are
// returned for the decision record's confidence, not persisted raw.
type Outcome struct {
	Decision     Decision
	Confidence   float64
	RiskLevel    RiskLevel
	MeanAccuracy float64
	MeanSpeedWPM float64
}

// Scorer is the pluggable risk model. Implementations must be monotonic:
// worse metrics never produce a lower severity.
type Scorer interface {
	Score(points []BehavioralPoint) Outcome
}

// ThresholdScorer is the reference model: two threshold pairs over mean
// accuracy and mean typing speed escalate severity one tier at a time from
// the PASS baseline.
type ThresholdScorer struct {
	FlagAccuracy     float64
	FlagSpeedWPM     float64
	EscalateAccuracy float64
	EscalateSpeedWPM float64
}

// NewThresholdScorer returns the scorer with default thresholds.
func NewThresholdScorer() ThresholdScorer {
	return ThresholdScorer{
		FlagAccuracy:     60,
		FlagSpeedWPM:     20,
		EscalateAccuracy: 45,
		EscalateSpeedWPM: 8,
	}
}

func (t ThresholdScorer) Score(points []BehavioralPoint) Outcome {
	var accSum, speedSum float64
	for _, p := range points {
		accSum += p.Accuracy
		speedSum += p.SpeedWPM
	}
	n := float64(len(points))
	meanAcc := accSum / n
	meanSpeed := speedSum / n

	out := Outcome{
		Decision:     DecisionPass,
		RiskLevel:    RiskLow,
		MeanAccuracy: meanAcc,
		MeanSpeedWPM: meanSpeed,
	}
	if meanAcc < t.FlagAccuracy || meanSpeed < t.FlagSpeedWPM {
		out.Decision = DecisionFlag
		out.RiskLevel = RiskMedium
	}
	if meanAcc < t.EscalateAccuracy || meanSpeed < t.EscalateSpeedWPM {
		out.Decision = DecisionEscalate
		out.RiskLevel = RiskHigh
	}

	out.Confidence = confidence(out.Decision, meanAcc, meanSpeed, t)
	return out
}

// confidence reflects how far the metrics sit from the nearest threshold
// boundary, clamped to [0.5, 0.99]. A sample right on a boundary scores low
// confidence; a sample deep inside its band scores high.
func confidence(d Decision, meanAcc, meanSpeed float64, t ThresholdScorer) float64 {
	var distance float64
	switch d {
	case DecisionPass:
		distance = min((meanAcc-t.FlagAccuracy)/t.FlagAccuracy, (meanSpeed-t.FlagSpeedWPM)/t.FlagSpeedWPM)
	case DecisionFlag:
		distance = min((t.FlagAccuracy-meanAcc)/t.FlagAccuracy, (t.FlagSpeedWPM-meanSpeed)/t.FlagSpeedWPM)
		if distance < 0 {
			// Only one metric tripped the tier; use the one that did.
			distance = max((t.FlagAccuracy-meanAcc)/t.FlagAccuracy, (t.FlagSpeedWPM-meanSpeed)/t.FlagSpeedWPM)
		}
	case DecisionEscalate:
		distance = max((t.EscalateAccuracy-meanAcc)/t.EscalateAccuracy, (t.EscalateSpeedWPM-meanSpeed)/t.EscalateSpeedWPM)
	}
	c := 0.5 + distance
	if c > 0.99 {
		c = 0.99
	}
	if c < 0.5 {
		c = 0.5
	}
	return c
}
