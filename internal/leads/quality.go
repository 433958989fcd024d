package leads

// QualityScore augments the intent score with deliverability inputs:
// market value bands, signal volume, and contact availability. These
// matter to buyers but never to intent, so they stay out of scoring.
func QualityScore(intentScore float64, marketValue *float64, signalCount int, hasContact bool) float64 {
	q := intentScore

	if marketValue != nil {
		switch {
		case *marketValue > 500000:
			q += 0.10
		case *marketValue > 300000:
			q += 0.05
		}
	}

	countBoost := float64(signalCount) * 0.02
	if countBoost > 0.10 {
		countBoost = 0.10
	}
	q += countBoost

	if hasContact {
		q += 0.10
	}

	if q > 1.0 {
		q = 1.0
	}
	return q
}
