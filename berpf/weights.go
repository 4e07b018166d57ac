package berpf

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// weightUpdate folds per-particle log-likelihoods into the predicted
// weights and normalizes the result in the log domain:
//
//	w[i] = Lt[i]*wp[i] / sum_j(Lt[j]*wp[j])
//
// Particles with an exactly-zero predicted weight carry no posterior mass
// and are excluded from the log computation; their posterior weight stays
// zero. If every predicted weight is zero the caller has violated its
// contract and the returned vector is all zeros, which turns into NaNs on
// the caller's renormalization.
func weightUpdate(logLt, weightsPred []float64) []float64 {
	idx := make([]int, 0, len(weightsPred))
	x := make([]float64, 0, len(weightsPred))
	for i, wp := range weightsPred {
		if wp == 0 {
			continue
		}
		idx = append(idx, i)
		x = append(x, logLt[i]+math.Log(wp))
	}

	w := make([]float64, len(weightsPred))
	if len(x) == 0 {
		return w
	}

	lse := floats.LogSumExp(x)
	for k, i := range idx {
		w[i] = math.Exp(x[k] - lse)
	}

	return w
}

// updateExistenceProb computes the posterior target existence probability
// from the predicted weights, the per-particle log-likelihood ratios and
// the predicted existence probability qp. It approximates the integral
//
//	I = sum_i wp[i]*Ratio[i]
//
// and evaluates the Bernoulli update q = I*qp / (1 - qp + qp*I) entirely
// in the log domain, so that extreme likelihood ratios cannot overflow I.
// The result is clamped to [0, 1]: rounding can push the raw quotient
// slightly above 1 and the clamp keeps the reported probability valid.
func updateExistenceProb(weightsPred, logRatio []float64, probPred float64) float64 {
	logProbPred := math.Log(probPred)

	x1 := make([]float64, 0, len(weightsPred))
	x2 := make([]float64, 1, len(weightsPred)+1)
	x2[0] = math.Log(1 - probPred)

	for i, wp := range weightsPred {
		if wp == 0 {
			continue
		}
		t := logRatio[i] + math.Log(wp)
		x1 = append(x1, t)
		x2 = append(x2, t+logProbPred)
	}

	if len(x1) == 0 {
		return math.NaN()
	}

	logq := floats.LogSumExp(x1) + logProbPred - floats.LogSumExp(x2)
	q := math.Exp(logq)

	if q > 1 {
		return 1
	}
	if q < 0 {
		return 0
	}

	return q
}

// updateExistenceProbLinear is the direct-domain form of the existence
// update. exp(logRatio) overflows for strong detections, in which case
// the update degrades to certain existence. The filter uses the
// log-domain form above; this one is retained as the reference fallback
// behavior for the non-finite integral case.
func updateExistenceProbLinear(weightsPred, logRatio []float64, probPred float64) float64 {
	var integral float64
	for i, wp := range weightsPred {
		integral += wp * math.Exp(logRatio[i])
	}

	if math.IsInf(integral, 0) || math.IsNaN(integral) {
		return 1.0
	}

	return integral * probPred / (1 - probPred + probPred*integral)
}

// nEff is the effective sample size 1/sum(w^2) of a weight vector.
func nEff(w []float64) float64 {
	return 1 / floats.Dot(w, w)
}

// nEffNormalized is the effective sample size of a weight slice after
// renormalizing just that slice to sum to 1.
func nEffNormalized(w []float64) float64 {
	s := floats.Sum(w)
	var ss float64
	for _, v := range w {
		v /= s
		ss += v * v
	}
	return 1 / ss
}
