package testnd

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// tThreshold returns the positive t value for a two-tailed uncorrected
// probability threshold p.
func tThreshold(p float64, df int) float64 {
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return t.Quantile(1 - p/2)
}

// tPValueTwoTailed returns the two-tailed probability for a t statistic.
func tPValueTwoTailed(t float64, df int) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return 2 * (1 - dist.CDF(math.Abs(t)))
}

// rThreshold converts an uncorrected probability threshold to a correlation
// coefficient threshold through the t distribution with df = n - 2.
// The one-tailed inverse survival function is intentional; the correlation
// test does not follow the t-test's p/2 convention.
func rThreshold(p float64, df int) float64 {
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}.Quantile(1 - p)
	return t / math.Sqrt(float64(df)+t*t)
}

// fThreshold returns the F value for an uncorrected probability threshold.
func fThreshold(p float64, dfNum, dfDen int) float64 {
	f := distuv.F{D1: float64(dfNum), D2: float64(dfDen)}
	return f.Quantile(1 - p)
}
