package ports

// ModelFitter fits a fixed linear model to dependent data and yields one
// F-map per model effect. The ANOVA driver re-invokes FMaps with permuted
// responses against the same design.
type ModelFitter interface {
	// Effects returns the effect names in model order.
	Effects() []string

	// EffectDf returns the numerator degrees of freedom for an effect.
	EffectDf(name string) int

	// ErrorDf returns the residual (denominator) degrees of freedom.
	ErrorDf() int

	// FMaps computes the F statistic per effect for y laid out as
	// (nCases, nPoints) row-major. Each returned map has nPoints entries.
	FMaps(y []float64, nCases, nPoints int) (map[string][]float64, error)
}
