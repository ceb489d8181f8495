package testnd

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// chunkElements bounds how many elements a single statistic pass touches at
// once; larger inputs are split along the point axis.
const chunkElements = 1 << 25

// tIndMap computes the independent-samples t statistic per point. The first
// n1 cases are group a, the remaining cases group b. Pooled variance, sample
// variance with divisor n-1.
func tIndMap(y []float64, nCases, nPoints, n1 int) []float64 {
	n2 := nCases - n1
	df := float64(n1 + n2 - 2)
	fn1, fn2 := float64(n1), float64(n2)
	out := make([]float64, nPoints)
	for j := 0; j < nPoints; j++ {
		var sumA, sumB float64
		for i := 0; i < n1; i++ {
			sumA += y[i*nPoints+j]
		}
		for i := n1; i < nCases; i++ {
			sumB += y[i*nPoints+j]
		}
		meanA := sumA / fn1
		meanB := sumB / fn2
		var ssA, ssB float64
		for i := 0; i < n1; i++ {
			d := y[i*nPoints+j] - meanA
			ssA += d * d
		}
		for i := n1; i < nCases; i++ {
			d := y[i*nPoints+j] - meanB
			ssB += d * d
		}
		v1 := ssA / (fn1 - 1)
		v2 := ssB / (fn2 - 1)
		svar := ((fn1-1)*v1 + (fn2-1)*v2) / df
		denom := math.Sqrt(svar * (1/fn1 + 1/fn2))
		out[j] = (meanA - meanB) / denom
	}
	return out
}

// tRelMap computes the related-samples t statistic per point on a
// concatenated sample array: the first half minus the second half.
func tRelMap(y []float64, nCases, nPoints int) []float64 {
	n := nCases / 2
	fn := float64(n)
	out := make([]float64, nPoints)
	for j := 0; j < nPoints; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += y[i*nPoints+j] - y[(i+n)*nPoints+j]
		}
		mean := sum / fn
		var ss float64
		for i := 0; i < n; i++ {
			d := y[i*nPoints+j] - y[(i+n)*nPoints+j] - mean
			ss += d * d
		}
		v := ss / (fn - 1)
		out[j] = mean / math.Sqrt(v/fn)
	}
	return out
}

func t1SampRange(y []float64, nCases, nPoints int, popmean float64, j0, j1 int, out []float64) {
	fn := float64(nCases)
	for j := j0; j < j1; j++ {
		var sum float64
		for i := 0; i < nCases; i++ {
			sum += y[i*nPoints+j]
		}
		mean := sum / fn
		var ss float64
		for i := 0; i < nCases; i++ {
			d := y[i*nPoints+j] - mean
			ss += d * d
		}
		v := ss / (fn - 1)
		out[j] = (mean - popmean) / math.Sqrt(v/fn)
	}
}

// t1SampMap computes the one-sample t statistic against popmean. Arrays over
// the chunk limit are processed in fixed-size point ranges; the split only
// bounds the working set per pass and cannot change the numbers, so the
// ranges run concurrently into disjoint output slices.
func t1SampMap(ctx context.Context, y []float64, nCases, nPoints int, popmean float64) ([]float64, error) {
	out := make([]float64, nPoints)
	if nCases*nPoints <= chunkElements {
		t1SampRange(y, nCases, nPoints, popmean, 0, nPoints, out)
		return out, nil
	}

	chunk := chunkElements / nCases
	if chunk < 1 {
		chunk = 1
	}
	g, _ := errgroup.WithContext(ctx)
	for start := 0; start < nPoints; start += chunk {
		j0 := start
		j1 := start + chunk
		if j1 > nPoints {
			j1 = nPoints
		}
		g.Go(func() error {
			t1SampRange(y, nCases, nPoints, popmean, j0, j1, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// corrMap computes the Pearson correlation of a centered predictor x with
// every point column of y. Covariance uses divisor n-1; standard deviations
// use divisor n.
func corrMap(y []float64, nCases, nPoints int, xCentered []float64, stdX float64) []float64 {
	fn := float64(nCases)
	out := make([]float64, nPoints)
	for j := 0; j < nPoints; j++ {
		var sum float64
		for i := 0; i < nCases; i++ {
			sum += y[i*nPoints+j]
		}
		meanY := sum / fn
		var cov, ssY float64
		for i := 0; i < nCases; i++ {
			d := y[i*nPoints+j] - meanY
			cov += xCentered[i] * d
			ssY += d * d
		}
		cov /= fn - 1
		stdY := math.Sqrt(ssY / fn)
		out[j] = cov / (stdX * stdY)
	}
	return out
}

func mean(xs []float64) float64 {
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}
