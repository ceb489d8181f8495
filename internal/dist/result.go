package dist

import (
	"sort"

	"github.com/montanaflynn/stats"

	"permcluster/domain/core"
	"permcluster/domain/ndvar"
	"permcluster/ports"
)

// Cluster is one row of the finalized cluster table.
type Cluster struct {
	// ID is the label image id of this cluster.
	ID int32
	// P is the permutation p-value.
	P float64
	// V is the cluster-mass statistic (sum of map values over members).
	V float64
	// TStart/TStop bound the cluster on the time axis; TStop is exclusive.
	// Nil without a time dimension.
	TStart, TStop *float64
	// Map is the original statistic map masked to this cluster, uncropped.
	Map *ndvar.NDVar
}

// NullSummary describes the permutation null distribution.
type NullSummary struct {
	Mean         float64
	StdDev       float64
	Min          float64
	Max          float64
	Percentile95 float64
	Percentile99 float64
}

// Result is the read-only outcome of a finalized accumulator. Clusters are
// sorted by ascending p-value (ties by id).
type Result struct {
	RunID     core.RunID
	Name      string
	Meas      string
	Samples   int
	NClusters int
	Clusters  []Cluster
	// ProbMap assigns every point the p-value of its cluster; points in no
	// cluster carry 1.0. Uncropped to the dependent variable's point shape.
	ProbMap *ndvar.NDVar
	// StatMap is the unmodified full statistic map.
	StatMap *ndvar.NDVar
	// Null summarizes the permutation distribution. Zero-valued when the
	// zero-cluster fast path skipped permutation.
	Null NullSummary
}

func (d *Dist) finalize() {
	d.state = stateFinalized
	res := &Result{
		RunID:     core.RunID(core.NewID()),
		Name:      d.name,
		Meas:      d.meas,
		Samples:   d.samples,
		NClusters: len(d.cids),
	}
	d.result = res

	res.StatMap = d.newMap(d.origPmap, d.name)

	if len(d.cids) == 0 {
		ones := make([]float64, d.nFull)
		for i := range ones {
			ones[i] = 1
		}
		res.ProbMap = d.newMap(ones, d.name)
		return
	}

	sums := clusterSums(d.cropPmap, d.clusterIm, d.cids)

	type scored struct {
		id int32
		v  float64
		p  float64
	}
	rows := make([]scored, 0, len(d.cids))
	for _, id := range d.cids {
		v := sums[id]
		abs := v
		if abs < 0 {
			abs = -v
		}
		p := 1 - percentileRankMean(d.dist, abs)
		rows = append(rows, scored{id: id, v: v, p: p})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].p != rows[j].p {
			return rows[i].p < rows[j].p
		}
		return rows[i].id < rows[j].id
	})

	var cropTime ndvar.Time
	hasTime := d.timeAxis >= 0
	if hasTime {
		cropTime = d.cropDims[d.timeAxis].(ndvar.Time)
	}
	timeStride := 1
	if hasTime {
		for a := d.timeAxis + 1; a < len(d.cropShape); a++ {
			timeStride *= d.cropShape[a]
		}
	}

	cpmap := make([]float64, d.nCrop)
	for i := range cpmap {
		cpmap[i] = 1
	}

	for _, row := range rows {
		masked := make([]float64, d.nCrop)
		tmin, tmax := -1, -1
		for i, lb := range d.clusterIm {
			if lb != row.id {
				continue
			}
			masked[i] = d.cropPmap[i]
			cpmap[i] = row.p
			if hasTime {
				ti := (i / timeStride) % d.cropShape[d.timeAxis]
				if tmin < 0 || ti < tmin {
					tmin = ti
				}
				if ti > tmax {
					tmax = ti
				}
			}
		}

		cl := Cluster{
			ID:  row.id,
			P:   row.p,
			V:   row.v,
			Map: d.newMap(d.uncropMap(masked, 0), d.name),
		}
		if hasTime && tmin >= 0 {
			tstart := cropTime.At(tmin)
			var tstop float64
			if tmax+1 == cropTime.NSamples {
				tstop = cropTime.Last() + cropTime.TStep
			} else {
				tstop = cropTime.At(tmax + 1)
			}
			cl.TStart = &tstart
			cl.TStop = &tstop
		}
		res.Clusters = append(res.Clusters, cl)
	}

	res.ProbMap = d.newMap(d.uncropMap(cpmap, 1), d.name)
	res.Null = summarize(d.dist)
}

func (d *Dist) newMap(data []float64, name string) *ndvar.NDVar {
	v, err := ndvar.New(data, d.pointDims, name)
	if err != nil {
		// Shapes are fixed at construction; a mismatch here is a bug.
		panic(err)
	}
	if d.meas != "" {
		v.Info["meas"] = d.meas
	}
	return v
}

func summarize(sample []float64) NullSummary {
	mean, _ := stats.Mean(sample)
	sd, _ := stats.StandardDeviationSample(sample)
	min, _ := stats.Min(sample)
	max, _ := stats.Max(sample)
	p95, _ := stats.Percentile(sample, 95)
	p99, _ := stats.Percentile(sample, 99)
	return NullSummary{Mean: mean, StdDev: sd, Min: min, Max: max, Percentile95: p95, Percentile99: p99}
}

// Stored converts the result to its persistence form (cluster table only).
func (r *Result) Stored() *ports.StoredResult {
	out := &ports.StoredResult{
		RunID:     r.RunID,
		Name:      r.Name,
		Meas:      r.Meas,
		Samples:   r.Samples,
		NClusters: r.NClusters,
	}
	for i, c := range r.Clusters {
		out.Clusters = append(out.Clusters, ports.StoredCluster{
			Rank:   i,
			P:      c.P,
			V:      c.V,
			TStart: c.TStart,
			TStop:  c.TStop,
		})
	}
	return out
}
