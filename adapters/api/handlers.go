package api

import (
	"encoding/json"
	"net/http"

	"permcluster/adapters/resample"
	"permcluster/domain/ndvar"
	"permcluster/internal/dist"
	"permcluster/internal/testnd"
	"permcluster/ports"
)

// TimeSpec describes the time axis of submitted data.
type TimeSpec struct {
	TMin     float64 `json:"tmin"`
	TStep    float64 `json:"tstep"`
	NSamples int     `json:"nsamples"`
}

// SensorSpec describes an optional sensor axis with explicit adjacency.
type SensorSpec struct {
	Names []string `json:"names"`
	Edges [][2]int `json:"edges"`
}

// TTestRequest submits case data for a t-test. Data rows are cases; each row
// holds the point values in (sensor, time) row-major order, or plain time
// order without a sensor axis.
type TTestRequest struct {
	Test    string      `json:"test"` // "1samp", "rel" or "ind"
	Data    [][]float64 `json:"data"`
	Time    TimeSpec    `json:"time"`
	Sensors *SensorSpec `json:"sensors,omitempty"`

	N1      int      `json:"n1,omitempty"` // group size for "ind"
	Popmean float64  `json:"popmean,omitempty"`
	Samples int      `json:"samples,omitempty"`
	PMin    float64  `json:"pmin,omitempty"`
	Seed    int64    `json:"seed,omitempty"`
	TStart  *float64 `json:"tstart,omitempty"`
	TStop   *float64 `json:"tstop,omitempty"`
	Name    string   `json:"name,omitempty"`
}

// CorrRequest submits case data and a per-case predictor for a correlation
// test.
type CorrRequest struct {
	Data    [][]float64 `json:"data"`
	X       []float64   `json:"x"`
	Norm    []int       `json:"norm,omitempty"`
	Time    TimeSpec    `json:"time"`
	Sensors *SensorSpec `json:"sensors,omitempty"`

	Samples int      `json:"samples,omitempty"`
	PMin    float64  `json:"pmin,omitempty"`
	Seed    int64    `json:"seed,omitempty"`
	TStart  *float64 `json:"tstart,omitempty"`
	TStop   *float64 `json:"tstop,omitempty"`
	Name    string   `json:"name,omitempty"`
}

// TestResponse reports the outcome of a driver call: the cluster table when
// a permutation test ran, otherwise only the parametric summary.
type TestResponse struct {
	TestID  string              `json:"test_id"`
	Name    string              `json:"name"`
	Df      int                 `json:"df"`
	N       []int               `json:"n"`
	Cluster *ports.StoredResult `json:"cluster,omitempty"`
}

func (s *Service) handleTTest(w http.ResponseWriter, r *http.Request) {
	var req TTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	y, err := buildNDVar(req.Data, req.Time, req.Sensors, req.Name)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := s.options(req.Samples, req.PMin, req.TStart, req.TStop, req.Name)
	ctx := r.Context()
	var res *testnd.TTestResult
	switch req.Test {
	case "1samp":
		opts.Resampler = resample.NewSignFlip(resample.RNG{}, s.seed(req.Seed))
		res, err = testnd.TTest1Samp(ctx, y, req.Popmean, opts)
	case "rel":
		opts.Resampler = resample.NewSignFlip(resample.RNG{}, s.seed(req.Seed))
		res, err = testnd.TTestRel(ctx, y, opts)
	case "ind":
		opts.Resampler = resample.NewCaseShuffle(resample.RNG{}, s.seed(req.Seed))
		res, err = testnd.TTestInd(ctx, y, req.N1, opts)
	default:
		respondError(w, http.StatusBadRequest, "test must be 1samp, rel or ind")
		return
	}
	if err != nil {
		s.log.Warn("ttest failed: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	resp := &TestResponse{
		TestID: res.TestID.String(),
		Name:   res.Name,
		Df:     res.Df,
		N:      res.N,
	}
	if res.Cluster != nil {
		resp.Cluster = s.store(r, res.Cluster)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Service) handleCorr(w http.ResponseWriter, r *http.Request) {
	var req CorrRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	y, err := buildNDVar(req.Data, req.Time, req.Sensors, req.Name)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := s.options(req.Samples, req.PMin, req.TStart, req.TStop, req.Name)
	opts.Resampler = resample.NewCaseShuffle(resample.RNG{}, s.seed(req.Seed))
	res, err := testnd.Corr(r.Context(), y, req.X, req.Norm, opts)
	if err != nil {
		s.log.Warn("corr failed: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	resp := &TestResponse{
		TestID: res.TestID.String(),
		Name:   res.Name,
		Df:     res.Df,
		N:      []int{res.N},
	}
	if res.Cluster != nil {
		resp.Cluster = s.store(r, res.Cluster)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Service) options(samples int, pmin float64, tstart, tstop *float64, name string) testnd.Options {
	if samples == 0 {
		samples = s.cfg.Stat.DefaultSamples
	}
	if pmin == 0 {
		pmin = s.cfg.Stat.PMin
	}
	return testnd.Options{
		Samples: samples,
		PMin:    pmin,
		TStart:  tstart,
		TStop:   tstop,
		Name:    name,
	}
}

func (s *Service) seed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return s.cfg.Stat.Seed
}

// store persists the cluster result when a repository is configured and
// returns its storage form either way. Persistence failure is logged, not
// surfaced; the computed result is still valid.
func (s *Service) store(r *http.Request, res *dist.Result) *ports.StoredResult {
	stored := res.Stored()
	if s.repo != nil {
		if err := s.repo.Save(r.Context(), stored); err != nil {
			s.log.Error("failed to persist run %s: %v", stored.RunID, err)
		}
	}
	return stored
}

func buildNDVar(data [][]float64, ts TimeSpec, sensors *SensorSpec, name string) (*ndvar.NDVar, error) {
	dims := []ndvar.Dim{ndvar.Case{NCases: len(data)}}
	if sensors != nil {
		graph, err := ndvar.NewGraph(len(sensors.Names), sensors.Edges)
		if err != nil {
			return nil, err
		}
		dims = append(dims, ndvar.Sensor{SensorNames: sensors.Names, Graph: graph})
	}
	dims = append(dims, ndvar.Time{TMin: ts.TMin, TStep: ts.TStep, NSamples: ts.NSamples})

	flat := make([]float64, 0, len(data)*pointLen(dims))
	for _, row := range data {
		flat = append(flat, row...)
	}
	return ndvar.New(flat, dims, name)
}

func pointLen(dims []ndvar.Dim) int {
	n := 1
	for _, d := range dims[1:] {
		n *= d.Len()
	}
	return n
}
