package label

import (
	"errors"
	"reflect"
	"testing"

	"permcluster/domain/core"
	"permcluster/domain/ndvar"
)

func f64(v float64) *float64 { return &v }

func timeDim(n int) ndvar.Time {
	return ndvar.Time{TMin: 0, TStep: 0.01, NSamples: n}
}

func sensorDim(n int, edges [][2]int) ndvar.Sensor {
	g, err := ndvar.NewGraph(n, edges)
	if err != nil {
		panic(err)
	}
	names := make([]string, n)
	return ndvar.Sensor{SensorNames: names, Graph: g}
}

func TestLatticeLabeling(t *testing.T) {
	l, err := New([]ndvar.Dim{ndvar.Scalar{DimName: "a", NPoints: 3}, timeDim(3)})
	if err != nil {
		t.Fatal(err)
	}
	pmap := []float64{
		2, 0, 2,
		2, 0, 0,
		0, 0, 2,
	}
	labels, ids := l.LabelTwoTailed(pmap, f64(1), nil)
	if len(ids) != 3 {
		t.Fatalf("got %d clusters, want 3 (diagonals must not connect)", len(ids))
	}
	if labels[0] != labels[3] {
		t.Error("vertically adjacent positions should share a label")
	}
	if labels[2] == labels[8] {
		t.Error("diagonal positions must not share a label")
	}
	if labels[1] != 0 || labels[4] != 0 {
		t.Error("sub-threshold positions must stay unlabeled")
	}
}

func TestLabelingIsIdempotent(t *testing.T) {
	l, err := New([]ndvar.Dim{sensorDim(3, [][2]int{{0, 1}, {1, 2}}), timeDim(4)})
	if err != nil {
		t.Fatal(err)
	}
	pmap := []float64{
		2, 2, 0, -2,
		0, 2, 0, -2,
		0, 0, 2, 0,
	}
	labels1, ids1 := l.LabelTwoTailed(pmap, f64(1), f64(-1))
	labels2, ids2 := l.LabelTwoTailed(pmap, f64(1), f64(-1))
	if !reflect.DeepEqual(labels1, labels2) || !reflect.DeepEqual(ids1, ids2) {
		t.Error("labeling the same map twice gave different results")
	}
}

func TestGraphMerge(t *testing.T) {
	// Sensors 0 and 2 are neighbors; sensor 1 is isolated. All three are
	// active in the same column, but only 0 and 2 merge.
	l, err := New([]ndvar.Dim{sensorDim(3, [][2]int{{0, 2}}), timeDim(3)})
	if err != nil {
		t.Fatal(err)
	}
	pmap := []float64{
		2, 2, 0,
		0, 2, 0,
		0, 2, 2,
	}
	labels, ids := l.LabelTwoTailed(pmap, f64(1), nil)
	if len(ids) != 2 {
		t.Fatalf("got %d clusters, want 2", len(ids))
	}
	if labels[0] != labels[8] {
		t.Error("sensors joined by a graph edge should share a cluster")
	}
	if labels[4] == labels[1] {
		t.Error("sensor without graph edges must stay a separate cluster")
	}
}

func TestGraphAxisNotAdjacentByIndex(t *testing.T) {
	// Sensors 0 and 1 are index neighbors but share no graph edge; activity
	// in the same column must not connect them.
	l, err := New([]ndvar.Dim{sensorDim(2, nil), timeDim(2)})
	if err != nil {
		t.Fatal(err)
	}
	pmap := []float64{
		2, 0,
		2, 0,
	}
	_, ids := l.LabelTwoTailed(pmap, f64(1), nil)
	if len(ids) != 2 {
		t.Errorf("got %d clusters, want 2 (no implicit adjacency on graph axis)", len(ids))
	}
}

func TestGraphAxisBehindTime(t *testing.T) {
	// Same structure as TestGraphMerge with axes in (time, sensor) order.
	l, err := New([]ndvar.Dim{timeDim(3), sensorDim(3, [][2]int{{0, 2}})})
	if err != nil {
		t.Fatal(err)
	}
	// time-major layout of the map from TestGraphMerge
	pmap := []float64{
		2, 0, 0,
		2, 2, 2,
		0, 0, 2,
	}
	labels, ids := l.LabelTwoTailed(pmap, f64(1), nil)
	if len(ids) != 2 {
		t.Fatalf("got %d clusters, want 2", len(ids))
	}
	// (t0, s0) and (t2, s2) belong to the merged cluster
	if labels[0] != labels[8] {
		t.Error("graph merge failed with the graph axis in second position")
	}
	if labels[4] == labels[0] {
		t.Error("isolated sensor merged in swapped-axis layout")
	}
}

func TestTwoTailedIDsAreDisjoint(t *testing.T) {
	l, err := New([]ndvar.Dim{ndvar.Scalar{DimName: "a", NPoints: 2}, timeDim(4)})
	if err != nil {
		t.Fatal(err)
	}
	pmap := []float64{
		2, 2, 0, -2,
		0, 0, 0, -2,
	}
	labels, ids := l.LabelTwoTailed(pmap, f64(1), f64(-1))
	if len(ids) != 2 {
		t.Fatalf("got %d clusters, want 2", len(ids))
	}
	if labels[0] == labels[3] {
		t.Error("positive and negative clusters must get distinct ids")
	}
	seen := map[int32]bool{}
	for _, id := range ids {
		if id <= 0 || seen[id] {
			t.Errorf("invalid or duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestNegativeOnlyThreshold(t *testing.T) {
	l, err := New([]ndvar.Dim{timeDim(4)})
	if err != nil {
		t.Fatal(err)
	}
	labels, ids := l.LabelTwoTailed([]float64{0, -2, -2, 0}, nil, f64(-1))
	if len(ids) != 1 {
		t.Fatalf("got %d clusters, want 1", len(ids))
	}
	if labels[1] != labels[2] || labels[1] == 0 {
		t.Error("negative run not labeled as one cluster")
	}
}

func TestTwoGraphAxesUnsupported(t *testing.T) {
	dims := []ndvar.Dim{sensorDim(2, nil), sensorDim(3, nil)}
	if _, err := New(dims); !errors.Is(err, core.ErrUnsupportedAdjacency) {
		t.Errorf("got %v, want ErrUnsupportedAdjacency", err)
	}
}
