package ports

import (
	"context"

	"permcluster/domain/core"
)

// StoredCluster is one cluster-table row in storage form.
type StoredCluster struct {
	Rank   int      `json:"rank" db:"rank"`
	P      float64  `json:"p" db:"p"`
	V      float64  `json:"v" db:"v"`
	TStart *float64 `json:"tstart,omitempty" db:"tstart"`
	TStop  *float64 `json:"tstop,omitempty" db:"tstop"`
}

// StoredResult is a finalized cluster test result in storage form. Spatial
// maps are not persisted, only the cluster table and run metadata.
type StoredResult struct {
	RunID     core.RunID      `json:"run_id" db:"run_id"`
	Name      string          `json:"name" db:"name"`
	Meas      string          `json:"meas" db:"meas"`
	Samples   int             `json:"samples" db:"samples"`
	NClusters int             `json:"n_clusters" db:"n_clusters"`
	Clusters  []StoredCluster `json:"clusters"`
}

// ResultRepository persists finalized cluster test results.
type ResultRepository interface {
	Save(ctx context.Context, res *StoredResult) error
	Get(ctx context.Context, id core.RunID) (*StoredResult, error)
}
