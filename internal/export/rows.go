package export

import "github.com/xtxerr/tdigest/internal/digest"

// CentroidRow is one centroid in Parquet format.
type CentroidRow struct {
	Mean   float64 `parquet:"mean"`
	Weight float64 `parquet:"weight"`
}

// SnapshotRow is one series' digest in Parquet format.
type SnapshotRow struct {
	Series      string        `parquet:"series,zstd"`
	Compression float64       `parquet:"compression"`
	Scale       string        `parquet:"scale,zstd"`
	TotalWeight float64       `parquet:"total_weight"`
	Min         float64       `parquet:"min"`
	Max         float64       `parquet:"max"`
	Mean        float64       `parquet:"mean"`
	SumSquares  float64       `parquet:"sum_squares"`
	Centroids   []CentroidRow `parquet:"centroids"`
}

// Entry is a named snapshot.
type Entry struct {
	Series   string
	Snapshot digest.Snapshot
}

// SnapshotToRow converts a snapshot to a SnapshotRow.
func SnapshotToRow(series string, s *digest.Snapshot) SnapshotRow {
	row := SnapshotRow{
		Series:      series,
		Compression: s.Compression,
		Scale:       s.Scale,
		TotalWeight: s.TotalWeight,
		Min:         s.Min,
		Max:         s.Max,
		Mean:        s.Mean,
		SumSquares:  s.SumSquares,
		Centroids:   make([]CentroidRow, len(s.Centroids)),
	}

	for i, c := range s.Centroids {
		row.Centroids[i] = CentroidRow{Mean: c.Mean, Weight: c.Weight}
	}

	return row
}

// RowToEntry converts a SnapshotRow back to a named snapshot.
func RowToEntry(r *SnapshotRow) Entry {
	s := digest.Snapshot{
		Compression: r.Compression,
		Scale:       r.Scale,
		TotalWeight: r.TotalWeight,
		Min:         r.Min,
		Max:         r.Max,
		Mean:        r.Mean,
		SumSquares:  r.SumSquares,
	}

	if len(r.Centroids) > 0 {
		s.Centroids = make([]digest.Centroid, len(r.Centroids))
		for i, c := range r.Centroids {
			s.Centroids[i] = digest.Centroid{Mean: c.Mean, Weight: c.Weight}
		}
	}

	return Entry{Series: r.Series, Snapshot: s}
}
