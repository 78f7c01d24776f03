package converter

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"roi2bb/internal/models"
)

// ClassStats describes the boxes written for one class
type ClassStats struct {
	Index int
	Label string
	Count int

	// MeanExtent and StdExtent describe the normalized box volume (3D) or
	// area (2D)
	MeanExtent float64
	StdExtent  float64
}

// Summary holds batch statistics reported after a run
type Summary struct {
	FilesProcessed int
	FilesFailed    int
	ROIsWritten    int

	// OutOfBounds counts boxes with any component outside [0,1]
	OutOfBounds int

	Classes []ClassStats
}

func summarize(records []models.OutputRecord, files, failed int) Summary {
	s := Summary{
		FilesProcessed: files - failed,
		FilesFailed:    failed,
		ROIsWritten:    len(records),
	}

	// Unknown labels share index -1, so group by label as well
	type key struct {
		index int
		label string
	}
	extents := make(map[key][]float64)
	for _, rec := range records {
		if !rec.InBounds() {
			s.OutOfBounds++
		}
		k := key{rec.ClassIndex, rec.ClassLabel}
		extents[k] = append(extents[k], rec.Extent())
	}

	for k, values := range extents {
		cs := ClassStats{Index: k.index, Label: k.label, Count: len(values)}
		if len(values) > 1 {
			cs.MeanExtent, cs.StdExtent = stat.MeanStdDev(values, nil)
		} else {
			cs.MeanExtent = values[0]
		}
		s.Classes = append(s.Classes, cs)
	}
	sort.Slice(s.Classes, func(i, j int) bool {
		if s.Classes[i].Index != s.Classes[j].Index {
			return s.Classes[i].Index < s.Classes[j].Index
		}
		return s.Classes[i].Label < s.Classes[j].Label
	})
	return s
}
