package world

// BoundingBox is an inclusive rectangle of global cell coordinates.
type BoundingBox struct {
	MinRow int `json:"minRow"`
	MinCol int `json:"minCol"`
	MaxRow int `json:"maxRow"`
	MaxCol int `json:"maxCol"`
}

// AreaSize is the extent of a bounding box in cells.
type AreaSize struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Stats summarizes the generated world.
type Stats struct {
	ChunkCount        int         `json:"chunkCount"`
	PlacementCount    int         `json:"placementCount"`
	FoundCount        int         `json:"foundCount"`
	SkippedPlacements int         `json:"skippedPlacements"`
	TotalCells        int64       `json:"totalCells"`
	ChunkSize         int         `json:"chunkSize"`
	BoundingBox       BoundingBox `json:"boundingBox"`
	AreaSize          AreaSize    `json:"areaSize"`
}

// stats aggregates store and ledger state without mutating either.
func (s *Store) stats() Stats {
	box := s.BoundingBox()
	var area AreaSize
	if s.ChunkCount() > 0 {
		area = AreaSize{
			Rows: box.MaxRow - box.MinRow + 1,
			Cols: box.MaxCol - box.MinCol + 1,
		}
	}
	return Stats{
		ChunkCount:        s.ChunkCount(),
		PlacementCount:    s.ledger.Len(),
		FoundCount:        s.ledger.FoundCount(),
		SkippedPlacements: s.ledger.Skipped(),
		TotalCells:        int64(s.ChunkCount()) * int64(s.size) * int64(s.size),
		ChunkSize:         s.size,
		BoundingBox:       box,
		AreaSize:          area,
	}
}
