package gridmap

import "math"

// NormalizeRegion orders two corners so that start is top-left and end is bottom-right.
func NormalizeRegion(a, b Position) (start, end Position) {
	start, end = a, b
	if start.Row > end.Row {
		start.Row, end.Row = end.Row, start.Row
	}
	if start.Col > end.Col {
		start.Col, end.Col = end.Col, start.Col
	}
	return start, end
}

// spanLen returns how many integers lie in [lo, hi], lo <= hi. It reports
// false when the count does not fit in an int64.
func spanLen(lo, hi int) (int64, bool) {
	// Unsigned subtraction is exact for any lo <= hi.
	delta := uint64(hi) - uint64(lo)
	if delta >= math.MaxInt64 {
		return 0, false
	}
	return int64(delta) + 1, true
}

// areaOf multiplies two spans, reporting false on int64 overflow.
func areaOf(loRow, loCol, hiRow, hiCol int) (int64, bool) {
	rows, ok := spanLen(loRow, hiRow)
	if !ok {
		return 0, false
	}
	cols, ok := spanLen(loCol, hiCol)
	if !ok {
		return 0, false
	}
	if rows > math.MaxInt64/cols {
		return 0, false
	}
	return rows * cols, true
}

// RegionCells returns the number of cells in the normalized inclusive
// rectangle. It reports false when the count overflows an int64; such a
// region exceeds every limit.
func RegionCells(start, end Position) (int64, bool) {
	return areaOf(start.Row, start.Col, end.Row, end.Col)
}

// RegionWithin reports whether the normalized rectangle holds at most limit cells.
func RegionWithin(start, end Position, limit int64) bool {
	cells, ok := RegionCells(start, end)
	return ok && cells <= limit
}

// ChunkCount returns the number of chunks overlapping the inclusive rectangle,
// reporting false on overflow.
func ChunkCount(start, end Position, size int) (int64, bool) {
	start, end = NormalizeRegion(start, end)
	first := ChunkOf(start, size)
	last := ChunkOf(end, size)
	return areaOf(first.Row, first.Col, last.Row, last.Col)
}

// maxPreallocChunks bounds the capacity ChunksInRegion reserves up front.
const maxPreallocChunks = 4096

// ChunksInRegion lists every chunk overlapping the inclusive rectangle,
// row-major from the top-left chunk. Callers bound the rectangle first with
// ChunkCount or RegionWithin; the result holds one entry per chunk.
func ChunksInRegion(start, end Position, size int) []ChunkCoord {
	start, end = NormalizeRegion(start, end)
	first := ChunkOf(start, size)
	last := ChunkOf(end, size)

	capacity := int64(maxPreallocChunks)
	if n, ok := areaOf(first.Row, first.Col, last.Row, last.Col); ok && n < capacity {
		capacity = n
	}

	chunks := make([]ChunkCoord, 0, capacity)
	// Stepping until equality never walks past math.MaxInt the way row <= last.Row would.
	for row := first.Row; ; row++ {
		for col := first.Col; ; col++ {
			chunks = append(chunks, ChunkCoord{Row: row, Col: col})
			if col == last.Col {
				break
			}
		}
		if row == last.Row {
			break
		}
	}
	return chunks
}
