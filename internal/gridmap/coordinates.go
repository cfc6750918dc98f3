package gridmap

import "fmt"

// DefaultChunkSize is the edge length of a chunk when none is configured.
const DefaultChunkSize = 10

// ErrInvalidChunkSize is returned for chunk sizes that cannot hold a word.
var ErrInvalidChunkSize = fmt.Errorf("chunk size must be at least 2")

// Position is an absolute cell coordinate in the unbounded grid.
// Rows grow downward and columns grow rightward; both may be negative.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ChunkCoord identifies one chunk of the grid.
type ChunkCoord struct {
	Row int `json:"chunkRow"`
	Col int `json:"chunkCol"`
}

// Local is a cell coordinate inside a chunk, each axis in [0, size).
type Local struct {
	Row int
	Col int
}

// String formats a chunk coordinate as "row_col", the form used in logs and ids.
func (c ChunkCoord) String() string {
	return fmt.Sprintf("%d_%d", c.Row, c.Col)
}

// ValidateChunkSize checks that a chunk size is usable.
func ValidateChunkSize(size int) error {
	if size < 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, size)
	}
	return nil
}

// FloorDiv divides a by b rounding toward negative infinity.
// Go's / truncates toward zero, which would put -1 and 1 in the same chunk.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mod returns the Euclidean remainder of a by b, always in [0, |b|).
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		if b < 0 {
			m -= b
		} else {
			m += b
		}
	}
	return m
}

// ChunkOf returns the chunk containing a global position.
func ChunkOf(p Position, size int) ChunkCoord {
	return ChunkCoord{
		Row: FloorDiv(p.Row, size),
		Col: FloorDiv(p.Col, size),
	}
}

// LocalOf returns the position of a global cell inside its chunk.
func LocalOf(p Position, size int) Local {
	return Local{
		Row: Mod(p.Row, size),
		Col: Mod(p.Col, size),
	}
}

// GlobalOf rebuilds a global position from a chunk and a local offset.
// GlobalOf(ChunkOf(p), LocalOf(p)) == p for every p.
func GlobalOf(c ChunkCoord, l Local, size int) Position {
	return Position{
		Row: c.Row*size + l.Row,
		Col: c.Col*size + l.Col,
	}
}

// ChunkOrigin returns the global position of a chunk's top-left cell.
func ChunkOrigin(c ChunkCoord, size int) Position {
	return GlobalOf(c, Local{}, size)
}

// ChunkBounds returns the inclusive global corners of a chunk.
func ChunkBounds(c ChunkCoord, size int) (min, max Position) {
	min = ChunkOrigin(c, size)
	max = Position{Row: min.Row + size - 1, Col: min.Col + size - 1}
	return min, max
}
