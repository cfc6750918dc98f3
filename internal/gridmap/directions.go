package gridmap

// Direction is a unit step between neighbouring cells.
type Direction struct {
	Name string
	DRow int
	DCol int
}

// Directions lists the eight directions a word may run in.
// The order is part of generation: a direction is chosen by index.
var Directions = [8]Direction{
	{Name: "right", DRow: 0, DCol: 1},
	{Name: "down", DRow: 1, DCol: 0},
	{Name: "down_right", DRow: 1, DCol: 1},
	{Name: "up_right", DRow: -1, DCol: 1},
	{Name: "left", DRow: 0, DCol: -1},
	{Name: "up", DRow: -1, DCol: 0},
	{Name: "up_left", DRow: -1, DCol: -1},
	{Name: "down_left", DRow: 1, DCol: -1},
}

// Step moves n cells from p in direction d.
func (p Position) Step(d Direction, n int) Position {
	return Position{Row: p.Row + d.DRow*n, Col: p.Col + d.DCol*n}
}

// Path returns the length cells starting at p and running in direction d.
func Path(p Position, d Direction, length int) []Position {
	cells := make([]Position, length)
	for i := range cells {
		cells[i] = p.Step(d, i)
	}
	return cells
}
