package world

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/wordgrid/server/internal/gridmap"
)

// Claim looks for an unfound placement whose cells are exactly coords, in
// stored or reversed order. A match is marked found before Claim returns, so a
// second Claim with the same coords reports no match.
func (l *Ledger) Claim(coords []gridmap.Position) (FoundWord, bool) {
	if len(coords) == 0 {
		return FoundWord{}, false
	}

	candidates := l.byLength[len(coords)]
	if len(candidates) == 0 {
		return FoundWord{}, false
	}

	selected := mapset.New[gridmap.Position]()
	for _, c := range coords {
		selected.Put(c)
	}
	if selected.Size() != len(coords) {
		// Repeated cells can never match a straight run.
		return FoundWord{}, false
	}

	for _, p := range candidates {
		if p.Found {
			continue
		}
		if !sameSet(selected, p.Cells) {
			continue
		}
		if !sameOrder(coords, p.Cells) {
			continue
		}

		p.Found = true
		fw := FoundWord{
			ID:     p.ID,
			Word:   p.Word,
			Coords: append([]gridmap.Position(nil), p.Cells...),
		}
		l.found = append(l.found, fw)
		return fw, true
	}
	return FoundWord{}, false
}

func sameSet(selected mapset.Set[gridmap.Position], cells []gridmap.Position) bool {
	for _, c := range cells {
		if !selected.Has(c) {
			return false
		}
	}
	return true
}

// sameOrder reports whether coords equals cells forward or reversed.
func sameOrder(coords, cells []gridmap.Position) bool {
	forward, reverse := true, true
	n := len(cells)
	for i := range coords {
		if coords[i] != cells[i] {
			forward = false
		}
		if coords[i] != cells[n-1-i] {
			reverse = false
		}
		if !forward && !reverse {
			return false
		}
	}
	return true
}
