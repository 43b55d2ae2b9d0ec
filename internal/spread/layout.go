// Package spread computes how the pages of a book are grouped into the
// units shown together on screen.
//
// Spread mode shows the cover alone and pairs the remaining pages. In
// right-to-left reading the earlier page of a pair sits in the right slot,
// in left-to-right reading it sits in the left slot. A trailing page without
// a partner is shown alone. Single mode shows one page per spread, always in
// the right slot.
package spread

import "fmt"

// None marks an empty slot.
const None = -1

// ViewMode selects how pages are grouped
type ViewMode int

const (
	ModeSpread ViewMode = iota // Two pages side by side
	ModeSingle                 // One page per view
)

func (m ViewMode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	default:
		return "spread"
	}
}

// Toggle returns the other view mode
func (m ViewMode) Toggle() ViewMode {
	if m == ModeSingle {
		return ModeSpread
	}
	return ModeSingle
}

// ParseViewMode parses "spread" or "single"
func ParseViewMode(s string) (ViewMode, error) {
	switch s {
	case "spread":
		return ModeSpread, nil
	case "single":
		return ModeSingle, nil
	default:
		return ModeSpread, fmt.Errorf("unknown view mode: %q", s)
	}
}

// Direction is the reading direction of a book
type Direction int

const (
	RTL Direction = iota // Right to left (manga style)
	LTR                  // Left to right (western style)
)

func (d Direction) String() string {
	switch d {
	case LTR:
		return "ltr"
	default:
		return "rtl"
	}
}

// Toggle returns the opposite reading direction
func (d Direction) Toggle() Direction {
	if d == LTR {
		return RTL
	}
	return LTR
}

// ParseDirection parses "rtl" or "ltr"
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "rtl":
		return RTL, nil
	case "ltr":
		return LTR, nil
	default:
		return RTL, fmt.Errorf("unknown reading direction: %q", s)
	}
}

// Spread holds up to two page indices. Empty slots are None.
type Spread struct {
	Right int
	Left  int
}

// Empty is a spread with no pages
var Empty = Spread{Right: None, Left: None}

// IsSingleton reports whether exactly one slot is populated
func (s Spread) IsSingleton() bool {
	return (s.Right == None) != (s.Left == None)
}

// Has reports whether page is shown in either slot
func (s Spread) Has(page int) bool {
	return page != None && (s.Right == page || s.Left == page)
}

// Pages returns the populated slots in reading order for dir
func (s Spread) Pages(dir Direction) []int {
	first, second := s.Right, s.Left
	if dir == LTR {
		first, second = s.Left, s.Right
	}

	pages := make([]int, 0, 2)
	if first != None {
		pages = append(pages, first)
	}
	if second != None {
		pages = append(pages, second)
	}
	return pages
}

func (s Spread) String() string {
	return fmt.Sprintf("{right:%s left:%s}", slotString(s.Right), slotString(s.Left))
}

func slotString(v int) string {
	if v == None {
		return "-"
	}
	return fmt.Sprint(v)
}

// Build returns the spreads for pageCount pages. Counts <= 0 yield an
// empty sequence. The result is freshly allocated on every call.
func Build(pageCount int, mode ViewMode, dir Direction) []Spread {
	if pageCount <= 0 {
		return []Spread{}
	}

	if mode == ModeSingle {
		spreads := make([]Spread, pageCount)
		for i := range spreads {
			spreads[i] = Spread{Right: i, Left: None}
		}
		return spreads
	}

	spreads := make([]Spread, 0, pageCount/2+2)

	// Cover is always alone
	spreads = append(spreads, lone(0, dir))

	for i := 1; i < pageCount; i += 2 {
		if i+1 < pageCount {
			spreads = append(spreads, pair(i, i+1, dir))
		} else {
			// Last page alone
			spreads = append(spreads, lone(i, dir))
		}
	}

	return spreads
}

// lone places a single page in the slot read first for dir
func lone(page int, dir Direction) Spread {
	if dir == LTR {
		return Spread{Right: None, Left: page}
	}
	return Spread{Right: page, Left: None}
}

// pair places earlier in the slot read first and later in the other
func pair(earlier, later int, dir Direction) Spread {
	if dir == LTR {
		return Spread{Right: later, Left: earlier}
	}
	return Spread{Right: earlier, Left: later}
}

// IndexForPage returns the index of the spread showing page, or -1.
func IndexForPage(spreads []Spread, page int) int {
	if page < 0 {
		return -1
	}
	for i, s := range spreads {
		if s.Right == page || s.Left == page {
			return i
		}
	}
	return -1
}

// CurrentPage returns the page read first in s: the right slot for RTL and
// the left slot for LTR, falling back to the other slot, then to 0.
func CurrentPage(s Spread, dir Direction) int {
	primary, secondary := s.Right, s.Left
	if dir == LTR {
		primary, secondary = s.Left, s.Right
	}

	if primary != None {
		return primary
	}
	if secondary != None {
		return secondary
	}
	return 0
}
