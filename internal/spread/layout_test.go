package spread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(right, left int) Spread { return Spread{Right: right, Left: left} }

func TestBuildSpreadMode(t *testing.T) {
	tests := []struct {
		name      string
		pageCount int
		dir       Direction
		expected  []Spread
	}{
		{"RTL zero pages", 0, RTL, []Spread{}},
		{"RTL negative", -1, RTL, []Spread{}},
		{"RTL cover only", 1, RTL, []Spread{s(0, None)}},
		{"RTL cover and last alone", 2, RTL, []Spread{s(0, None), s(1, None)}},
		{"RTL cover and one pair", 3, RTL, []Spread{s(0, None), s(1, 2)}},
		{"RTL five pages", 5, RTL, []Spread{s(0, None), s(1, 2), s(3, 4)}},
		{"RTL six pages", 6, RTL, []Spread{s(0, None), s(1, 2), s(3, 4), s(5, None)}},
		{"LTR zero pages", 0, LTR, []Spread{}},
		{"LTR cover only", 1, LTR, []Spread{s(None, 0)}},
		{"LTR cover and last alone", 2, LTR, []Spread{s(None, 0), s(None, 1)}},
		{"LTR cover and one pair", 3, LTR, []Spread{s(None, 0), s(2, 1)}},
		{"LTR five pages", 5, LTR, []Spread{s(None, 0), s(2, 1), s(4, 3)}},
		{"LTR six pages", 6, LTR, []Spread{s(None, 0), s(2, 1), s(4, 3), s(None, 5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Build(tt.pageCount, ModeSpread, tt.dir))
		})
	}
}

func TestBuildSingleMode(t *testing.T) {
	for _, dir := range []Direction{RTL, LTR} {
		t.Run(dir.String(), func(t *testing.T) {
			assert.Empty(t, Build(0, ModeSingle, dir))
			assert.Empty(t, Build(-5, ModeSingle, dir))

			spreads := Build(5, ModeSingle, dir)
			require.Len(t, spreads, 5)
			for i, sp := range spreads {
				assert.Equal(t, s(i, None), sp, "spread %d", i)
				assert.True(t, sp.IsSingleton())
			}
		})
	}
}

func TestBuildProperties(t *testing.T) {
	for _, dir := range []Direction{RTL, LTR} {
		for _, mode := range []ViewMode{ModeSpread, ModeSingle} {
			for n := 1; n <= 40; n++ {
				spreads := Build(n, mode, dir)

				seen := make(map[int]int)
				for i, sp := range spreads {
					require.False(t, sp.Right == None && sp.Left == None,
						"empty spread at %d (n=%d %s %s)", i, n, mode, dir)
					for _, p := range sp.Pages(dir) {
						seen[p]++
					}
				}
				// Every page appears exactly once
				require.Len(t, seen, n)
				for p, count := range seen {
					require.Equal(t, 1, count, "page %d repeated", p)
				}

				if mode == ModeSpread {
					cover := spreads[0]
					require.True(t, cover.IsSingleton())
					require.Equal(t, 0, CurrentPage(cover, dir))

					last := spreads[len(spreads)-1]
					if n%2 == 0 {
						require.True(t, last.IsSingleton(), "n=%d", n)
						if dir == RTL {
							require.Equal(t, n-1, last.Right)
						} else {
							require.Equal(t, n-1, last.Left)
						}
					} else if n > 1 {
						for _, sp := range spreads[1:] {
							require.False(t, sp.IsSingleton(), "n=%d", n)
						}
					}
				}
			}
		}
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	a := Build(7, ModeSpread, RTL)
	b := Build(7, ModeSpread, RTL)
	assert.Equal(t, a, b)

	// Results do not share storage
	a[0].Right = 42
	assert.Equal(t, 0, b[0].Right)
}

func TestIndexForPage(t *testing.T) {
	tests := []struct {
		name     string
		spreads  []Spread
		page     int
		expected int
	}{
		{"RTL cover", Build(5, ModeSpread, RTL), 0, 0},
		{"RTL right of pair", Build(5, ModeSpread, RTL), 1, 1},
		{"RTL left of pair", Build(5, ModeSpread, RTL), 2, 1},
		{"RTL missing page", Build(5, ModeSpread, RTL), 99, -1},
		{"LTR left of pair", Build(5, ModeSpread, LTR), 1, 1},
		{"LTR right of pair", Build(5, ModeSpread, LTR), 2, 1},
		{"single mode", Build(5, ModeSingle, RTL), 4, 4},
		{"negative page", Build(5, ModeSpread, RTL), -1, -1},
		{"empty sequence", []Spread{}, 0, -1},
		{"nil sequence", nil, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IndexForPage(tt.spreads, tt.page))
		})
	}
}

func TestCurrentPage(t *testing.T) {
	tests := []struct {
		name     string
		spread   Spread
		dir      Direction
		expected int
	}{
		{"RTL takes right", s(3, 4), RTL, 3},
		{"LTR takes left", s(4, 3), LTR, 3},
		{"RTL falls back to left", s(None, 5), RTL, 5},
		{"LTR falls back to right", s(5, None), LTR, 5},
		{"both empty", Empty, RTL, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CurrentPage(tt.spread, tt.dir))
		})
	}
}

func TestCurrentPageRoundTrip(t *testing.T) {
	for _, dir := range []Direction{RTL, LTR} {
		for _, mode := range []ViewMode{ModeSpread, ModeSingle} {
			for n := 0; n <= 12; n++ {
				spreads := Build(n, mode, dir)
				for i, sp := range spreads {
					assert.Equal(t, i, IndexForPage(spreads, CurrentPage(sp, dir)),
						"n=%d mode=%s dir=%s", n, mode, dir)
				}
				for p := 0; p < n; p++ {
					idx := IndexForPage(spreads, p)
					require.GreaterOrEqual(t, idx, 0)
					assert.True(t, spreads[idx].Has(p))
				}
				assert.Equal(t, -1, IndexForPage(spreads, n))
			}
		}
	}
}

func TestSpreadPages(t *testing.T) {
	assert.Equal(t, []int{1, 2}, s(1, 2).Pages(RTL))
	assert.Equal(t, []int{2, 1}, s(1, 2).Pages(LTR))
	assert.Equal(t, []int{0}, s(None, 0).Pages(RTL))
	assert.Empty(t, Empty.Pages(LTR))
	assert.False(t, Empty.Has(None))
}

func TestParseAndToggle(t *testing.T) {
	mode, err := ParseViewMode("single")
	require.NoError(t, err)
	assert.Equal(t, ModeSingle, mode)
	assert.Equal(t, ModeSpread, mode.Toggle())

	_, err = ParseViewMode("double")
	assert.Error(t, err)

	dir, err := ParseDirection("ltr")
	require.NoError(t, err)
	assert.Equal(t, LTR, dir)
	assert.Equal(t, RTL, dir.Toggle())
	assert.Equal(t, "rtl", dir.Toggle().String())

	_, err = ParseDirection("up")
	assert.Error(t, err)
}
