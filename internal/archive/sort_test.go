package archive

import (
	"reflect"
	"testing"
)

func getTestNames() []string {
	return []string{
		"test/01.png",
		"test/04.png",
		"test/08.png",
		"test/09.png",
		"test/2.png",
		"test/３.png",
		"test/10.png",
	}
}

func TestNaturalSortStrategy(t *testing.T) {
	strategy := &NaturalSortStrategy{}

	if strategy.Name() != "Natural" {
		t.Errorf("Expected 'Natural', got '%s'", strategy.Name())
	}
	if strategy.ID() != SortNatural {
		t.Errorf("Expected %d, got %d", SortNatural, strategy.ID())
	}

	t.Run("Sort", func(t *testing.T) {
		expected := []string{
			"test/01.png",
			"test/2.png",
			"test/04.png",
			"test/08.png",
			"test/09.png",
			"test/10.png",
			"test/３.png",
		}
		result := strategy.Sort(getTestNames())
		if !reflect.DeepEqual(result, expected) {
			t.Errorf("Natural sort failed")
			t.Logf("Expected: %v", expected)
			t.Logf("Got:      %v", result)
		}
	})

	t.Run("EmptySlice", func(t *testing.T) {
		result := strategy.Sort([]string{})
		if result == nil || len(result) != 0 {
			t.Errorf("Expected empty slice, got %v", result)
		}
	})
}

func TestSimpleSortStrategy(t *testing.T) {
	strategy := &SimpleSortStrategy{}

	if strategy.Name() != "Simple" {
		t.Errorf("Expected 'Simple', got '%s'", strategy.Name())
	}

	expected := []string{
		"test/01.png",
		"test/04.png",
		"test/08.png",
		"test/09.png",
		"test/10.png",
		"test/2.png",
		"test/３.png",
	}
	result := strategy.Sort(getTestNames())
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("Simple sort failed")
		t.Logf("Expected: %v", expected)
		t.Logf("Got:      %v", result)
	}
}

func TestEntryOrderSortStrategy(t *testing.T) {
	strategy := &EntryOrderSortStrategy{}

	if strategy.Name() != "Entry Order" {
		t.Errorf("Expected 'Entry Order', got '%s'", strategy.Name())
	}

	result := strategy.Sort(getTestNames())
	if !reflect.DeepEqual(result, getTestNames()) {
		t.Errorf("Entry order sort changed the order: %v", result)
	}
}

func TestSortDoesNotModifyInput(t *testing.T) {
	for _, strategy := range GetAllSortStrategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			input := getTestNames()
			_ = strategy.Sort(input)
			if !reflect.DeepEqual(input, getTestNames()) {
				t.Error("Input slice was modified - should be immutable")
			}
		})
	}
}

func TestGetSortStrategy(t *testing.T) {
	tests := []struct {
		sortMethod   int
		expectedID   int
		expectedName string
	}{
		{SortNatural, SortNatural, "Natural"},
		{SortSimple, SortSimple, "Simple"},
		{SortEntryOrder, SortEntryOrder, "Entry Order"},
		{999, SortNatural, "Natural"}, // Default fallback
		{-1, SortNatural, "Natural"},
	}

	for _, tt := range tests {
		strategy := GetSortStrategy(tt.sortMethod)
		if strategy.ID() != tt.expectedID {
			t.Errorf("GetSortStrategy(%d): expected ID %d, got %d", tt.sortMethod, tt.expectedID, strategy.ID())
		}
		if strategy.Name() != tt.expectedName {
			t.Errorf("GetSortStrategy(%d): expected name '%s', got '%s'", tt.sortMethod, tt.expectedName, strategy.Name())
		}
	}
}

func TestGetAllSortStrategies(t *testing.T) {
	strategies := GetAllSortStrategies()
	if len(strategies) != 3 {
		t.Fatalf("Expected 3 strategies, got %d", len(strategies))
	}
	for i, s := range strategies {
		if s.ID() != i {
			t.Errorf("Strategy %s has ID %d, expected %d", s.Name(), s.ID(), i)
		}
	}
}
