package geo

import "testing"

func TestClickRoundsAndFiresCallback(t *testing.T) {
	var gotLat, gotLon float64
	calls := 0
	p := NewPicker(28.6139, 77.209, func(lat, lon float64) {
		gotLat, gotLon = lat, lon
		calls++
	})

	p.Click(12.3456789, 98.7654321)
	if calls != 1 {
		t.Fatalf("callback calls = %d, want 1", calls)
	}
	if gotLat != 12.345679 || gotLon != 98.765432 {
		t.Fatalf("coords not rounded to 6 decimals: %v, %v", gotLat, gotLon)
	}
	lat, lon := p.Marker()
	if lat != 12.345679 || lon != 98.765432 {
		t.Fatalf("marker not moved: %v, %v", lat, lon)
	}
}

func TestDragEndMovesMarker(t *testing.T) {
	calls := 0
	p := NewPicker(0, 0, func(lat, lon float64) { calls++ })
	p.DragEnd(1.5, 2.5)
	if calls != 1 {
		t.Fatalf("callback calls = %d, want 1", calls)
	}
	if lat, lon := p.Marker(); lat != 1.5 || lon != 2.5 {
		t.Fatalf("marker = %v, %v", lat, lon)
	}
}

func TestSetViewDoesNotFireCallback(t *testing.T) {
	calls := 0
	p := NewPicker(10, 20, func(lat, lon float64) { calls++ })
	p.SetView(30, 40)
	if calls != 0 {
		t.Fatalf("SetView must not invoke the callback")
	}
	if lat, lon := p.Marker(); lat != 30 || lon != 40 {
		t.Fatalf("marker should follow SetView: %v, %v", lat, lon)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	first := 0
	p := NewPicker(5, 5, func(lat, lon float64) { first++ })
	p.Init(99, 99, func(lat, lon float64) { t.Fatal("second init must not replace the callback") })
	if lat, lon := p.Marker(); lat != 5 || lon != 5 {
		t.Fatalf("second init must not move the marker: %v, %v", lat, lon)
	}
	p.Click(6, 6)
	if first != 1 {
		t.Fatalf("original callback lost")
	}
}
