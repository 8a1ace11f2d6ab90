package transitiso

import "testing"

func TestBandColorEdges(t *testing.T) {
	got := BandColor(0, 60, 12, 1)
	want := RGBA{R: 26, G: 152, B: 80, A: 255}
	if got != want {
		t.Errorf("First band color must be %v, but got %v", want, got)
	}
	got = BandColor(59.9, 60, 12, 1)
	want = RGBA{R: 215, G: 48, B: 39, A: 255}
	if got != want {
		t.Errorf("Last band color must be %v, but got %v", want, got)
	}
}

func TestBandColorTransparentBeyondMax(t *testing.T) {
	if got := BandColor(60, 60, 12, 1); got != (RGBA{}) {
		t.Errorf("Time at the maximum must be transparent, but got %v", got)
	}
	if got := BandColor(75, 60, 12, 1); got != (RGBA{}) {
		t.Errorf("Time beyond the maximum must be transparent, but got %v", got)
	}
	if got := BandColor(-1, 60, 12, 1); got != (RGBA{}) {
		t.Errorf("Negative time must be transparent, but got %v", got)
	}
}

func TestBandColorOpacity(t *testing.T) {
	got := BandColor(0, 60, 12, 0.55)
	if got.A != 140 {
		t.Errorf("Alpha at opacity 0.55 must be 140, but got %d", got.A)
	}
	if got.R != 26 || got.G != 152 || got.B != 80 {
		t.Errorf("Opacity must not touch the color channels, but got %v", got)
	}
}

func TestBandColorSingleBand(t *testing.T) {
	got := BandColor(30, 60, 1, 1)
	want := RGBA{R: 26, G: 152, B: 80, A: 255}
	if got != want {
		t.Errorf("Single band must use the ramp start, but got %v", got)
	}
}
