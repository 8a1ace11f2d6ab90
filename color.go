package transitiso

// RGBA is one output pixel color.
type RGBA struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// rampAnchors is the green-to-red time ramp, interpolated across however
// many bands the caller configures.
var rampAnchors = []RGBA{
	{R: 26, G: 152, B: 80, A: 255},
	{R: 145, G: 207, B: 96, A: 255},
	{R: 255, G: 255, B: 191, A: 255},
	{R: 252, G: 141, B: 89, A: 255},
	{R: 215, G: 48, B: 39, A: 255},
}

func lerpChannel(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// rampColor interpolates the anchor ramp at t in [0,1].
func rampColor(t float64) RGBA {
	if t <= 0 {
		return rampAnchors[0]
	}
	if t >= 1 {
		return rampAnchors[len(rampAnchors)-1]
	}
	pos := t * float64(len(rampAnchors)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := rampAnchors[i], rampAnchors[i+1]
	return RGBA{
		R: lerpChannel(a.R, b.R, frac),
		G: lerpChannel(a.G, b.G, frac),
		B: lerpChannel(a.B, b.B, frac),
		A: 255,
	}
}

// BandColor maps a travel time in minutes onto one of `bands` equal
// intervals up to maxMinutes. Values at or beyond maxMinutes render fully
// transparent ("unreached"). Opacity scales the alpha channel.
func BandColor(minutes, maxMinutes float64, bands int, opacity float64) RGBA {
	if minutes < 0 || minutes >= maxMinutes || bands <= 0 {
		return RGBA{}
	}
	band := int(minutes / (maxMinutes / float64(bands)))
	if band >= bands {
		band = bands - 1
	}
	var t float64
	if bands > 1 {
		t = float64(band) / float64(bands-1)
	}
	c := rampColor(t)
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	c.A = uint8(float64(c.A)*opacity + 0.5)
	return c
}
