package engine

// Led holds one pixel as float64 RGB channels in the range [0, 255].
// Calculations stay in float space; the platform drivers quantise to
// bytes only when writing to the hardware.
type Led struct {
	Red   float64
	Green float64
	Blue  float64
}

// IsEmpty is true if all components are zero.
func (s Led) IsEmpty() bool {
	return s.Red == 0 && s.Green == 0 && s.Blue == 0
}

// Add returns the saturating sum of the caller and in: each channel is
// added and clamped at 255, it never wraps.
func (s Led) Add(in Led) Led {
	return Led{
		Red:   satAdd(s.Red, in.Red),
		Green: satAdd(s.Green, in.Green),
		Blue:  satAdd(s.Blue, in.Blue),
	}
}

// Scale returns the Led with every channel multiplied by factor.
func (s Led) Scale(factor float64) Led {
	return Led{
		Red:   s.Red * factor,
		Green: s.Green * factor,
		Blue:  s.Blue * factor,
	}
}

func satAdd(a, b float64) float64 {
	sum := a + b
	if sum > 255 {
		return 255
	}
	return sum
}

// Color temperature bounds of the ambient state, in the usual mired-like
// scale of home lighting controls: CCTMin is full cool, CCTMax full warm.
const (
	CCTMin = 140
	CCTMax = 500
)

// Palette holds the two fixed RGB endpoints the ambient color
// temperature blends between.
type Palette struct {
	Warm Led
	Cool Led
}

// Blend resolves a color temperature to a pixel color by linear
// interpolation between the cool and warm endpoints. Out-of-range
// temperatures are clamped to the scale.
func (p Palette) Blend(ct int) Led {
	if ct < CCTMin {
		ct = CCTMin
	} else if ct > CCTMax {
		ct = CCTMax
	}
	t := float64(ct-CCTMin) / float64(CCTMax-CCTMin)
	return Led{
		Red:   p.Cool.Red + (p.Warm.Red-p.Cool.Red)*t,
		Green: p.Cool.Green + (p.Warm.Green-p.Cool.Green)*t,
		Blue:  p.Cool.Blue + (p.Warm.Blue-p.Cool.Blue)*t,
	}
}
