package engine

// Compositor combines the ambient base color with the contribution of
// every active burst into one output frame. The frame buffer is
// allocated once and reused for every render; callers receive it by
// reference and must not hold on to it across ticks.
type Compositor struct {
	frame   []Led
	palette Palette
}

func NewCompositor(ledsTotal int, palette Palette) *Compositor {
	return &Compositor{
		frame:   make([]Led, ledsTotal),
		palette: palette,
	}
}

// Render produces the frame for the current tick: the resolved ambient
// base on every pixel, then each active burst added in queue insertion
// order with saturating per-channel addition. At saturation the result
// depends on that order; this is a documented property of the visual
// behavior, not something to normalize away.
func (c *Compositor) Render(amb Ambient, nightDim float64, queue *BurstQueue) []Led {
	base := Led{}
	if amb.On {
		base = c.palette.Blend(amb.ColorTemp).Scale(amb.Brightness * nightDim)
	}
	for i := range c.frame {
		c.frame[i] = base
	}

	queue.forEach(func(b *Burst) {
		b.applyTo(c.frame)
	})

	return c.frame
}

// LedsTotal returns the strip length the compositor renders for.
func (c *Compositor) LedsTotal() int {
	return len(c.frame)
}
