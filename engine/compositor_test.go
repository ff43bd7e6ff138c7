package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositor_AmbientBase(t *testing.T) {
	comp := NewCompositor(10, testPalette())
	queue := NewBurstQueue(1)

	amb := Ambient{On: true, Brightness: 0.6, ColorTemp: 320}
	frame := comp.Render(amb, 1.0, queue)
	require.Len(t, frame, 10)

	want := testPalette().Blend(320).Scale(0.6)
	for i, led := range frame {
		assert.Equal(t, want, led, "led %d", i)
	}
}

func TestCompositor_OffIsDark(t *testing.T) {
	comp := NewCompositor(10, testPalette())
	queue := NewBurstQueue(1)

	frame := comp.Render(Ambient{On: false, Brightness: 1, ColorTemp: 370}, 1.0, queue)
	for i, led := range frame {
		assert.True(t, led.IsEmpty(), "led %d", i)
	}
}

func TestCompositor_NightDimScalesAmbientOnly(t *testing.T) {
	comp := NewCompositor(10, testPalette())
	queue := NewBurstQueue(2)

	amb := Ambient{On: true, Brightness: 0.8, ColorTemp: 370}
	dimmed := comp.Render(amb, 0.5, queue)
	want := testPalette().Blend(370).Scale(0.8 * 0.5)
	assert.Equal(t, want, dimmed[0])

	// A burst keeps its own intensity regardless of the dim factor.
	par := fixedParams(1, 10, 59, BounceOneWay)
	b := newBurst(0, 0, Ambient{ColorTemp: CCTMax}, BurstParams{
		TrailMin: par.TrailMin, TrailMax: par.TrailMax,
		SpeedMin: par.SpeedMin, SpeedMax: par.SpeedMax,
		Endpoint: par.Endpoint, Intensity: 1.0,
	}, testPalette(), 10)
	b.advance(0)
	b.advance(10)
	queue.Admit(b)

	frame := comp.Render(Ambient{On: false}, 0.5, queue)
	assert.Equal(t, testPalette().Warm, frame[b.Position()])
}

func TestCompositor_SaturatingOverlap(t *testing.T) {
	palette := Palette{Warm: Led{Red: 200, Green: 200, Blue: 200}, Cool: Led{Red: 200, Green: 200, Blue: 200}}
	comp := NewCompositor(10, palette)
	queue := NewBurstQueue(4)

	par := fixedParams(1, 10, 9, BounceOneWay)
	par.Intensity = 1.0
	for i := 0; i < 2; i++ {
		b := newBurst(0, 0, Ambient{ColorTemp: 370}, par, palette, 10)
		b.advance(0) // both heads active at position 0
		queue.Admit(b)
	}

	frame := comp.Render(Ambient{On: true, Brightness: 1, ColorTemp: 370}, 1.0, queue)
	assert.Equal(t, Led{Red: 255, Green: 255, Blue: 255}, frame[0], "200 ambient + 2x200 burst clamps at 255")
	assert.Equal(t, Led{Red: 200, Green: 200, Blue: 200}, frame[1])
}

func TestCompositor_ReusesFrameBuffer(t *testing.T) {
	comp := NewCompositor(10, testPalette())
	queue := NewBurstQueue(1)

	a := comp.Render(Ambient{On: true, Brightness: 0.5, ColorTemp: 370}, 1.0, queue)
	b := comp.Render(Ambient{On: false}, 1.0, queue)
	assert.Equal(t, &a[0], &b[0], "the frame buffer is allocated once")
}
