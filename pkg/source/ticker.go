package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"image/color"
	"math"

	"github.com/cespare/xxhash/v2"
)

const (
	tickerStep = 1.0 // seconds per point
	maAverage  = 10
)

// Ticker draws a synthetic live quote chart of a symbol.
// Quotes are derived from the symbol and time only,
// so the same moment always gives the same chart.
type Ticker struct {
	symbol string
	window int
	seed   uint64
	base   float64
}

func NewTicker(symbol string, window int) *Ticker {
	if window < 2 {
		window = 2
	}
	seed := xxhash.Sum64String(symbol)
	return &Ticker{
		symbol: symbol,
		window: window,
		seed:   seed,
		base:   100 + float64(seed%50000),
	}
}

func (t *Ticker) String() string { return "ticker:" + t.symbol }

func (t *Ticker) Build(ctx context.Context, elapsed float64, _, _ int) (Renderable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if elapsed < 0 || math.IsNaN(elapsed) {
		return nil, fmt.Errorf("bad time %v", elapsed)
	}

	last := int64(elapsed / tickerStep)
	first := last - int64(t.window) + 1

	// a few extra quotes before the window feed the moving average
	raw := make([]float64, 0, t.window+maAverage-1)
	for i := first - maAverage + 1; i <= last; i++ {
		raw = append(raw, t.Quote(i))
	}
	quotes := make([]Point, 0, t.window)
	avg := make([]Point, 0, t.window)
	sum := 0.0
	for k, p := range raw {
		sum += p
		if k >= maAverage {
			sum -= raw[k-maAverage]
		}
		if k < maAverage-1 {
			continue
		}
		x := float64(first+int64(k-maAverage+1)) * tickerStep
		quotes = append(quotes, Point{X: x, Y: p})
		avg = append(avg, Point{X: x, Y: sum / maAverage})
	}

	now, open := quotes[len(quotes)-1].Y, quotes[0].Y
	change := (now - open) / open * 100
	up := color.RGBA{R: 80, G: 200, B: 120, A: 255}
	if change < 0 {
		up = color.RGBA{R: 230, G: 90, B: 90, A: 255}
	}

	return ChartLike{
		Title:      fmt.Sprintf("%s  %.2f  %+.2f%%  t=%.1fs", t.symbol, now, change, elapsed),
		Background: color.RGBA{R: 14, G: 17, B: 23, A: 255},
		Foreground: color.RGBA{R: 200, G: 205, B: 215, A: 255},
		GridLines:  4,
		Series: []Series{
			{Name: "price", Points: quotes, Color: up, Width: 2.5},
			{Name: fmt.Sprintf("ma%d", maAverage), Points: avg, Color: color.RGBA{R: 240, G: 185, B: 11, A: 255}, Width: 1.5},
		},
	}, nil
}

// Quote returns the synthetic quote for the i-th step.
func (t *Ticker) Quote(i int64) float64 {
	x := float64(i)
	phase := float64(t.seed%628) / 100
	return t.base * (1 + 0.03*math.Sin(x/40+phase) + 0.01*math.Sin(x/9.7) + 0.004*t.noise(i))
}

// noise maps the step into [-1, 1] with a hash.
func (t *Ticker) noise(i int64) float64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], t.seed)
	binary.LittleEndian.PutUint64(b[8:], uint64(i))
	return float64(xxhash.Sum64(b[:])%20001)/10000 - 1
}
