package source

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/framecast/framecast/pkg/config"
	"github.com/framecast/framecast/pkg/logger"
)

func TestTicker(t *testing.T) {
	tk := NewTicker("BTCUSDT", 60)

	r, err := tk.Build(context.Background(), 123.4, 640, 360)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := r.(ChartLike)
	if !ok {
		t.Fatalf("got %T, want ChartLike", r)
	}
	if len(c.Series) != 2 {
		t.Fatalf("got %v series", len(c.Series))
	}
	for _, s := range c.Series {
		if len(s.Points) != 60 {
			t.Errorf("series %v has %v points", s.Name, len(s.Points))
		}
	}
	if last := c.Series[0].Points[59]; last.X != 123 || last.Y != tk.Quote(123) {
		t.Errorf("wrong last point %v", last)
	}

	again, _ := NewTicker("BTCUSDT", 60).Build(context.Background(), 123.4, 640, 360)
	if !reflect.DeepEqual(r, again) {
		t.Errorf("same time should give the same chart")
	}
	other, _ := NewTicker("ETHUSDT", 60).Build(context.Background(), 123.4, 640, 360)
	if reflect.DeepEqual(r, other) {
		t.Errorf("symbols should give different charts")
	}
}

func TestTickerMovingAverage(t *testing.T) {
	tk := NewTicker("X", 5)
	r, _ := tk.Build(context.Background(), 50, 0, 0)
	avg := r.(ChartLike).Series[1].Points
	sum := 0.0
	for i := int64(41); i <= 50; i++ {
		sum += tk.Quote(i)
	}
	if got, want := avg[len(avg)-1].Y, sum/maAverage; got-want > 1e-9 || want-got > 1e-9 {
		t.Errorf("ma %v, want %v", got, want)
	}
}

func TestTickerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if r, err := NewTicker("X", 10).Build(ctx, 1, 1, 1); err == nil || r != nil {
		t.Errorf("expected an error for a cancelled context, got %v %v", r, err)
	}
}

func TestNone(t *testing.T) {
	r, err := None{}.Build(context.Background(), 1, 1, 1)
	if r != nil || err != nil {
		t.Errorf("None should give nothing, got %v %v", r, err)
	}
}

func writePng(t *testing.T, path string, w, h int) {
	t.Helper()
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.png")
	writePng(t, path, 32, 16)

	s, err := NewSnapshot(context.Background(), path, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	size := func() image.Point {
		r, err := s.Build(context.Background(), 0, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		return r.(RasterImage).Image.Bounds().Size()
	}
	if sz := size(); sz != image.Pt(32, 16) {
		t.Fatalf("size %v", sz)
	}

	writePng(t, path, 8, 8)
	deadline := time.Now().Add(3 * time.Second)
	for size() != image.Pt(8, 8) {
		if time.Now().After(deadline) {
			t.Fatalf("the snapshot wasn't reloaded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSnapshotMissingFile(t *testing.T) {
	s, err := NewSnapshot(context.Background(), filepath.Join(t.TempDir(), "no.png"), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	if r, err := s.Build(context.Background(), 0, 0, 0); r != nil || err == nil {
		t.Errorf("expected an error, got %v %v", r, err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		conf    config.Source
		want    any
		wantErr bool
	}{
		{conf: config.Source{Builder: "ticker", Symbol: "A", Window: 3}, want: &Ticker{}},
		{conf: config.Source{}, want: &Ticker{}},
		{conf: config.Source{Builder: "none"}, want: None{}},
		{conf: config.Source{Builder: "snapshot"}, wantErr: true},
		{conf: config.Source{Builder: "plotly"}, wantErr: true},
	}
	for _, tt := range tests {
		b, closer, err := New(context.Background(), tt.conf, logger.Nop())
		if tt.wantErr {
			if err == nil {
				t.Errorf("%v: expected an error", tt.conf.Builder)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: %v", tt.conf.Builder, err)
			continue
		}
		if closer != nil {
			_ = closer.Close()
		}
		if reflect.TypeOf(b) != reflect.TypeOf(tt.want) {
			t.Errorf("%v: got %T, want %T", tt.conf.Builder, b, tt.want)
		}
	}
}

func TestSnapshotNilLogger(t *testing.T) {
	s, err := NewSnapshot(context.Background(), filepath.Join(t.TempDir(), "no.png"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}
