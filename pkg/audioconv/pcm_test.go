package audioconv

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDownmix(t *testing.T) {
	got := Downmix([]float32{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float32{0.5, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Downmix()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	mono := []float32{0.1, 0.2}
	if out := Downmix(mono, 1); &out[0] != &mono[0] {
		t.Error("Downmix(mono) copied input")
	}
}

func TestResampleLength(t *testing.T) {
	tests := []struct {
		in, out, n, want int
	}{
		{48000, 16000, 4800, 1600},
		{16000, 16000, 100, 100},
		{8000, 16000, 10, 20},
	}
	for _, tt := range tests {
		got := Resample(make([]float32, tt.n), tt.in, tt.out)
		if len(got) != tt.want {
			t.Errorf("Resample(%d, %d->%d) len = %d, want %d", tt.n, tt.in, tt.out, len(got), tt.want)
		}
	}
}

func TestResampleInterpolates(t *testing.T) {
	got := Resample([]float32{0, 1}, 1, 2)
	want := []float32{0, 0.5, 1, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Resample()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestToMono16k(t *testing.T) {
	// 0.1 s of stereo at 48 kHz.
	in := make([]int16, 4800*2)
	for i := range in {
		in[i] = 16384
	}
	out := ToMono16k(in, 2, 48000)
	if len(out) != 1600 {
		t.Fatalf("len = %d, want 1600", len(out))
	}
	if math.Abs(float64(out[10])-0.5) > 1e-6 {
		t.Errorf("sample = %v, want 0.5", out[10])
	}
}

func TestLevel(t *testing.T) {
	if Level(nil) != 0 {
		t.Errorf("Level(nil) = %v, want 0", Level(nil))
	}
	got := Level([]float32{0.3, 0.4})
	if math.Abs(got-5) > 1e-6 {
		t.Errorf("Level() = %v, want 5", got)
	}
}

func TestInt16RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1.5}
	out := Int16ToFloat32(Float32ToInt16(in))
	if math.Abs(float64(out[1]-0.5)) > 1e-3 || out[3] > 1 {
		t.Errorf("round trip = %v", out)
	}
}

func TestConvertUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(path, []byte("hello world"), 0o644)
	_, err := ConvertFileToPCM16k(context.Background(), path, Options{})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("ConvertFileToPCM16k() error = %v, want ErrUnsupported", err)
	}
}
