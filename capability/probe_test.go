package capability

import (
	"sync"
	"testing"
)

func TestProbeEvaluatesOnce(t *testing.T) {
	calls := 0
	p := NewProbe(func() Capabilities {
		calls++
		return Capabilities{Directory: true}
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Capabilities()
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("detect called %d times, want 1", calls)
	}
	if !p.Directory() || p.Archive() {
		t.Errorf("unexpected capabilities: %+v", p.Capabilities())
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		want    Capabilities
	}{
		{"disabled", false, Capabilities{}},
		{"enabled", true, Capabilities{Directory: true, Archive: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewProbe(Detect(tt.enabled)).Capabilities()
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.Any() != tt.enabled {
				t.Errorf("Any() = %v", got.Any())
			}
		})
	}
}

func TestStaticAndNil(t *testing.T) {
	if got := Static(Capabilities{Archive: true}).Capabilities(); got.Directory || !got.Archive {
		t.Errorf("Static: %+v", got)
	}
	if NewProbe(nil).Capabilities().Any() {
		t.Error("nil detect should report nothing")
	}
}
