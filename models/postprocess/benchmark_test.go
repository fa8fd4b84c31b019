package postprocess

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkNMS(b *testing.B) {
	candidates := Decode(randomGrid(7, 320, 240), 0.9, 0)

	for _, bench := range []struct {
		name string
		fn   func([]Candidate, NMSConfig) []Candidate
	}{
		{"greedy", ApplyGreedyNMS},
		{"bucketed", ApplyBucketedNMS},
	} {
		b.Run(fmt.Sprintf("%s/%d", bench.name, len(candidates)), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				bench.fn(candidates, NMSConfig{Radius: 4})
			}
		})
	}
}

func BenchmarkPipeline(b *testing.B) {
	h := randomGrid(8, 640, 480)
	f := randomField(9, 256, 60, 80)

	for _, parallel := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.Threshold = 0.95
		cfg.UseParallel = parallel
		p, err := NewPipeline(cfg)
		if err != nil {
			b.Fatal(err)
		}

		b.Run(fmt.Sprintf("parallel=%t", parallel), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := p.Run(context.Background(), h, f); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
