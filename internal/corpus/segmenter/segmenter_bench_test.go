package segmenter

import (
	"fmt"
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog.",
	"medium": `Distributed search engines process queries across multiple shards. Each shard
        maintains its own inverted index and responds to queries independently. Results
        are merged using a global ranking algorithm. This architecture enables sub-second
        query latency even with 3.5 billion documents spread across hundreds of nodes.`,
	"long": strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. These systems combine tokenization, stemming and stop word removal.
        Is the index fresh? Caching layers reduce latency for repeated queries! `, 20),
}

func BenchmarkSplit(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Split(text)
			}
		})
	}
}

func BenchmarkSplitParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Split(text)
		}
	})
}

func BenchmarkSplitVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	base := "Sentence boundaries matter. They split text into units. "
	for _, size := range sizes {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Split(text)
			}
		})
	}
}
