package sea

import (
	"testing"
)

func BenchmarkEncode(b *testing.B) {
	samples := [][]int16{triangleWave(44100, 12000)}
	params := defaultParams()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(samples, 44100, params, nil); err != nil {
			b.Fatalf("encode: %v", err)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	samples := [][]int16{triangleWave(44100, 12000)}
	params := defaultParams()
	data, err := Encode(samples, 44100, params, nil)
	if err != nil {
		b.Fatalf("encode: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(data); err != nil {
			b.Fatalf("decode: %v", err)
		}
	}
}
