package telemetry

// Decimation describes how a series was thinned for display.
type Decimation struct {
	Full    int `json:"full"`
	Sampled int `json:"sampled"`
	Stride  int `json:"stride"`
}

// Downsample keeps every Stride-th observation starting with the first,
// choosing the smallest stride that yields at most maxPoints. A maxPoints
// below 1 or a series already small enough is returned unchanged.
func Downsample(s Series, maxPoints int) (Series, Decimation) {
	n := len(s)
	if maxPoints < 1 || n <= maxPoints {
		return s, Decimation{Full: n, Sampled: n, Stride: 1}
	}

	// Stride k keeps (n-1)/k+1 samples.
	stride := (n-1)/maxPoints + 1

	out := make(Series, 0, (n-1)/stride+1)
	for i := 0; i < n; i += stride {
		out = append(out, s[i])
	}
	return out, Decimation{Full: n, Sampled: len(out), Stride: stride}
}
