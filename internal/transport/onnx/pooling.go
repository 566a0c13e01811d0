package onnx

import "math"

// meanPool averages token embeddings over positions where mask is set.
// hidden is a row-major [seqLen, dims] matrix.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for i, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[i*dims : (i+1)*dims]
		for j, v := range row {
			out[j] += v
		}
		n++
	}
	if n == 0 {
		return out
	}
	for j := range out {
		out[j] /= n
	}
	return out
}

// normalizeL2 scales x in place to unit L2 norm.
func normalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}
