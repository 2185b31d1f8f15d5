package activation

// ProbeActivation applies the MINERVA 2 cubic nonlinearity to a similarity
// vector: A_i = S_i³.
//
// Cubing preserves sign, keeps |S³| ≤ |S| for |S| ≤ 1, and suppresses weak
// matches much harder than strong ones (0.5³ = 0.125 while 0.9³ = 0.729),
// which is what makes retrieval competitive rather than uniform.
//
// The input slice is not modified.
func ProbeActivation(sims []float64) []float64 {
	out := make([]float64, len(sims))
	for i, s := range sims {
		out[i] = s * s * s
	}
	return out
}

// Cube is the scalar form of ProbeActivation.
func Cube(s float64) float64 {
	return s * s * s
}
