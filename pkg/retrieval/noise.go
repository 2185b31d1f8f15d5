package retrieval

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// eulerGamma is the Euler–Mascheroni constant, the mean of a standard
// Gumbel distribution.
const eulerGamma = 0.5772156649015329

// gumbelNoise samples centered Gumbel noise with the given standard
// deviation. Gumbel is the classic ACT-R/softmax-compatible choice: adding
// i.i.d. Gumbel noise before an argmax yields Luce-choice selection
// probabilities.
//
// A Gumbel(μ, β) has mean μ + γβ and standard deviation πβ/√6, so the
// sampler uses β = σ√6/π and μ = −γβ to center it at zero.
type gumbelNoise struct {
	dist distuv.GumbelRight
}

func newGumbelNoise(sigma float64, src rand.Source) *gumbelNoise {
	beta := sigma * math.Sqrt(6) / math.Pi
	return &gumbelNoise{
		dist: distuv.GumbelRight{
			Mu:   -eulerGamma * beta,
			Beta: beta,
			Src:  src,
		},
	}
}

func (g *gumbelNoise) sample() float64 {
	return g.dist.Rand()
}
