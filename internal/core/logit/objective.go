package logit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// objective is 0.5*|coef|^2 + c * sum_i w_i * logloss_i over standardised
// rows of A. The last element of x is the intercept and is not penalised
type objective struct {
	A         *mat.Dense
	y, w      []float64
	c         float64
	intercept bool
}

func (o *objective) margins(x []float64) []float64 {
	rows, p := o.A.Dims()
	coef := mat.NewVecDense(p, x[:p])
	z := mat.NewVecDense(rows, nil)
	z.MulVec(o.A, coef)
	out := z.RawVector().Data
	if o.intercept {
		for i := range out {
			out[i] += x[p]
		}
	}
	return out
}

func (o *objective) fn(x []float64) float64 {
	_, p := o.A.Dims()
	var loss float64
	for i, z := range o.margins(x) {
		// log(1+e^z) - y*z
		loss += o.w[i] * (softplus(z) - o.y[i]*z)
	}
	var reg float64
	for _, b := range x[:p] {
		reg += b * b
	}
	return 0.5*reg + o.c*loss
}

func (o *objective) grad(g, x []float64) {
	rows, p := o.A.Dims()
	z := o.margins(x)
	r := make([]float64, rows)
	var rsum float64
	for i := range z {
		r[i] = o.c * o.w[i] * (sigmoid(z[i]) - o.y[i])
		rsum += r[i]
	}
	gv := mat.NewVecDense(p, g[:p])
	gv.MulVec(o.A.T(), mat.NewVecDense(rows, r))
	for j := range p {
		g[j] += x[j]
	}
	g[p] = 0
	if o.intercept {
		g[p] = rsum
	}
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
