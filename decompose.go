package saak

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SVD decomposes the data matrix directly with a singular value decomposition.
type SVD struct{}

func (SVD) Decompose(centred *mat.Dense) (components *mat.Dense, variances []float64, err error) {
	r, c := centred.Dims()
	var pc stat.PC
	if ok := pc.PrincipalComponents(centred, nil); !ok {
		return nil, nil, numErr("SVD", "singular value decomposition of a %d×%d matrix failed", r, c)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	k := minInt(len(vars), minInt(r, c))
	if _, vc := vecs.Dims(); vc < k {
		k = vc
	}
	components = mat.NewDense(k, c, nil)
	components.Copy(vecs.Slice(0, c, 0, k).T())
	return components, vars[:k], nil
}

// Eigen eigendecomposes the sample covariance matrix of the data.
type Eigen struct{}

func (Eigen) Decompose(centred *mat.Dense) (components *mat.Dense, variances []float64, err error) {
	r, c := centred.Dims()
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, centred, nil)

	var es mat.EigenSym
	if ok := es.Factorize(&cov, true); !ok {
		return nil, nil, numErr("Eigen", "eigendecomposition of a %d×%d covariance matrix failed", c, c)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// eigenvalues come out ascending
	k := minInt(r, c)
	components = mat.NewDense(k, c, nil)
	variances = make([]float64, k)
	for i := 0; i < k; i++ {
		src := c - 1 - i
		variances[i] = vals[src]
		if variances[i] < 0 {
			variances[i] = 0
		}
		for j := 0; j < c; j++ {
			components.Set(i, j, vecs.At(j, src))
		}
	}
	return components, variances, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
