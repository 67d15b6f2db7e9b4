package core

import (
	"math"

	"github.com/mopilskog/NICER-Pointing/model"
)

// AbsorbedPowerLaw evaluates C · E^(−Γ) · exp(−σ·Nh) at one energy.
// sigma is the photoelectric cross-section attached to the band the
// energy falls in; the catalogs tabulate one value per band.
func AbsorbedPowerLaw(energyKeV, sigma, norm, gamma, nh float64) float64 {
	return norm * math.Pow(energyKeV, -gamma) * math.Exp(-sigma*nh)
}

// PowerLawFit is the outcome of fitting band fluxes with an absorbed
// power law. When Converged is false the parameters are meaningless and
// the caller substitutes defaults.
type PowerLawFit struct {
	Norm           float64
	PhotonIndex    float64
	PhotonIndexErr float64
	Converged      bool
}

// FitPowerLaw fits (norm, Γ) to one source's band fluxes at the
// schema's band centers, with the hydrogen column held fixed. Band
// fluxes and errors are converted to flux densities by dividing by the
// band width before fitting, so the model compares like with like
// across bands of very different widths. Errors weight the residuals; a
// missing or non-positive error weights its band at unity. Bands whose
// flux is not finite are skipped.
//
// The solver is damped Gauss-Newton (Levenberg-Marquardt) over the two
// free parameters. Fewer than two usable bands, or a fit that never
// reduces the residual to a finite value, reports Converged=false.
func FitPowerLaw(schema *model.CatalogSchema, bandFlux, bandFluxErr []float64, nh float64) PowerLawFit {
	var (
		energies []float64
		sigmas   []float64
		fluxes   []float64
		weights  []float64
	)
	for i, f := range bandFlux {
		if i >= len(schema.EnergyBandCenters) {
			break
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			continue
		}
		width := 1.0
		if i < len(schema.EnergyBandHalfWidths) && schema.EnergyBandHalfWidths[i] > 0 {
			width = 2 * schema.EnergyBandHalfWidths[i]
		}
		w := 1.0
		if i < len(bandFluxErr) {
			if e := bandFluxErr[i]; e > 0 && !math.IsInf(e, 0) {
				w = width / e
			}
		}
		energies = append(energies, schema.EnergyBandCenters[i])
		sigmas = append(sigmas, schema.Sigma[i])
		fluxes = append(fluxes, f/width)
		weights = append(weights, w)
	}
	if len(fluxes) < 2 {
		return PowerLawFit{}
	}

	// Seed the norm from the first usable band at Γ=1.7 so the first
	// iteration starts within a few orders of magnitude of the answer.
	const gammaSeed = 1.7
	normSeed := fluxes[0] / math.Pow(energies[0], -gammaSeed)

	x := []float64{normSeed, gammaSeed}
	lower := []float64{0, -2}
	upper := []float64{math.Inf(1), 6}

	residuals := func(p []float64, out []float64) {
		for k := range fluxes {
			f := AbsorbedPowerLaw(energies[k], sigmas[k], p[0], p[1], nh)
			out[k] = (f - fluxes[k]) * weights[k]
		}
	}
	jacobian := func(p []float64, jac [][]float64) {
		for k := range fluxes {
			base := math.Pow(energies[k], -p[1]) * math.Exp(-sigmas[k]*nh)
			jac[k][0] = base * weights[k]
			jac[k][1] = -p[0] * math.Log(energies[k]) * base * weights[k]
		}
	}

	cost, cov, ok := levenbergMarquardt(x, lower, upper, len(fluxes), residuals, jacobian)
	if !ok || math.IsNaN(x[0]) || math.IsNaN(x[1]) {
		return PowerLawFit{}
	}

	gammaErr := math.NaN()
	if dof := len(fluxes) - 2; dof > 0 && cov != nil {
		gammaErr = math.Sqrt(cov[1][1] * cost / float64(dof))
	}
	return PowerLawFit{
		Norm:           x[0],
		PhotonIndex:    x[1],
		PhotonIndexErr: gammaErr,
		Converged:      true,
	}
}

// levenbergMarquardt minimizes the sum of squared residuals over the
// parameter vector x, in place, within box bounds. It returns the final
// cost, the inverse of JᵀJ at the solution (nil when singular), and
// whether any productive step was ever taken.
func levenbergMarquardt(
	x, lower, upper []float64,
	m int,
	residuals func(p, out []float64),
	jacobian func(p []float64, jac [][]float64),
) (cost float64, cov [][]float64, ok bool) {
	const (
		tolerance = 1e-10
		maxIter   = 200
	)
	n := len(x)
	for j := range x {
		x[j] = clampLM(x[j], lower[j], upper[j])
	}

	fi := make([]float64, m)
	fiNew := make([]float64, m)
	jac := make([][]float64, m)
	for i := range jac {
		jac[i] = make([]float64, n)
	}

	residuals(x, fi)
	cost = sumOfSquares(fi)
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return cost, nil, false
	}

	lambda := 1e-3
	nu := 2.0

	JtJ := newSquare(n)
	A := newSquare(n)
	Jtf := make([]float64, n)
	rhs := make([]float64, n)
	dx := make([]float64, n)
	xNew := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		jacobian(x, jac)
		for i := 0; i < n; i++ {
			Jtf[i] = 0
			for j := 0; j < n; j++ {
				JtJ[i][j] = 0
			}
		}
		for k := 0; k < m; k++ {
			for i := 0; i < n; i++ {
				ji := jac[k][i]
				Jtf[i] += ji * fi[k]
				for j := i; j < n; j++ {
					JtJ[i][j] += ji * jac[k][j]
				}
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < i; j++ {
				JtJ[i][j] = JtJ[j][i]
			}
		}

		gradNorm := 0.0
		for i := 0; i < n; i++ {
			gradNorm += Jtf[i] * Jtf[i]
		}
		if math.Sqrt(gradNorm) < tolerance*(1+cost) {
			break
		}

		stepped := false
		for tries := 0; tries < 20; tries++ {
			for i := 0; i < n; i++ {
				copy(A[i], JtJ[i])
				A[i][i] += lambda * (1 + JtJ[i][i])
				rhs[i] = -Jtf[i]
			}
			if !solveLinear(A, rhs, dx, n) {
				lambda *= nu
				continue
			}
			for j := 0; j < n; j++ {
				xNew[j] = clampLM(x[j]+dx[j], lower[j], upper[j])
			}
			residuals(xNew, fiNew)
			costNew := sumOfSquares(fiNew)
			if costNew < cost {
				improvement := (cost - costNew) / cost
				copy(x, xNew)
				copy(fi, fiNew)
				cost = costNew
				lambda = math.Max(lambda/3.0, 1e-15)
				nu = 2.0
				ok = true
				stepped = true
				if improvement < tolerance {
					iter = maxIter
				}
				break
			}
			lambda *= nu
			nu *= 2.0
			if lambda > 1e16 {
				iter = maxIter
				break
			}
		}
		if !stepped {
			break
		}
	}

	cov = invertSquare(JtJ, n)
	return cost, cov, ok
}

func newSquare(n int) [][]float64 {
	s := make([][]float64, n)
	for i := range s {
		s[i] = make([]float64, n)
	}
	return s
}

// invertSquare inverts an n×n matrix column by column through the same
// elimination used for the step solve. Returns nil when singular.
func invertSquare(A [][]float64, n int) [][]float64 {
	inv := newSquare(n)
	e := make([]float64, n)
	col := make([]float64, n)
	for j := 0; j < n; j++ {
		for i := range e {
			e[i] = 0
		}
		e[j] = 1
		if !solveLinear(A, e, col, n) {
			return nil
		}
		for i := 0; i < n; i++ {
			inv[i][j] = col[i]
		}
	}
	return inv
}

func sumOfSquares(fi []float64) float64 {
	s := 0.0
	for _, v := range fi {
		s += v * v
	}
	return s
}

func clampLM(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// solveLinear solves A·x = b by Gaussian elimination with partial
// pivoting. A and b are left untouched.
func solveLinear(A [][]float64, b, x []float64, n int) bool {
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		copy(a[i], A[i])
	}
	rhs := make([]float64, n)
	copy(rhs, b)

	for col := 0; col < n; col++ {
		maxRow := col
		maxVal := math.Abs(a[col][col])
		for row := col + 1; row < n; row++ {
			if av := math.Abs(a[row][col]); av > maxVal {
				maxVal = av
				maxRow = row
			}
		}
		if maxVal < 1e-300 {
			return false
		}
		if maxRow != col {
			a[col], a[maxRow] = a[maxRow], a[col]
			rhs[col], rhs[maxRow] = rhs[maxRow], rhs[col]
		}
		pivot := a[col][col]
		for row := col + 1; row < n; row++ {
			factor := a[row][col] / pivot
			for j := col; j < n; j++ {
				a[row][j] -= factor * a[col][j]
			}
			rhs[row] -= factor * rhs[col]
		}
	}
	for row := n - 1; row >= 0; row-- {
		sum := rhs[row]
		for j := row + 1; j < n; j++ {
			sum -= a[row][j] * x[j]
		}
		x[row] = sum / a[row][row]
	}
	return true
}
