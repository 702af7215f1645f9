package analysis

import (
	"math"
	"math/cmplx"
)

// NextPow2 returns the smallest power of two >= n.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// FFT computes the discrete Fourier transform of data. Input that is not a
// power of two long is zero-padded.
func FFT(data []float64) []complex128 {
	n := NextPow2(len(data))
	if len(data) == 0 {
		return nil
	}
	padded := make([]float64, n)
	copy(padded, data)
	return fft(padded)
}

func fft(data []float64) []complex128 {
	n := len(data)
	if n == 1 {
		return []complex128{complex(data[0], 0)}
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)

	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := fft(even)
	fodd := fft(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}

	return result
}

// Spectrum is a one-sided magnitude spectrum.
type Spectrum struct {
	Freq      []float64
	Magnitude []float64
}

// PowerSpectrum returns the one-sided magnitude spectrum of data sampled
// every dt seconds. The mean is removed first so the DC bin does not hide
// the ripple.
func PowerSpectrum(data []float64, dt float64) Spectrum {
	if len(data) == 0 || dt <= 0 {
		return Spectrum{}
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	out := FFT(centered)
	n := len(out)
	half := n / 2
	if half == 0 {
		half = 1
	}

	sp := Spectrum{
		Freq:      make([]float64, half),
		Magnitude: make([]float64, half),
	}
	df := 1 / (float64(n) * dt)
	for i := 0; i < half; i++ {
		sp.Freq[i] = float64(i) * df
		sp.Magnitude[i] = cmplx.Abs(out[i]) / float64(len(data))
	}

	return sp
}

// Dominant returns the frequency with the largest magnitude, ignoring DC.
func (s Spectrum) Dominant() float64 {
	best, at := 0.0, 0.0
	for i := 1; i < len(s.Magnitude); i++ {
		if s.Magnitude[i] > best {
			best = s.Magnitude[i]
			at = s.Freq[i]
		}
	}
	return at
}
