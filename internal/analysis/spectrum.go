package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrShortSeries = errors.New("analysis: need at least 4 samples")

// Spectrum returns the one-sided amplitude spectrum of data after removing
// its mean. freqs[i] is in Hz for the given sample rate.
func Spectrum(data []float64, sampleRate float64) (freqs, amps []float64, err error) {
	n := len(data)
	if n < 4 {
		return nil, nil, ErrShortSeries
	}
	if sampleRate <= 0 {
		return nil, nil, errors.New("analysis: sample rate must be positive")
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	centered := make([]float64, n)
	for i, v := range data {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	half := n/2 + 1
	freqs = make([]float64, half)
	amps = make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) * sampleRate / float64(n)
		amps[k] = cmplx.Abs(coeffs[k]) / float64(n)
	}
	return freqs, amps, nil
}

// DominantFrequency returns the non-DC bin with the largest amplitude.
// A constant series reports 0 Hz.
func DominantFrequency(data []float64, sampleRate float64) (freq, amp float64, err error) {
	freqs, amps, err := Spectrum(data, sampleRate)
	if err != nil {
		return 0, 0, err
	}
	for k := 1; k < len(amps); k++ {
		if amps[k] > amp {
			freq, amp = freqs[k], amps[k]
		}
	}
	return freq, amp, nil
}

// SampleRate estimates samples per second from monotonic timestamps.
func SampleRate(times []float64) float64 {
	if len(times) < 2 {
		return 0
	}
	span := times[len(times)-1] - times[0]
	if span <= 0 {
		return 0
	}
	return float64(len(times)-1) / span
}
