package qkd_test

import (
	"bytes"
	"testing"

	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/qkd"
)

// seededReader is a splitmix64 stream: deterministic, well-mixed bytes for
// reproducible exchanges.
type seededReader struct {
	state uint64
}

func (r *seededReader) Read(p []byte) (int, error) {
	for i := range p {
		r.state += 0x9e3779b97f4a7c15
		z := r.state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		p[i] = byte(z ^ (z >> 31))
	}
	return len(p), nil
}

func TestSimulateProducesRequestedLength(t *testing.T) {
	for _, bits := range []int{128, 256, 512} {
		sim := qkd.NewSimulator(qkd.WithRandom(&seededReader{state: 1}))

		mat, err := sim.Simulate(bits)
		if err != nil {
			t.Fatalf("Simulate(%d) failed: %v", bits, err)
		}
		if len(mat.Secret) != bits/8 {
			t.Errorf("Simulate(%d) secret length: got %d bytes, want %d", bits, len(mat.Secret), bits/8)
		}
		if mat.ErrorRate != 0 {
			t.Errorf("noiseless channel should estimate zero error rate, got %f", mat.ErrorRate)
		}
		if mat.BasisMatches == 0 || mat.SiftedBits == 0 {
			t.Errorf("expected sifting statistics, got matches=%d sifted=%d", mat.BasisMatches, mat.SiftedBits)
		}
	}
}

func TestSimulateDeterministicWithSeededRandom(t *testing.T) {
	a := qkd.NewSimulator(qkd.WithRandom(&seededReader{state: 42}))
	b := qkd.NewSimulator(qkd.WithRandom(&seededReader{state: 42}))

	matA, err := a.Simulate(256)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	matB, err := b.Simulate(256)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	if !bytes.Equal(matA.Secret, matB.Secret) {
		t.Error("same randomness should produce the same secret")
	}
	if matA.ErrorRate != matB.ErrorRate || matA.SiftedBits != matB.SiftedBits {
		t.Error("same randomness should produce the same statistics")
	}
}

func TestSimulateIndependentChannels(t *testing.T) {
	sim := qkd.NewSimulator()

	matA, err := sim.Simulate(256)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	matB, err := sim.Simulate(256)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if bytes.Equal(matA.Secret, matB.Secret) {
		t.Error("independent exchanges should produce different secrets")
	}
}

func TestEavesdropDetection(t *testing.T) {
	// Heavy channel noise pushes the sampled error rate far above the
	// default threshold on every exchange.
	for seed := uint64(1); seed <= 10; seed++ {
		sim := qkd.NewSimulator(
			qkd.WithChannelNoise(0.5),
			qkd.WithRandom(&seededReader{state: seed}),
		)

		_, err := sim.Simulate(256)
		if err == nil {
			t.Fatalf("seed %d: hostile channel should abort", seed)
		}
		if !qerrors.Is(err, qerrors.ErrEavesdropping) {
			t.Fatalf("seed %d: expected eavesdropping error, got %v", seed, err)
		}

		var ee *qkd.EavesdropError
		if !qerrors.As(err, &ee) {
			t.Fatalf("seed %d: error should carry measured statistics", seed)
		}
		if ee.ErrorRate <= ee.Threshold {
			t.Errorf("seed %d: reported rate %f not above threshold %f", seed, ee.ErrorRate, ee.Threshold)
		}
	}
}

func TestLowNoiseBelowThreshold(t *testing.T) {
	sim := qkd.NewSimulator(
		qkd.WithChannelNoise(0.02),
		qkd.WithRandom(&seededReader{state: 7}),
	)

	mat, err := sim.Simulate(256)
	if err != nil {
		t.Fatalf("Simulate with mild noise failed: %v", err)
	}
	if mat.ErrorRate > sim.ErrorThreshold() {
		t.Errorf("error rate %f should stay below threshold %f", mat.ErrorRate, sim.ErrorThreshold())
	}
	if len(mat.Secret) != 32 {
		t.Errorf("secret length: got %d, want 32", len(mat.Secret))
	}
}

func TestRetryAfterAbort(t *testing.T) {
	// A fresh call simulates a fresh channel: after an abort under a
	// lowered threshold, a clean simulator succeeds.
	hostile := qkd.NewSimulator(
		qkd.WithChannelNoise(0.5),
		qkd.WithRandom(&seededReader{state: 3}),
	)
	if _, err := hostile.Simulate(256); !qerrors.Is(err, qerrors.ErrEavesdropping) {
		t.Fatalf("expected abort, got %v", err)
	}

	clean := qkd.NewSimulator(qkd.WithRandom(&seededReader{state: 3}))
	if _, err := clean.Simulate(256); err != nil {
		t.Fatalf("clean retry failed: %v", err)
	}
}

func TestSimulateValidation(t *testing.T) {
	sim := qkd.NewSimulator(qkd.WithRandom(&seededReader{state: 1}))

	for _, bits := range []int{0, -8, 7, 100, 1 << 20} {
		_, err := sim.Simulate(bits)
		if !qerrors.Is(err, qerrors.ErrValidation) {
			t.Errorf("Simulate(%d) should fail validation, got %v", bits, err)
		}
	}
}

func TestInsufficientMaterial(t *testing.T) {
	// With almost no oversampling, sifting and sample disclosure cannot
	// cover the request.
	sim := qkd.NewSimulator(
		qkd.WithOversampleFactor(1),
		qkd.WithRandom(&seededReader{state: 1}),
	)

	_, err := sim.Simulate(256)
	if !qerrors.Is(err, qerrors.ErrInsufficientKey) {
		t.Errorf("expected insufficient-key, got %v", err)
	}
}
