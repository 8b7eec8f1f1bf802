// Package qkd simulates the BB84 quantum key distribution protocol.
//
// This is a classical simulation: both endpoints and the channel live in one
// process, and no physical security guarantee follows from it. The output is
// treated strictly as auxiliary entropy that the key derivation step fuses
// with a genuine ML-KEM shared secret; it is never used as a key on its own.
//
// One Simulate call models a complete exchange:
//
//  1. The sender draws random bits and random preparation bases; the
//     receiver draws random measurement bases.
//  2. The channel flips each transmitted bit with the configured noise
//     probability. Where bases differ, the measurement outcome is random.
//  3. Sifting keeps only positions where both bases match.
//  4. A disclosed sample of the sifted bits estimates the channel error
//     rate; sampled bits are discarded. A rate above the threshold aborts
//     the exchange with an eavesdropping error, which is retryable: a fresh
//     call simulates a fresh channel.
//  5. Parity-block reconciliation corrects the receiver's remaining errors,
//     counting every disclosed parity bit as leakage.
//  6. Privacy amplification compresses the reconciled bits through
//     SHAKE-256 down to exactly the requested length, after checking that
//     the sifted material minus estimated leakage still covers the request.
//
// Each call is self-contained, so concurrent Simulate calls are safe.
package qkd

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/routersec/cryptex-core/internal/constants"
	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/crypto"
)

// Basis is a photon preparation or measurement basis.
type Basis uint8

const (
	// Rectilinear is the + basis (0° and 90° polarization)
	Rectilinear Basis = iota

	// Diagonal is the × basis (45° and 135° polarization)
	Diagonal
)

// String returns the conventional symbol for the basis.
func (b Basis) String() string {
	if b == Rectilinear {
		return "+"
	}
	return "x"
}

// Material is the outcome of one simulated exchange. It is ephemeral and
// never persisted; only derived keys reach storage.
type Material struct {
	// Secret is the final amplified secret, exactly the requested number
	// of bits long.
	Secret []byte

	// ErrorRate is the channel error rate estimated on the disclosed sample.
	ErrorRate float64

	// BasisMatches counts raw positions where both bases agreed.
	BasisMatches int

	// SiftedBits counts bits that survived sifting and sample disclosure.
	SiftedBits int
}

// Simulator models the exchange with fixed parameters. Construct once and
// reuse; each Simulate call draws a fresh channel.
type Simulator struct {
	errorThreshold float64
	sampleFraction float64
	channelNoise   float64
	oversample     int
	rand           io.Reader
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithErrorThreshold overrides the abort threshold for the estimated
// channel error rate.
func WithErrorThreshold(t float64) Option {
	return func(s *Simulator) {
		s.errorThreshold = t
	}
}

// WithChannelNoise sets the probability that the simulated channel flips a
// transmitted bit. Raising this above the error threshold models an
// eavesdropped or hostile channel.
func WithChannelNoise(p float64) Option {
	return func(s *Simulator) {
		s.channelNoise = p
	}
}

// WithSampleFraction sets the fraction of sifted bits disclosed for error
// estimation.
func WithSampleFraction(f float64) Option {
	return func(s *Simulator) {
		s.sampleFraction = f
	}
}

// WithOversampleFactor sets how many raw qubits are exchanged per requested
// key bit.
func WithOversampleFactor(n int) Option {
	return func(s *Simulator) {
		s.oversample = n
	}
}

// WithRandom replaces the randomness source. This exists solely so tests can
// run the exchange reproducibly from a seeded reader; production code paths
// construct simulators without it and draw from the system CSPRNG.
func WithRandom(r io.Reader) Option {
	return func(s *Simulator) {
		s.rand = r
	}
}

// NewSimulator creates a BB84 simulator with the default parameters from
// internal/constants, drawing randomness from the system CSPRNG.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		errorThreshold: constants.QKDErrorThreshold,
		sampleFraction: constants.QKDSampleFraction,
		channelNoise:   0,
		oversample:     constants.QKDOversampleFactor,
		rand:           crypto.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ErrorThreshold returns the configured abort threshold.
func (s *Simulator) ErrorThreshold() float64 {
	return s.errorThreshold
}

// Simulate runs one complete exchange and returns a secret of exactly
// requestedBits bits. requestedBits must be a positive multiple of 8 no
// larger than constants.QKDMaxRequestBits.
//
// An estimated error rate above the threshold fails with an EavesdropError
// wrapping ErrEavesdropping; the caller may retry with a fresh call.
func (s *Simulator) Simulate(requestedBits int) (*Material, error) {
	if requestedBits <= 0 || requestedBits%8 != 0 || requestedBits > constants.QKDMaxRequestBits {
		return nil, qerrors.NewCryptoError("QKD.Simulate", qerrors.ErrValidation)
	}

	raw := requestedBits * s.oversample

	senderBits, err := s.randomBits(raw)
	if err != nil {
		return nil, err
	}
	senderBases, err := s.randomBits(raw)
	if err != nil {
		return nil, err
	}
	receiverBases, err := s.randomBits(raw)
	if err != nil {
		return nil, err
	}

	// Transmit through the noisy channel and measure. A matching basis
	// yields the transmitted bit; a mismatched basis yields a coin flip.
	receiverBits := make([]bool, raw)
	for i := 0; i < raw; i++ {
		transmitted := senderBits[i]
		if s.channelNoise > 0 {
			flip, err := s.bernoulli(s.channelNoise)
			if err != nil {
				return nil, err
			}
			if flip {
				transmitted = !transmitted
			}
		}
		if senderBases[i] == receiverBases[i] {
			receiverBits[i] = transmitted
		} else {
			coin, err := s.bernoulli(0.5)
			if err != nil {
				return nil, err
			}
			receiverBits[i] = coin
		}
	}

	// Sift: keep positions where preparation and measurement bases agree.
	var senderSifted, receiverSifted []bool
	for i := 0; i < raw; i++ {
		if senderBases[i] == receiverBases[i] {
			senderSifted = append(senderSifted, senderBits[i])
			receiverSifted = append(receiverSifted, receiverBits[i])
		}
	}
	basisMatches := len(senderSifted)

	// Disclose a sample for error estimation; disclosed bits are burned.
	sample := int(float64(basisMatches) * s.sampleFraction)
	if sample < 1 || basisMatches-sample < requestedBits {
		return nil, qerrors.NewCryptoError("QKD.Simulate", qerrors.ErrInsufficientKey)
	}

	mismatches := 0
	for i := 0; i < sample; i++ {
		if senderSifted[i] != receiverSifted[i] {
			mismatches++
		}
	}
	errorRate := float64(mismatches) / float64(sample)

	if errorRate > s.errorThreshold {
		return nil, &EavesdropError{ErrorRate: errorRate, Threshold: s.errorThreshold}
	}

	senderKept := senderSifted[sample:]
	receiverKept := receiverSifted[sample:]

	// Reconcile the receiver's residual errors block by block. Every
	// disclosed parity bit counts against the usable entropy.
	leaked := reconcile(senderKept, receiverKept, constants.QKDParityBlockSize)

	// Privacy amplification: the estimated eavesdropper knowledge is the
	// disclosed parity bits plus the error-rate share of the kept bits.
	eavesdropped := int(math.Ceil(errorRate * float64(len(senderKept))))
	usable := len(senderKept) - leaked - eavesdropped
	if usable < requestedBits {
		return nil, qerrors.NewCryptoError("QKD.Simulate", qerrors.ErrInsufficientKey)
	}

	secret, err := crypto.DeriveKey(constants.DomainSeparatorAmplify, packBits(senderKept), requestedBits/8)
	if err != nil {
		return nil, err
	}

	return &Material{
		Secret:       secret,
		ErrorRate:    errorRate,
		BasisMatches: basisMatches,
		SiftedBits:   len(senderKept),
	}, nil
}

// EavesdropError is re-exported from internal/errors for callers that need
// the measured statistics.
type EavesdropError = qerrors.EavesdropError

// reconcile corrects receiver toward sender with interactive parity
// exchange: one parity per block, then a binary search over any mismatched
// block to locate and flip a single differing bit. Returns the number of
// parity bits disclosed. Blocks holding an even number of errors pass
// undetected in one round, matching the simplified single-pass protocol.
func reconcile(sender, receiver []bool, blockSize int) (leaked int) {
	for start := 0; start < len(sender); start += blockSize {
		end := start + blockSize
		if end > len(sender) {
			end = len(sender)
		}

		leaked++ // block parity disclosed
		if parity(sender[start:end]) == parity(receiver[start:end]) {
			continue
		}

		lo, hi := start, end
		for hi-lo > 1 {
			mid := (lo + hi) / 2
			leaked++ // half-block parity disclosed
			if parity(sender[lo:mid]) != parity(receiver[lo:mid]) {
				hi = mid
			} else {
				lo = mid
			}
		}
		receiver[lo] = !receiver[lo]
	}
	return leaked
}

func parity(bits []bool) bool {
	p := false
	for _, b := range bits {
		if b {
			p = !p
		}
	}
	return p
}

// packBits packs a bit slice MSB-first into bytes, padding the tail with
// zeros. The packing feeds the amplification hash, so padding bits carry no
// key material.
func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << (7 - i%8)
		}
	}
	return out
}

// randomBits draws n independent fair bits from the simulator's source.
func (s *Simulator) randomBits(n int) ([]bool, error) {
	buf := make([]byte, (n+7)/8)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return nil, qerrors.NewCryptoError("QKD.randomBits", qerrors.ErrCryptoBackend)
	}

	bits := make([]bool, n)
	for i := range bits {
		bits[i] = buf[i/8]&(1<<(7-i%8)) != 0
	}
	return bits, nil
}

// bernoulli draws one biased bit with probability p of true, using 16 bits
// of randomness per draw.
func (s *Simulator) bernoulli(p float64) (bool, error) {
	var buf [2]byte
	if _, err := io.ReadFull(s.rand, buf[:]); err != nil {
		return false, qerrors.NewCryptoError("QKD.bernoulli", qerrors.ErrCryptoBackend)
	}
	v := binary.BigEndian.Uint16(buf[:])
	return float64(v) < p*65536.0, nil
}
