package epp

import (
	"math/rand"
	"time"
)

const (
	// TRIDCharset is the alphabet of generated transaction ids.
	TRIDCharset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// DefaultTRIDLength is the length of generated transaction ids.
	DefaultTRIDLength = 12
)

// TRIDGenerator produces random client transaction ids from its own source.
// It is not safe for concurrent use.
type TRIDGenerator struct {
	rnd    *rand.Rand
	length int
}

// NewTRIDGenerator returns a generator seeded from the clock.
func NewTRIDGenerator() *TRIDGenerator {
	return NewTRIDGeneratorFrom(rand.NewSource(time.Now().UnixNano()), DefaultTRIDLength)
}

// NewTRIDGeneratorFrom returns a generator drawing from src. A length below
// 1 means DefaultTRIDLength.
func NewTRIDGeneratorFrom(src rand.Source, length int) *TRIDGenerator {
	if length < 1 {
		length = DefaultTRIDLength
	}
	return &TRIDGenerator{rnd: rand.New(src), length: length}
}

// Next returns a new transaction id.
func (g *TRIDGenerator) Next() string {
	b := make([]byte, g.length)
	for i := range b {
		b[i] = TRIDCharset[g.rnd.Intn(len(TRIDCharset))]
	}
	return string(b)
}
