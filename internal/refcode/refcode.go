// Package refcode generates and validates contract reference codes.
//
// A reference code consists of random data characters followed by checksum
// characters, all drawn from an alphabet without the easily confused
// characters O, I and 0. The default layout is 6 data plus 2 checksum
// characters, e.g. "K7M2XQ" + "4F".
//
// Checksum position i (1-indexed) weights the data characters with the last
// n digits of floor(pi * 10^(n*i)), where n is the data size. The weighted
// sum of the characters' code points, reduced modulo the alphabet size,
// selects the checksum character.
package refcode

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"

	"abo/pkg/models"
	"abo/pkg/services"
)

// Alphabet holds the 33 symbols used in reference codes. Changing it shifts
// every generated and validated code.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ123456789"

// piDigits are the leading decimal digits of pi.
const piDigits = "3141592653589793238462643383279502884197169399375105820974944592307816406286"

const (
	DefaultDataSize     = 6
	DefaultChecksumSize = 2
)

// ErrNoMatch is returned by Scan when no candidate resolves to a contract.
var ErrNoMatch = errors.New("no valid reference code found")

// Oracle reports whether a code is already taken.
type Oracle func(ctx context.Context, code string) (bool, error)

// Resolver looks up the contract for a code. It returns
// services.ErrNotFound for unknown codes.
type Resolver func(ctx context.Context, code string) (*models.Contract, error)

// Codec generates and validates reference codes of a fixed layout.
type Codec struct {
	dataSize     int
	checksumSize int
	weights      [][]int

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Codec.
type Option func(*Codec)

// WithRand sets the random source used by Generate.
func WithRand(r *rand.Rand) Option {
	return func(c *Codec) { c.rnd = r }
}

// WithSizes overrides the data and checksum sizes.
func WithSizes(dataSize, checksumSize int) Option {
	return func(c *Codec) {
		c.dataSize = dataSize
		c.checksumSize = checksumSize
	}
}

// New creates a codec with the default 6+2 layout.
func New(opts ...Option) *Codec {
	c := &Codec{
		dataSize:     DefaultDataSize,
		checksumSize: DefaultChecksumSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dataSize*c.checksumSize+1 > len(piDigits) {
		panic(fmt.Sprintf("refcode: layout %d+%d exceeds available digits of pi", c.dataSize, c.checksumSize))
	}
	c.weights = make([][]int, c.checksumSize)
	for i := 1; i <= c.checksumSize; i++ {
		// floor(pi * 10^(n*i)) has n*i+1 digits; its last n digits are
		// piDigits[n*i-n+1 : n*i+1].
		digits := piDigits[c.dataSize*i-c.dataSize+1 : c.dataSize*i+1]
		w := make([]int, c.dataSize)
		for j, d := range digits {
			w[j] = int(d - '0')
		}
		c.weights[i-1] = w
	}
	return c
}

// Default is the codec used for contracts.
var Default = New()

// Size returns the full code length.
func (c *Codec) Size() int {
	return c.dataSize + c.checksumSize
}

// Checksum computes the checksum characters for data. Data must have the
// codec's data size.
func (c *Codec) Checksum(data string) string {
	var b strings.Builder
	for _, w := range c.weights {
		sum := 0
		for j, r := range data {
			if j >= len(w) {
				break
			}
			sum += int(r) * w[j]
		}
		b.WriteByte(Alphabet[sum%len(Alphabet)])
	}
	return b.String()
}

// Validate reports whether code has the right length, consists of uppercase
// letters and digits only, and carries a matching checksum.
func (c *Codec) Validate(code string) bool {
	if len(code) != c.Size() {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !isUpperAlnum(code[i]) {
			return false
		}
	}
	return c.Checksum(code[:c.dataSize]) == code[c.dataSize:]
}

// Generate draws random codes until exists reports one as free. There is no
// retry limit; errors from the oracle are returned unchanged.
func (c *Codec) Generate(ctx context.Context, exists Oracle) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := c.random()
		if exists == nil {
			return code, nil
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
}

func (c *Codec) random() string {
	data := make([]byte, c.dataSize)
	c.mu.Lock()
	for i := range data {
		data[i] = Alphabet[c.intN(len(Alphabet))]
	}
	c.mu.Unlock()
	return string(data) + c.Checksum(string(data))
}

func (c *Codec) intN(n int) int {
	if c.rnd != nil {
		return c.rnd.IntN(n)
	}
	return rand.IntN(n)
}

var candidatePattern = regexp.MustCompile(`[A-Z0-9]+`)

// Candidates extracts every maximal run of uppercase letters and digits that
// has exactly the code length.
func (c *Codec) Candidates(text string) []string {
	var out []string
	for _, run := range candidatePattern.FindAllString(text, -1) {
		if len(run) == c.Size() {
			out = append(out, run)
		}
	}
	return out
}

// Scan returns the first candidate in text that validates and resolves to a
// known contract. Lookup failures other than services.ErrNotFound abort the
// scan.
func (c *Codec) Scan(ctx context.Context, text string, resolve Resolver) (*models.Contract, string, error) {
	const op = "Scan"

	for _, candidate := range c.Candidates(text) {
		if !c.Validate(candidate) {
			continue
		}
		contract, err := resolve(ctx, candidate)
		if errors.Is(err, services.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("%s: lookup of %s failed: %w", op, candidate, err)
		}
		if contract != nil {
			return contract, candidate, nil
		}
	}
	return nil, "", ErrNoMatch
}

func isUpperAlnum(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Checksum computes the checksum with the default codec.
func Checksum(data string) string { return Default.Checksum(data) }

// Validate checks code with the default codec.
func Validate(code string) bool { return Default.Validate(code) }
