package refcode

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabet(t *testing.T) {
	assert.Len(t, Alphabet, 33)
	assert.NotContains(t, Alphabet, "O")
	assert.NotContains(t, Alphabet, "I")
	assert.NotContains(t, Alphabet, "0")
}

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{"ABCDEF", "NB"},
		{"K7M2XQ", "29"},
		{"ZZZZZZ", "AG"},
		{"123456", "ZV"},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.data))
			assert.Equal(t, tt.want, Checksum(tt.data), "checksum must be deterministic")
			assert.True(t, Validate(tt.data+tt.want))
		})
	}
}

func TestNew_Weights(t *testing.T) {
	c := New()
	require.Len(t, c.weights, 2)
	assert.Equal(t, []int{1, 4, 1, 5, 9, 2}, c.weights[0])
	assert.Equal(t, []int{6, 5, 3, 5, 8, 9}, c.weights[1])
}

func TestValidate_Rejects(t *testing.T) {
	tests := map[string]string{
		"too short":      "ABCDEFN",
		"too long":       "ABCDEFNBX",
		"lowercase":      "abcdefNB",
		"punctuation":    "ABC-EFNB",
		"wrong checksum": "ABCDEFNC",
		"empty":          "",
	}
	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			assert.False(t, Validate(code))
		})
	}
}

func TestValidate_SingleCharacterChange(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	c := New(WithRand(rnd))

	changed, detected := 0, 0
	for n := 0; n < 200; n++ {
		code, err := c.Generate(context.Background(), nil)
		require.NoError(t, err)

		for pos := 0; pos < DefaultDataSize; pos++ {
			for _, r := range Alphabet {
				if byte(r) == code[pos] {
					continue
				}
				mutated := code[:pos] + string(r) + code[pos+1:]
				changed++
				if !c.Validate(mutated) {
					detected++
				}
			}
		}
	}
	assert.Greater(t, float64(detected)/float64(changed), 0.95)
}

func TestGenerate_ProducesValidCodes(t *testing.T) {
	c := New(WithRand(rand.New(rand.NewPCG(42, 7))))
	for i := 0; i < 500; i++ {
		code, err := c.Generate(context.Background(), nil)
		require.NoError(t, err)
		assert.Len(t, code, 8)
		assert.True(t, c.Validate(code), code)
	}
}

func TestGenerate_RetriesOnCollision(t *testing.T) {
	c := New(WithRand(rand.New(rand.NewPCG(3, 4))))
	seen := 0
	taken := func(ctx context.Context, code string) (bool, error) {
		seen++
		return seen < 4, nil
	}

	code, err := c.Generate(context.Background(), taken)
	require.NoError(t, err)
	assert.Equal(t, 4, seen)
	assert.True(t, c.Validate(code))
}

func TestGenerate_PropagatesOracleError(t *testing.T) {
	boom := errors.New("database unavailable")
	_, err := New().Generate(context.Background(), func(ctx context.Context, code string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGenerate_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Generate(ctx, func(ctx context.Context, code string) (bool, error) {
		return true, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCandidates(t *testing.T) {
	text := "Abo ABCDEFNB Rechnung 3, REF:K7M2XQ29 und ABCDEFNBX sowie abcdefnb"
	assert.Equal(t, []string{"ABCDEFNB", "K7M2XQ29"}, New().Candidates(text))
}

func TestScan(t *testing.T) {
	known := &models.Contract{RefID: "K7M2XQ29"}
	resolve := func(ctx context.Context, code string) (*models.Contract, error) {
		if code == known.RefID {
			return known, nil
		}
		return nil, services.ErrNotFound
	}

	t.Run("first valid and known code wins", func(t *testing.T) {
		// ABCDEFNB validates but is unknown, ABCDEFNC does not validate.
		contract, code, err := New().Scan(context.Background(), "ABCDEFNC ABCDEFNB K7M2XQ29", resolve)
		require.NoError(t, err)
		assert.Same(t, known, contract)
		assert.Equal(t, "K7M2XQ29", code)
	})

	t.Run("no match", func(t *testing.T) {
		_, _, err := New().Scan(context.Background(), "Miete Januar", resolve)
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("lookup error aborts", func(t *testing.T) {
		boom := errors.New("connection reset")
		_, _, err := New().Scan(context.Background(), "ABCDEFNB", func(ctx context.Context, code string) (*models.Contract, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	})
}
