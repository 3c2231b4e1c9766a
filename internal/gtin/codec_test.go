package gtin

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gtind/pkg/domain-errors"
)

func TestCheckDigit(t *testing.T) {
	cases := []struct {
		gtin12 string
		want   int
	}{
		{"072017373011", 4},
		{"000000000000", 0},
		{"871952050001", 4},
		{"1", 7}, // padded to eleven zeros plus one
	}
	for _, tc := range cases {
		t.Run(tc.gtin12, func(t *testing.T) {
			got, err := CheckDigit(tc.gtin12)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCheckDigitRejectsBadInput(t *testing.T) {
	for _, input := range []string{"0720173730114", "07201737301a", ""} {
		_, err := CheckDigit(input)
		require.Error(t, err, "input %q", input)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidLength))
	}
}

func TestAddStripRoundTrip(t *testing.T) {
	gtin13, err := AddCheckDigit("072017373011")
	require.NoError(t, err)
	assert.Equal(t, "0720173730114", gtin13)
	assert.True(t, ValidateCheckDigit(gtin13))

	gtin12, err := StripCheckDigit(gtin13)
	require.NoError(t, err)
	assert.Equal(t, "072017373011", gtin12)
}

// TestRoundTripProperty exercises the codec invariants over random 12-digit
// inputs: strip(add(s)) == s and validate(add(s)) == true.
func TestRoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		gtin12 := fmt.Sprintf("%012d", rng.Int63n(1e12))

		gtin13, err := AddCheckDigit(gtin12)
		require.NoError(t, err)
		require.Len(t, gtin13, Length13)
		assert.True(t, ValidateCheckDigit(gtin13), "gtin13 %s", gtin13)

		back, err := StripCheckDigit(gtin13)
		require.NoError(t, err)
		assert.Equal(t, gtin12, back)

		// A corrupted check digit must not validate.
		wrong := (int(gtin13[12]-'0') + 1) % 10
		assert.False(t, ValidateCheckDigit(gtin13[:12]+string(rune('0'+wrong))))
	}
}

func TestValidateCheckDigitLength(t *testing.T) {
	assert.False(t, ValidateCheckDigit("072017373011"))   // 12 digits
	assert.False(t, ValidateCheckDigit("07201737301144")) // 14 digits
	assert.False(t, ValidateCheckDigit(""))
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0720173730114", "072017373011"}, // check digit stripped
		{"072017373011", "072017373011"},
		{"123", "000000000123"}, // zero padded
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := Normalize("07201737301145")
	require.Error(t, err)
}

// FuzzNormalize verifies the codec never panics and that accepted inputs
// round-trip through the 13-digit form.
func FuzzNormalize(f *testing.F) {
	f.Add("072017373011")
	f.Add("0720173730114")
	f.Add("")
	f.Add("not-digits")
	f.Add("00000000000000000000")

	f.Fuzz(func(t *testing.T, input string) {
		gtin12, err := Normalize(input)
		if err != nil {
			return
		}
		if len(gtin12) != Length12 {
			t.Fatalf("normalized form has %d digits", len(gtin12))
		}
		gtin13, err := AddCheckDigit(gtin12)
		if err != nil {
			t.Fatalf("add check digit after normalize: %v", err)
		}
		if !ValidateCheckDigit(gtin13) {
			t.Fatalf("round-tripped GTIN fails validation: %s", gtin13)
		}
	})
}
