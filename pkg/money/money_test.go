package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Run("Major units with cents", func(t *testing.T) {
		a, err := ParseAmount("100000.00")
		require.NoError(t, err)
		assert.Equal(t, Amount(10000000), a)
		assert.Equal(t, "100000.00", a.String())
	})

	t.Run("Whole number", func(t *testing.T) {
		a, err := ParseAmount(" 12 ")
		require.NoError(t, err)
		assert.Equal(t, Amount(1200), a)
	})

	t.Run("Too many fraction digits", func(t *testing.T) {
		_, err := ParseAmount("1.005")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := ParseAmount("ten")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestParseRate(t *testing.T) {
	r, err := ParseRate("0.05")
	require.NoError(t, err)
	assert.Equal(t, Rate(500), r)
	assert.Equal(t, "0.05", r.String())

	_, err = ParseRate("1")
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = ParseRate("-0.01")
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = ParseRate("0.00005")
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestRateApply(t *testing.T) {
	fivePercent := MustParseRate("0.05")

	assert.Equal(t, Amount(500000), fivePercent.Apply(Amount(10000000)))
	// 0.05 × 0.10 = 0.005 rounds half up to 0.01
	assert.Equal(t, Amount(1), fivePercent.Apply(Amount(10)))
	// 0.05 × 0.09 = 0.0045 rounds down
	assert.Equal(t, Amount(0), fivePercent.Apply(Amount(9)))
	assert.Equal(t, Amount(0), Rate(0).Apply(Amount(12345)))
}

func TestApportion(t *testing.T) {
	t.Run("Exact split", func(t *testing.T) {
		shares, err := Apportion(Amount(9500000), []int64{10, 90})
		require.NoError(t, err)
		assert.Equal(t, []Amount{950000, 8550000}, shares)
	})

	t.Run("Leftover goes to largest remainder", func(t *testing.T) {
		shares, err := Apportion(Amount(100), []int64{1, 1, 1})
		require.NoError(t, err)
		assert.Equal(t, []Amount{34, 33, 33}, shares)
	})

	t.Run("Remainder ordering", func(t *testing.T) {
		// 10 × 2/7 = 2.857, 10 × 5/7 = 7.142
		shares, err := Apportion(Amount(10), []int64{2, 5})
		require.NoError(t, err)
		assert.Equal(t, []Amount{3, 7}, shares)
	})

	t.Run("Sum always equals total", func(t *testing.T) {
		weights := []int64{3, 7, 11, 13, 17, 19, 23}
		for total := Amount(0); total < 500; total += 7 {
			shares, err := Apportion(total, weights)
			require.NoError(t, err)
			var sum Amount
			for _, s := range shares {
				sum += s
			}
			assert.Equal(t, total, sum, "total %d", total)
		}
	})

	t.Run("Rejects non-positive weight", func(t *testing.T) {
		_, err := Apportion(Amount(10), []int64{1, 0})
		assert.Error(t, err)
	})

	t.Run("Rejects empty weights", func(t *testing.T) {
		_, err := Apportion(Amount(10), nil)
		assert.Error(t, err)
	})
}

func TestPerUnit(t *testing.T) {
	ppt, err := PerUnit(Amount(9500000), 100, 6)
	require.NoError(t, err)
	assert.Equal(t, "950.00000000", ppt.StringFixed(8))

	// 1.00 / 3 tokens = 33.333333 minor units, rounded down
	ppt, err = PerUnit(Amount(100), 3, 6)
	require.NoError(t, err)
	assert.Equal(t, "0.33333333", ppt.StringFixed(8))

	_, err = PerUnit(Amount(100), 0, 6)
	assert.Error(t, err)
}

func TestAmountJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Total Amount `json:"total"`
	}{Total: 950000})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":"9500.00"}`, string(raw))

	var out struct {
		Total Amount `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"total":"12.30"}`), &out))
	assert.Equal(t, Amount(1230), out.Total)
	assert.Error(t, json.Unmarshal([]byte(`{"total":"1.234"}`), &out))
}
