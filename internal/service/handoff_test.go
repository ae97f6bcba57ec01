package service

import (
	"context"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eatbalance/web/internal"
)

func TestEncodeDecodeTotals_BitIdentical(t *testing.T) {
	values := []internal.Totals{
		{Kcal: 2000, ProteinG: 150, CarbG: 200, FatG: 60},
		{Kcal: 2790.7834999999997, ProteinG: 174.42396874999998, CarbG: 348.84793749999996, FatG: 77.52176388888888},
		{Kcal: math.Nextafter(1800, 2000), ProteinG: 1e-7, CarbG: 0, FatG: 123456.789},
	}
	for _, want := range values {
		got, ok, err := DecodeTotals(EncodeTotals(want))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, math.Float64bits(want.Kcal), math.Float64bits(got.Kcal))
		assert.Equal(t, math.Float64bits(want.ProteinG), math.Float64bits(got.ProteinG))
		assert.Equal(t, math.Float64bits(want.CarbG), math.Float64bits(got.CarbG))
		assert.Equal(t, math.Float64bits(want.FatG), math.Float64bits(got.FatG))
	}
}

func TestEncodeTotals_NoExponent(t *testing.T) {
	q := EncodeTotals(internal.Totals{Kcal: 2500, ProteinG: 1e-7, CarbG: 300.5, FatG: 70})
	assert.Equal(t, "2500", q.Get(ParamKcal))
	assert.Equal(t, "0.0000001", q.Get(ParamProteinG))
}

func TestDecodeTotals(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		ok      bool
		wantErr bool
		want    internal.Totals
	}{
		{"absent", "", false, false, internal.Totals{}},
		{"unrelated params", "scheme=4", false, false, internal.Totals{}},
		{"complete", "kcal=2500&protein_g=150&carb_g=300.5&fat_g=70", true, false, internal.Totals{Kcal: 2500, ProteinG: 150, CarbG: 300.5, FatG: 70}},
		{"comma decimals", "kcal=2500,5&protein_g=150&carb_g=300&fat_g=70", true, false, internal.Totals{Kcal: 2500.5, ProteinG: 150, CarbG: 300, FatG: 70}},
		{"partial", "kcal=2500&protein_g=150", false, true, internal.Totals{}},
		{"not a number", "kcal=abc&protein_g=150&carb_g=300&fat_g=70", false, true, internal.Totals{}},
		{"zero kcal", "kcal=0&protein_g=150&carb_g=300&fat_g=70", false, true, internal.Totals{}},
		{"infinite kcal", "kcal=Inf&protein_g=150&carb_g=300&fat_g=70", false, true, internal.Totals{}},
		{"infinite macro", "kcal=2000&protein_g=%2BInf&carb_g=300&fat_g=70", false, true, internal.Totals{}},
		{"nan macro", "kcal=2000&protein_g=150&carb_g=NaN&fat_g=70", false, true, internal.Totals{}},
		{"negative macro", "kcal=2000&protein_g=-1&carb_g=300&fat_g=70", false, true, internal.Totals{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			got, ok, err := DecodeTotals(q)
			if tt.wantErr {
				assert.True(t, internal.IsKind(err, internal.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrefill_QueryBeatsSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.handoffs.Put(ctx, "s1", internal.Totals{Kcal: 1800, ProteinG: 1, CarbG: 1, FatG: 1}))

	q := EncodeTotals(internal.Totals{Kcal: 2200, ProteinG: 2, CarbG: 2, FatG: 2})
	got, source, err := env.handoffs.Prefill(ctx, "s1", q)
	require.NoError(t, err)
	assert.Equal(t, PrefillQuery, source)
	assert.Equal(t, 2200.0, got.Kcal)

	got, source, err = env.handoffs.Prefill(ctx, "s1", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, PrefillHandoff, source)
	assert.Equal(t, 1800.0, got.Kcal)
}

func TestPrefill_Nothing(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.handoffs.Prefill(context.Background(), "s1", url.Values{})
	assert.True(t, internal.IsKind(err, internal.KindNotFound))
}
