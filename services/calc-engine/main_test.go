package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/knowledge"
)

func document(t *testing.T, m *assumption.ModelState) string {
	t.Helper()
	data, err := m.ToJSON()
	require.NoError(t, err)
	return string(data)
}

func kiosk() *assumption.ModelState {
	return assumption.NewModelState("Kiosk").
		WithProfile(assumption.CompanyProfile{Name: "Kiosk", StartDate: assumption.NewDate(2025, time.March, 1), HorizonYears: 2, Frequency: assumption.FrequencyAnnual}).
		WithRevenue(assumption.RevenueDriver{Segment: "Airtime", UnitPrice: 10, StartingVolume: 5000, GrowthRates: []float64{0, 0}})
}

func opts(mode, data string) options {
	return options{mode: mode, data: data, discountRate: 12, tolerance: 0.01, daysInYear: 365}
}

// calculate returns the raw statements JSON for a model.
func calculate(t *testing.T, m *assumption.ModelState) json.RawMessage {
	t.Helper()
	var out bytes.Buffer
	code, err := run(nil, &out, opts("calculate", document(t, m)))
	require.NoError(t, err)
	require.Equal(t, 0, code)

	var res struct {
		Statements json.RawMessage `json:"statements"`
		Summary    struct {
			TotalRevenue float64 `json:"totalRevenue"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.InDelta(t, 100000, res.Summary.TotalRevenue, 1e-6)
	return res.Statements
}

func TestRun_CalculateThenCheck(t *testing.T) {
	statements := calculate(t, kiosk())

	var out bytes.Buffer
	code, err := run(nil, &out, opts("check", string(statements)))
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	var res CheckOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.True(t, res.Balanced)
	assert.Equal(t, 2, res.Periods)
	assert.Empty(t, res.Findings)
}

func TestRun_CheckFindsTamperedCash(t *testing.T) {
	statements := calculate(t, kiosk())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(statements, &doc))
	period := doc["periods"].([]any)[1].(map[string]any)
	bs := period["balanceSheet"].(map[string]any)
	bs["cash"] = bs["cash"].(float64) + 50
	tampered, err := json.Marshal(doc)
	require.NoError(t, err)

	var out bytes.Buffer
	code, err := run(nil, &out, opts("check", string(tampered)))
	require.NoError(t, err)
	assert.Equal(t, 2, code)

	var res CheckOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.False(t, res.Balanced)
	require.NotEmpty(t, res.Findings)
	kinds := map[knowledge.ImbalanceKind]bool{}
	for _, f := range res.Findings {
		assert.Equal(t, 2, f.Period)
		kinds[f.Kind] = true
	}
	assert.True(t, kinds[knowledge.KindBalanceSheet])
	assert.True(t, kinds[knowledge.KindCashImbalance])
}

func TestRun_CalculateFromStdin(t *testing.T) {
	var out bytes.Buffer
	code, err := run(strings.NewReader(document(t, kiosk())), &out, opts("calculate", "-"))
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), `"statements"`)
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	code, err := run(nil, &out, opts("calculate", ""))
	assert.Equal(t, 1, code)
	assert.EqualError(t, err, "no data provided")

	code, err = run(nil, &out, opts("explode", "{}"))
	assert.Equal(t, 1, code)
	assert.EqualError(t, err, "unknown mode: explode")

	code, err = run(nil, &out, opts("check", "{}"))
	assert.Equal(t, 1, code)
	assert.EqualError(t, err, "statements document has no periods")

	out.Reset()
	code, err = run(nil, &out, opts("calculate", document(t, assumption.NewModelState("empty"))))
	assert.Equal(t, 1, code)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "revenue_missing")
	assert.NotContains(t, out.String(), `"statements"`)
}
