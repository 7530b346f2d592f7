package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stochvol/xerrors"
)

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	a := &app{}
	root := a.rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	a.teardown()
	require.NoError(t, err)
	return out.Bytes()
}

func TestBSCommand(t *testing.T) {
	var report struct {
		ClosedForm string `json:"closed_form"`
		MonteCarlo struct {
			Mean   float64 `json:"mean"`
			StdErr float64 `json:"std_err"`
			Steps  int     `json:"steps"`
		} `json:"monte_carlo"`
	}
	require.NoError(t, json.Unmarshal(run(t, "bs", "--paths", "20000", "--seed", "7", "--workers", "2"), &report))

	assert.Equal(t, "17.693673", report.ClosedForm)
	assert.Equal(t, 1, report.MonteCarlo.Steps)
	assert.InDelta(t, 17.693673, report.MonteCarlo.Mean, 4*report.MonteCarlo.StdErr)
}

func TestNaiveCommand(t *testing.T) {
	var points []struct {
		Steps int     `json:"steps"`
		Rate  float64 `json:"rate"`
	}
	require.NoError(t, json.Unmarshal(run(t, "naive", "--paths", "500", "--seed", "3", "--grid", "10,50"), &points))
	require.Len(t, points, 2)
	assert.Equal(t, 10, points[0].Steps)
	assert.Positive(t, points[0].Rate)
	assert.LessOrEqual(t, points[1].Rate, 1.0)
}

func TestPriceCommandRejectsUnknownScheme(t *testing.T) {
	a := &app{}
	root := a.rootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"price", "--scheme", "reflection", "--paths", "10"})
	err := root.ExecuteContext(context.Background())
	a.teardown()
	assert.Error(t, err)
}

func TestConfigCommandAppliesOverrides(t *testing.T) {
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(run(t, "config", "--paths", "1234", "--scheme", "absorption"), &cfg))

	engine, ok := cfg["Engine"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1234, engine["Paths"])
	heston, ok := cfg["Heston"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "absorption", heston["Scheme"])
}

func TestPriceCommandReportsOverflow(t *testing.T) {
	t.Setenv("APP_BLACK_SCHOLES_DRIFT", "200")
	a := &app{}
	root := a.rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"price", "--model", "bs", "--paths", "10", "--seed", "1"})
	err := root.ExecuteContext(context.Background())
	a.teardown()

	assert.ErrorIs(t, err, xerrors.ErrNumericOverflow)
	assert.Empty(t, out.String())
}
