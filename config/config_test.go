package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	d := Default()
	require.NoError(t, Validate(&d))
	assert.Equal(t, 0.09, d.Heston.V0)
	assert.Equal(t, "full_truncation", d.Heston.Scheme)
	assert.Equal(t, []int{10, 100, 1000}, d.Engine.Grid)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	var c Config
	require.NoError(t, Load("", &c))
	assert.Equal(t, Default().Heston, c.Heston)
	assert.Equal(t, Default().Contract, c.Contract)
	assert.Equal(t, 100000, c.Engine.Paths)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stochvol.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[engine]
seed = 42
paths = 5000
grid = [5, 50]

[heston]
omega = 0.5
scheme = "absorption"

[log]
level = "debug"
`), 0o600))
	t.Setenv("APP_CONTRACT_STRIKE", "110")

	var c Config
	require.NoError(t, Load(path, &c))
	assert.EqualValues(t, 42, c.Engine.Seed)
	assert.Equal(t, 5000, c.Engine.Paths)
	assert.Equal(t, []int{5, 50}, c.Engine.Grid)
	assert.Equal(t, 0.5, c.Heston.Omega)
	assert.Equal(t, "absorption", c.Heston.Scheme)
	assert.Equal(t, 2.0, c.Heston.Kappa, "unset keys keep defaults")
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 110.0, c.Contract.Strike)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"rho":    "[heston]\nrho = 1.5\n",
		"scheme": "[heston]\nscheme = \"reflection\"\n",
		"paths":  "[engine]\npaths = 1\n",
		"spot":   "[contract]\nspot = 0\n",
		"level":  "[log]\nlevel = \"loud\"\n",
		"vol":    "[black_scholes]\nvolatility = 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			var c Config
			assert.Error(t, Load(path, &c))
		})
	}

	var c Config
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.toml"), &c))
}

func TestMaskedHidesEndpoints(t *testing.T) {
	c := Default()
	c.Tracing.OTLPEndpoint = "collector:4317"
	m, err := Masked(c)
	require.NoError(t, err)

	tracing, ok := m["Tracing"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "******", tracing["OTLPEndpoint"])
}
