package ritual

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.True(t, cfg.GetBool("semantic.check_unused"))
	assert.True(t, cfg.GetBool("optimizer.enabled"))
	assert.Equal(t, 64, cfg.GetInt("optimizer.max_iterations"))
	assert.False(t, cfg.GetBool("vm.trace"))
	assert.Equal(t, DefaultTabSize, cfg.GetInt("diagnostics.tab_size"))
	assert.Equal(t, "auto", cfg.GetString("diagnostics.color"))

	assert.Panics(t, func() { cfg.GetInt("vm.trace") })
	assert.Panics(t, func() { cfg.GetBool("no.such.key") })
}

func TestConfigLoad(t *testing.T) {
	t.Run("tables and dotted keys", func(t *testing.T) {
		cfg := NewConfig()
		err := cfg.Load(strings.NewReader(`
vm.trace = true

[optimizer]
max_iterations = 3
first_sets = false
`))
		require.NoError(t, err)
		assert.True(t, cfg.GetBool("vm.trace"))
		assert.Equal(t, 3, cfg.GetInt("optimizer.max_iterations"))
		assert.False(t, cfg.GetBool("optimizer.first_sets"))
		assert.True(t, cfg.GetBool("optimizer.simplify"))
	})

	t.Run("strings", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.Load(strings.NewReader("[diagnostics]\ncolor = \"never\"\n")))
		assert.Equal(t, "never", cfg.GetString("diagnostics.color"))
		assert.Panics(t, func() { cfg.GetBool("diagnostics.color") })
	})

	for _, test := range []struct {
		Name  string
		Input string
		Error string
	}{
		{Name: "unknown key", Input: "[vm]\nturbo = true\n", Error: "unknown setting `vm.turbo`"},
		{Name: "wrong type", Input: "[optimizer]\nenabled = 1\n", Error: "setting `optimizer.enabled` expects bool, got int"},
		{Name: "string for an int", Input: "[diagnostics]\ntab_size = \"wide\"\n", Error: "setting `diagnostics.tab_size` expects int, got string"},
		{Name: "unsupported value", Input: "[diagnostics]\ntab_size = 2.5\n", Error: "setting `diagnostics.tab_size` has unsupported value 2.5"},
	} {
		t.Run(test.Name, func(t *testing.T) {
			err := NewConfig().Load(strings.NewReader(test.Input))
			require.Error(t, err)
			assert.Equal(t, test.Error, err.Error())
		})
	}

	t.Run("malformed toml", func(t *testing.T) {
		assert.Error(t, NewConfig().Load(strings.NewReader("[optimizer")))
	})
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ritual.toml")
	require.NoError(t, os.WriteFile(path, []byte("[diagnostics]\ntab_size = 8\n"), 0644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.GetInt("diagnostics.tab_size"))

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestConfigDebug(t *testing.T) {
	cfg := NewConfig()
	var out bytes.Buffer
	cfg.Debug(&out)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(*cfg)+1)
	assert.Equal(t, "Configuration", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "diagnostics.color"))
	assert.True(t, strings.HasPrefix(lines[2], "diagnostics.tab_size"))
	assert.Contains(t, out.String(), "auto (string)")
	assert.Contains(t, out.String(), "4 (int)")
}
