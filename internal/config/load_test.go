package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	defer viper.Reset()

	t.Run("Defaults Without Config File", func(t *testing.T) {
		viper.Reset()
		t.Chdir(t.TempDir())

		require.NoError(t, Load(""))
		assert.Equal(t, 1, viper.GetInt("ci.num_passes"))
		assert.Equal(t, 1, viper.GetInt("template.count"))
		assert.Equal(t, 1, viper.GetInt("template.verbosity"))
		assert.Equal(t, "sqlite", viper.GetString("history.driver"))

		_, err := os.Stat("jbench.yaml")
		assert.True(t, os.IsNotExist(err), "no default config file is written")
	})

	t.Run("Load From Env", func(t *testing.T) {
		viper.Reset()
		t.Setenv("JBENCH_CI_NUM_PASSES", "5")

		require.NoError(t, Load(""))
		assert.Equal(t, 5, viper.GetInt("ci.num_passes"))
	})

	t.Run("Load From File", func(t *testing.T) {
		viper.Reset()
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("template:\n  count: 3\nhistory:\n  driver: postgres\n"), 0644))

		require.NoError(t, Load(path))
		assert.Equal(t, 3, viper.GetInt("template.count"))
		assert.Equal(t, "postgres", viper.GetString("history.driver"))
	})

	t.Run("Missing Explicit File", func(t *testing.T) {
		viper.Reset()
		assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml")))
	})
}
