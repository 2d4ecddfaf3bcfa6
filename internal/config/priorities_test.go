package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nba.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestPriorityHolderReadsFile(t *testing.T) {
	path := writeConfig(t, `
priorities:
  default: 1
  definitions:
    DEF_42: 10
    def_retention: 5
`)

	holder, err := NewPriorityHolder(Config{PriorityConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 10, holder.PriorityFor("def_42"))
	assert.Equal(t, 10, holder.PriorityFor("DEF_42"))
	assert.Equal(t, 5, holder.PriorityFor("def_retention"))
	assert.Equal(t, 1, holder.PriorityFor("unknown"))
}

func TestPriorityHolderDefaultsWithoutFile(t *testing.T) {
	v := viper.New()
	v.SetConfigName("missing-nba-config")
	v.SetConfigType("yml")
	v.AddConfigPath(t.TempDir())

	holder, err := loadPriorityHolder(v, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 0, holder.PriorityFor("def_42"))
}

func TestPriorityHolderRejectsNegativePriority(t *testing.T) {
	path := writeConfig(t, `
priorities:
  default: 0
  definitions:
    def_42: -1
`)

	_, err := NewPriorityHolder(Config{PriorityConfigPath: path}, zap.NewNop())
	assert.Error(t, err)
}

func TestNilPriorityHolderUsesDefaults(t *testing.T) {
	var holder *PriorityHolder
	assert.Equal(t, 0, holder.PriorityFor("def_42"))
}
