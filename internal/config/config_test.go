package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.Equal(t, "voices.json", c.Paths.VoiceDefsFile)
	require.Equal(t, 2<<20, c.Runtime.ArenaBytes)
	require.Equal(t, "full", c.Engine.DefaultResetMode)
}

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	require.NoError(t, err)
	require.Equal(t, 32, cfg.Runtime.WarningRingSize)
	require.Equal(t, 4, cfg.Runtime.FrameRateMS)
}

type fakeCmd struct{ fs *pflag.FlagSet }

func (f fakeCmd) Flags() *pflag.FlagSet { return f.fs }

func TestLoadBindsFlags(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	require.NoError(t, fs.Set("engine-default-voice", "en-US"))

	cfg, err := Load(LoadOptions{Cmd: fakeCmd{fs}, Defaults: defaults})
	require.NoError(t, err)
	require.Equal(t, "en-US", cfg.Engine.DefaultVoice)
}
