package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig   `mapstructure:"paths"`
	Runtime  RuntimeConfig `mapstructure:"runtime"`
	Engine   EngineConfig  `mapstructure:"engine"`
	LogLevel string        `mapstructure:"log_level"`
}

// PathsConfig names the on-disk resource files a voice is assembled from,
// and the file mapping voice names to resource lists (spec §4.4).
type PathsConfig struct {
	ResourceFiles []string `mapstructure:"resource_files"`
	VoiceDefsFile string   `mapstructure:"voice_defs_file"`
}

// RuntimeConfig sizes the caller-supplied memory region (spec §4.1).
// WarningRingSize and FrameRateMS are loaded but not read by the engine:
// the warning ring holds except.MaxNumWarnings entries and the signal
// stage uses its fixed signal.SamplesPerFrame.
type RuntimeConfig struct {
	ArenaBytes      int `mapstructure:"arena_bytes"`
	WarningRingSize int `mapstructure:"warning_ring_size"`
	FrameRateMS     int `mapstructure:"frame_rate_ms"`
}

// EngineConfig picks which voice a freshly created engine binds to.
// DefaultResetMode is loaded but not read: Engine.Reset always takes an
// explicit mode from its caller.
type EngineConfig struct {
	DefaultVoice     string `mapstructure:"default_voice"`
	DefaultResetMode string `mapstructure:"default_reset_mode"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			ResourceFiles: nil,
			VoiceDefsFile: "voices.json",
		},
		Runtime: RuntimeConfig{
			ArenaBytes:      2 << 20,
			WarningRingSize: 32,
			FrameRateMS:     4,
		},
		Engine: EngineConfig{
			DefaultVoice:     "",
			DefaultResetMode: "full",
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.StringSlice("paths-resource-files", defaults.Paths.ResourceFiles, "Resource files to load at startup")
	fs.String("paths-voice-defs-file", defaults.Paths.VoiceDefsFile, "Path to the voice-name to resource-list definitions file")
	fs.Int("runtime-arena-bytes", defaults.Runtime.ArenaBytes, "Size in bytes of the caller-supplied memory region")
	fs.Int("runtime-warning-ring-size", defaults.Runtime.WarningRingSize, "Warning ring capacity (not read; the ring holds except.MaxNumWarnings)")
	fs.Int("runtime-frame-rate-ms", defaults.Runtime.FrameRateMS, "Nominal cepstral frame period in milliseconds (not read; fixed at 4 ms)")
	fs.String("engine-default-voice", defaults.Engine.DefaultVoice, "Voice name a freshly created engine binds to")
	fs.String("engine-default-reset-mode", defaults.Engine.DefaultResetMode, "Default reset mode (full|soft; not read)")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("PICOTTS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("picotts")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.resource_files", c.Paths.ResourceFiles)
	v.SetDefault("paths.voice_defs_file", c.Paths.VoiceDefsFile)
	v.SetDefault("runtime.arena_bytes", c.Runtime.ArenaBytes)
	v.SetDefault("runtime.warning_ring_size", c.Runtime.WarningRingSize)
	v.SetDefault("runtime.frame_rate_ms", c.Runtime.FrameRateMS)
	v.SetDefault("engine.default_voice", c.Engine.DefaultVoice)
	v.SetDefault("engine.default_reset_mode", c.Engine.DefaultResetMode)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.resource_files", "paths-resource-files")
	v.RegisterAlias("paths.voice_defs_file", "paths-voice-defs-file")
	v.RegisterAlias("runtime.arena_bytes", "runtime-arena-bytes")
	v.RegisterAlias("runtime.warning_ring_size", "runtime-warning-ring-size")
	v.RegisterAlias("runtime.frame_rate_ms", "runtime-frame-rate-ms")
	v.RegisterAlias("engine.default_voice", "engine-default-voice")
	v.RegisterAlias("engine.default_reset_mode", "engine-default-reset-mode")
	v.RegisterAlias("log_level", "log-level")
}
