package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RanmaKei/Video-Tools/internal/dirs"
)

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: any errors are returned for optional handling by caller.
func Init(root *cobra.Command) error {
	// Ensure base directories exist
	_ = dirs.EnsureAll()

	// Setup config search path
	if cfgDir, err := dirs.ConfigDir(); err == nil {
		_ = dirs.Ensure(cfgDir)
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	// Environment variables: FRAMELIFT_*
	viper.SetEnvPrefix("FRAMELIFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Bind root persistent flags to Viper keys
	_ = viper.BindPFlag("out_dir", root.PersistentFlags().Lookup("out-dir"))
	_ = viper.BindPFlag("work_root", root.PersistentFlags().Lookup("work-root"))
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("ffmpeg_binary", root.PersistentFlags().Lookup("ffmpeg-binary"))
	_ = viper.BindPFlag("ffprobe_binary", root.PersistentFlags().Lookup("ffprobe-binary"))
	_ = viper.BindPFlag("upscaler_binary", root.PersistentFlags().Lookup("upscaler-binary"))
	_ = viper.BindPFlag("presets_file", root.PersistentFlags().Lookup("presets-file"))

	// Read config file if present (ignore not found)
	_ = viper.ReadInConfig()

	// Push env/config values back into unset flags so the normal flag
	// lookups see them with flag > env > config > default precedence.
	root.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if !f.Changed && viper.IsSet(key) {
			_ = root.PersistentFlags().Set(f.Name, viper.GetString(key))
		}
	})

	return nil
}
