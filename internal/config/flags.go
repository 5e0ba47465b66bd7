package config

import "github.com/spf13/pflag"

var (
	flagConfig     string
	flagDebug      bool
	flagBackend    string
	flagMagick     string
	flagTmpDir     string
	flagLogFile    string
	flagClean      bool
	flagSaveConfig string
)

// BindFlags registers the config overrides on a command's flag set.
func BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flagConfig, "config", "", "Path to config file")
	fs.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	fs.StringVar(&flagBackend, "backend", "", "Filter backend: native or magick")
	fs.StringVar(&flagMagick, "magick", "", "Path to the ImageMagick 7 binary")
	fs.StringVar(&flagTmpDir, "tmp-dir", "", "Directory for intermediate files")
	fs.StringVar(&flagLogFile, "log-file", "", "Also write logs to this file")
	fs.BoolVar(&flagClean, "clean", false, "Remove intermediate files after a successful run")
	fs.StringVar(&flagSaveConfig, "save-config", "", "Write the effective config to this path and exit")
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return flagConfig
}

// SaveConfigPath returns the --save-config target, if any.
func SaveConfigPath() string {
	return flagSaveConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if flagDebug {
		cfg.Logging.Level = "debug"
	}
	if flagBackend != "" {
		cfg.Backend.Name = flagBackend
	}
	if flagMagick != "" {
		cfg.Backend.MagickPath = flagMagick
	}
	if flagTmpDir != "" {
		cfg.Paths.TmpDir = flagTmpDir
	}
	if flagLogFile != "" {
		cfg.Logging.LogFile = flagLogFile
	}
	if flagClean {
		cfg.Paths.KeepIntermediates = false
	}
}
