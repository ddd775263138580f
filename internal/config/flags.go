package config

import "flag"

var (
	flagConfig        = flag.String("config", "", "Path to config file")
	flagDebug         = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile       = flag.String("log-file", "", "Also write logs to this file")
	flagWorkers       = flag.Int("workers", -1, "Level decoding workers (0 = sequential)")
	flagTextureFormat = flag.String("texture-format", "", "Texture output format: png, webp, tga, bmp")
	flagWeld          = flag.Float64("weld", 0, "Strip weld distance (negative welds exactly)")
	flagLevelFormat   = flag.String("level-format", "", "Model format inside level containers")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after the global flags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagWorkers >= 0 {
		cfg.Import.Workers = *flagWorkers
	}
	if *flagTextureFormat != "" {
		cfg.Export.TextureFormat = *flagTextureFormat
	}
	if *flagWeld != 0 {
		cfg.Import.WeldTolerance = float32(*flagWeld)
	}
	if *flagLevelFormat != "" {
		cfg.Level.Format = *flagLevelFormat
	}
}
