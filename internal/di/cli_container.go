package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Classifier flags
	Provider string
	NoNLP    bool

	// Signal flags
	NoReputation bool

	// Input and output flags
	InputFile string
	Format    string
	LookupID  string
	Verbose   bool
	JSONLog   bool

	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	flag.StringVar(&flags.Provider, "provider", "", "Classifier provider (inference, openai, gemini, bedrock, none); overrides the config file")
	flag.BoolVar(&flags.NoNLP, "no-nlp", false, "Disable advanced content analysis")
	flag.BoolVar(&flags.NoReputation, "no-reputation", false, "Disable URL reputation lookups")

	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.StringVar(&flags.Format, "format", "text", "Output format (text, json, yaml)")
	flag.StringVar(&flags.LookupID, "lookup", "", "Print the stored verdict of a message id instead of scanning")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose output and logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.Load(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}
	return container, nil
}

// applyFlags overlays the command line flags on the loaded configuration
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()

	// Set some cli specific settings
	v.Set("server.filter_type", "cli")
	v.Set("cli.format", flags.Format)
	v.Set("cli.verbose", flags.Verbose)

	if flags.Provider != "" {
		v.Set("classifier.provider", flags.Provider)
	}
	if flags.NoNLP {
		v.Set("nlp.enabled", false)
	}
	if flags.NoReputation {
		v.Set("reputation.enabled", false)
	}
}
