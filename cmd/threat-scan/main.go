package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/threat-verdict/internal/adapters/filter"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/di"
	"github.com/mikey/threat-verdict/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// A lookup only needs the store, so the classifier is never built for it
	runner := any(scan)
	if flags.LookupID != "" {
		runner = lookup
	}
	if err := container.Invoke(runner); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// scan evaluates one message read from a file or stdin
func scan(
	flags *di.CLIFlags,
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	parser *filter.MessageParser,
	sink core.VerdictSink,
	classifier core.ClassifierOracle,
	resources di.Resources,
) error {
	defer logger.Sync()
	defer resources.Close()
	if closer, ok := classifier.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// Read email from file or stdin
	var emailReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	raw, err := io.ReadAll(emailReader)
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	email, err := parser.Parse(raw, "", nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verdict, err := emailFilter.ProcessEmail(ctx, email)
	if err != nil {
		var inputErr *core.InputError
		if errors.As(err, &inputErr) {
			return fmt.Errorf("cannot evaluate message: %w", err)
		}
		return err
	}

	if sink != nil && email.MessageID != "" {
		if err := sink.Save(ctx, email.MessageID, verdict); err != nil {
			logger.Warn("Failed to store verdict", zap.Error(err))
		}
	}
	return nil
}

// lookup prints the newest stored verdict of a message
func lookup(flags *di.CLIFlags, logger *zap.Logger, resources di.Resources) error {
	defer logger.Sync()
	defer resources.Close()

	if resources.Store == nil {
		return errors.New("verdict store is disabled, set store.enabled in the config file")
	}

	verdict, err := resources.Store.Latest(context.Background(), flags.LookupID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("no verdict stored for %s", flags.LookupID)
	}
	if err != nil {
		return err
	}

	out, err := filter.NewCliFilter(nil, os.Stdout, flags.Format, logger, flags.Verbose)
	if err != nil {
		return err
	}
	return out.Render(nil, verdict)
}
