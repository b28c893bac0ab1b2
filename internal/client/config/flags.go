package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/megavault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Unknown flags are filtered out by flagx.FilterArgs first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-s", "-p", "-j"})

	fs := flag.NewFlagSet("megavault-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "MegaVault server URL")
	partSize := fs.Int64("p", cfg.PartSize/mib, "multipart part size (in MiB)")
	fs.IntVar(&cfg.Concurrency, "j", cfg.Concurrency, "parallel part uploads")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.PartSize = *partSize * mib
	return nil
}
