package config

import (
	"flag"
	"os"
	"time"

	"github.com/giveflow/giveflow/internal/flagx"
)

// parseFlags populates selected daemon Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-r int      retention age, hours
//	-s int      sweep interval, minutes
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and then converted to
//     time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")

	retentionAge := fs.Int("r", int(config.RetentionAge.Hours()), "retention age (in hours)")
	sweepInterval := fs.Int("s", int(config.SweepInterval.Minutes()), "sweep interval (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RetentionAge = time.Duration(*retentionAge) * time.Hour
	config.SweepInterval = time.Duration(*sweepInterval) * time.Minute
}
