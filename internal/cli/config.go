package cli

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/giveflow/giveflow/internal/flagx"
)

// Config holds runtime settings for the giveflow donor CLI.
//
// Fields:
//   - DatabasePath: path of the local SQLite drafts database.
//   - UserID: which user's draft this session edits.
//   - WatchInterval: how often the local store is polled for changes made by
//     other sessions on the same database.
type Config struct {
	DatabasePath  string
	UserID        string
	WatchInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "giveflow.db"
	c.UserID = "local"
	c.WatchInterval = 500 * time.Millisecond
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// jsonConfig is a DTO used exclusively for JSON unmarshalling.
type jsonConfig struct {
	DatabasePath string `json:"database_path"`
	UserID       string `json:"user_id"`
}

// parseJson overlays cfg with values from the JSON file named by the
// -c/-config flag, if one was given.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.UserID != "" {
		cfg.UserID = jc.UserID
	}
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-f string   path to the local drafts database
//	-u string   user id for this session
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-f", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&config.DatabasePath, "f", config.DatabasePath, "local drafts database path")
	fs.StringVar(&config.UserID, "u", config.UserID, "user id")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
