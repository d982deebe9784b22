package config

import (
	"encoding/json"
	"os"

	"github.com/giveflow/giveflow/internal/flagx"
	"github.com/giveflow/giveflow/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "720h" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config struct.
type JsonConfig struct {
	DatabaseDSN   string         `json:"database_dsn"`
	RetentionAge  timex.Duration `json:"retention_age"`
	SweepInterval timex.Duration `json:"sweep_interval"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config command-line flags, if one was given. Missing file path
// means nothing is loaded; an unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.RetentionAge.Duration != 0 {
		config.RetentionAge = c.RetentionAge.Duration
	}
	if c.SweepInterval.Duration != 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
}
