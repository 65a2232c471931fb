package main

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host                      string        `env:"HOST,default=localhost"`
	Port                      int           `env:"PORT,default=12345" validate:"min=1,max=65535"`
	LogLevel                  string        `env:"LOG_LEVEL,default=INFO"`
	LogDir                    string        `env:"LOG_DIR,default=server_logs" validate:"required"`
	MaxLineBytes              int           `env:"MAX_LINE_BYTES,default=4096" validate:"min=64"`
	EventBufferSize           int           `env:"EVENT_BUFFER_SIZE,default=256" validate:"min=1"`
	RestartInterval           time.Duration `env:"RESTART_INTERVAL,default=5s" validate:"min=100ms"`
	HealthInterval            time.Duration `env:"HEALTH_INTERVAL,default=30s" validate:"min=1s"`
	MetricInterval            time.Duration `env:"METRIC_INTERVAL,default=10s" validate:"min=100ms"`
	SearchLimit               int           `env:"SEARCH_LIMIT,default=10" validate:"min=1"`
	OpsPort                   int           `env:"OPS_PORT,default=0" validate:"min=0,max=65535"`
	ModerationPath            string        `env:"MODERATION_PATH"`
	ModerationCharReplacement string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
}

func (c Config) Validate() error {
	return validator.New().Struct(c)
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.ModerationCharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			c.ModerationCharReplacement,
		)
	}
	return r[0], nil
}
