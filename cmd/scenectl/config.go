package main

import (
	"os"

	"github.com/JeremyLoy/config"
	"github.com/rs/zerolog"
)

type Config struct {
	LogLevel string `config:"SCENECTL_LOG_LEVEL"`
	Strict   bool   `config:"SCENECTL_STRICT"`
}

func LoadConfig() Config {
	cfg := Config{LogLevel: "info"}
	err := config.FromEnv().To(&cfg)
	if err != nil {
		panic(err)
	}
	return cfg
}

// logDetailLevel is the level document summaries are logged at; strict runs
// surface them on the console by default.
func (c Config) logDetailLevel() zerolog.Level {
	if c.Strict {
		return zerolog.InfoLevel
	}
	return zerolog.DebugLevel
}

// Logger builds the CLI's console logger at the configured level.
func (c Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
