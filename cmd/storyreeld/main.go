package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	"storyreel/internal/config"
	"storyreel/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override logging.level")
	flag.Parse()

	if err := run(context.Background(), *configPath, *logLevel); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, configPath, logLevel string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return daemonrun.Run(ctx, cfg, daemonrun.Options{LogLevel: logLevel})
}
