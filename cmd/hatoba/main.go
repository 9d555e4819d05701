// Hatoba is the webhook gateway binary.
//
// It receives update deliveries from the messaging platform, normalises them
// through the event pipeline and hands the records to the configured sinks.
// Configuration comes from an optional YAML file plus environment variables;
// environment values win.
//
// Environment variables:
//
//	HATOBA_CONFIG_FILE     - path to hatoba.yaml (optional)
//	HATOBA_SOURCE          - accepted /webhook/{source}, stamped on records (default "max")
//	HATOBA_EVENTS          - comma-separated update types to accept (default: all)
//	HATOBA_CHAT_IDS        - comma-separated chat id allow-list
//	HATOBA_USER_IDS        - comma-separated user id allow-list
//	HATOBA_ADDR            - HTTP listen address (default ":8080")
//	HATOBA_SECRET          - shared secret expected on every delivery
//	HATOBA_RATE_LIMIT      - deliveries per source per minute (default 600, 0 = off)
//	HATOBA_STDOUT          - write records to stdout as JSON lines (default true)
//	HATOBA_FORWARD_URL     - POST each record to this URL
//	HATOBA_FORWARD_TOKEN   - bearer token for the forward URL
//	HATOBA_FORWARD_TIMEOUT - forward request timeout (default 10s)
//	MATRIX_HOMESERVER      - post record notices to Matrix (all four required)
//	MATRIX_USER_ID
//	MATRIX_ACCESS_TOKEN
//	MATRIX_ROOM_ID
//	LOG_LEVEL              - "debug", "info", "warn", "error" (default: "info")
//	LOG_FORMAT             - "text" or "json" (default: "text")
//
// Send SIGHUP to reload the config file.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/bdobrica/Hatoba/common/version"
	"github.com/bdobrica/Hatoba/internal/hatoba/app"
	"github.com/bdobrica/Hatoba/internal/hatoba/config"
)

func main() {
	configFile := flag.String("config", config.FileFromEnv(), "path to the config file (env "+config.ConfigFileEnv+")")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	hatoba, err := app.New(app.Options{ConfigFile: *configFile})
	if err != nil {
		slog.Error("failed to initialize Hatoba", "err", err)
		os.Exit(1)
	}

	if err := hatoba.Run(); err != nil {
		slog.Error("Hatoba exited with error", "err", err)
		os.Exit(1)
	}
}
