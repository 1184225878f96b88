// Command plantctl manages the plant journal from a terminal.
//
//	plantctl [-server URL] login -u abhi
//	plantctl list
//	plantctl upload -title "Week 3" -description "new leaf" -image leaf.jpg
//	plantctl update -id <id> [-title ..] [-description ..] [-date 2024-05-01] [-image ..]
//	plantctl delete -id <id>
//	plantctl comment -id <id> -text "looking good"
//	plantctl uncomment -id <id> -comment <commentId>
//	plantctl logout
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/AnshRaj112/plant-journal-backend/pkg/plantclient"
)

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("PLANT_API_URL", "http://localhost:5000"), "API base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "per-attempt request timeout")
	verbose := flag.Bool("v", false, "log retries")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	path, err := plantclient.DefaultSessionPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "plantctl:", err)
		os.Exit(1)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(level).With().Timestamp().Logger()

	client, err := plantclient.New(plantclient.Config{BaseURL: *server, Timeout: *timeout},
		plantclient.WithSession(plantclient.NewFileSession(path)),
		plantclient.WithLogger(logger),
		plantclient.OnSlowStart(func() {
			fmt.Fprintln(os.Stderr, "Server is waking up, this can take up to a minute...")
		}),
		plantclient.OnUnauthorized(func() {
			fmt.Fprintln(os.Stderr, "Session expired. Run `plantctl login` again.")
		}),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "plantctl:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &App{client: client, out: os.Stdout, readPassword: promptPassword}
	if err := app.Run(ctx, flag.Args()); err != nil {
		stop()
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "plantctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: plantctl [-server URL] <login|logout|list|upload|update|delete|comment|uncomment> [flags]\n")
	flag.PrintDefaults()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
