package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blockerday/internal/config"
	"blockerday/internal/ics"
	appLog "blockerday/internal/log"
	"blockerday/internal/model"
	"blockerday/internal/schedule"
	"blockerday/internal/scheduler"
	"blockerday/internal/web"
)

const version = "0.1.0"

// clock anchors generation; tests pin it.
var clock = time.Now

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	once       bool
	dump       bool
	dumpURL    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		appLog.Error("blockerday failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	if err := config.LoadDotEnv(flags.envPath); err != nil {
		return err
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %q: %w", flags.configPath, err)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Warn("invalid log level, using info", "log_level", conf.LogLevel)
	}
	appLog.SetLevel(level)

	appLog.Info("blockerday starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"seed_via_url", conf.SeedViaURL,
		"days", conf.Days,
		"hours", conf.Hours,
		"probability", conf.Probability,
		"name", conf.Name,
		"timezone", conf.Timezone,
		"digest_cron", conf.DigestCron,
		"once", flags.once,
		"dump", flags.dump,
		"dump_url", flags.dumpURL != "",
	)

	gen := schedule.New(clock)

	switch {
	case flags.once:
		if err := ics.Write(stdout, gen.Generate(conf.Generation())); err != nil {
			return fmt.Errorf("write calendar: %w", err)
		}
		return nil
	case flags.dump:
		return dump(gen.Generate(conf.Generation()))
	case flags.dumpURL != "":
		body, err := ics.NewFetcher(nil).Fetch(ctx, flags.dumpURL)
		if err != nil {
			return err
		}
		return dumpFeed(body, -1)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A scheduler that fails to start takes the server down with it.
	sched := scheduler.New(conf, gen)
	schedErr := make(chan error, 1)
	go func() {
		err := sched.Start(ctx)
		if err != nil {
			cancel()
		}
		schedErr <- err
	}()

	srv := web.NewServer(conf, gen)
	if err := web.ListenAndServe(ctx, conf.Listen, srv.Handler()); err != nil {
		return err
	}

	if err := <-schedErr; err != nil {
		return err
	}
	appLog.Info("blockerday exiting")
	return nil
}

// dump renders cal, reads it back with the independent parser and logs
// every event, so a feed can be inspected without an HTTP client.
func dump(cal model.Calendar) error {
	var buf bytes.Buffer
	if err := ics.Write(&buf, cal); err != nil {
		return fmt.Errorf("render calendar: %w", err)
	}
	return dumpFeed(buf.Bytes(), len(cal.Events))
}

// dumpFeed parses body and logs it. A non-negative want is the event count
// the feed must contain.
func dumpFeed(body []byte, want int) error {
	feed, err := ics.ParseFeed(body)
	if err != nil {
		return fmt.Errorf("parse calendar: %w", err)
	}
	if want >= 0 && len(feed.Events) != want {
		return fmt.Errorf("parsed %d events, generated %d", len(feed.Events), want)
	}

	appLog.Info("dump calendar",
		"name", feed.Name,
		"timezone", feed.Timezone,
		"vtimezones", len(feed.TimezoneIDs),
		"events", len(feed.Events),
		"bytes", len(body),
	)
	for _, ev := range feed.Events {
		appLog.Info("dump event",
			"uid", ev.UID,
			"start", ev.Start.Format("2006-01-02 15:04"),
			"end", ev.End.Format("2006-01-02 15:04"),
			"tzid", ev.StartTZ,
			"status", ev.Status,
		)
	}
	return nil
}

func parseFlags(args []string) (flagConfig, error) {
	var cfg flagConfig

	fs := flag.NewFlagSet("blockerday", flag.ContinueOnError)
	fs.StringVar(&cfg.configPath, "config", "", "Path to YAML config file (created with defaults if missing)")
	fs.StringVar(&cfg.envPath, "env", ".env", "Path to dotenv file loaded before the environment is read")
	fs.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	fs.BoolVar(&cfg.once, "once", false, "Write one calendar to stdout and exit")
	fs.BoolVar(&cfg.dump, "dump", false, "Generate one calendar, parse it back and log every event")
	fs.StringVar(&cfg.dumpURL, "dump-url", "", "Fetch a published feed, parse it and log every event")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	modes := 0
	for _, set := range []bool{cfg.once, cfg.dump, cfg.dumpURL != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return cfg, errors.New("-once, -dump and -dump-url are mutually exclusive")
	}
	return cfg, nil
}
