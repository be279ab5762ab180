// Command busalert queries live times and manages arrival alerts from the
// command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/randytsao24/busalert/internal/alerts"
	"github.com/randytsao24/busalert/internal/checker"
	"github.com/randytsao24/busalert/internal/config"
	"github.com/randytsao24/busalert/internal/publisher"
	"github.com/randytsao24/busalert/internal/store"
	"github.com/randytsao24/busalert/internal/tracker"
	"github.com/randytsao24/busalert/internal/transit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(2)
	}

	mode := flag.String("mode", "times", "times | check | add")
	feedsFile := flag.String("feeds", cfg.FeedsFile, "feed profiles file")
	feedName := flag.String("feed", cfg.Feed, "feed profile name (default: first)")
	stops := flag.String("stops", "", "comma-separated stop codes")
	departures := flag.Int("departures", cfg.Departures, "departures per service")
	services := flag.String("services", "*", "comma-separated services for -mode=add, * for any")
	trigger := flag.Int("trigger", 5, "minutes before arrival for -mode=add")
	alertsFile := flag.String("alerts", cfg.AlertsFile, "alerts file for -mode=check and -mode=add")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := cfg.LogLevel
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	feeds, err := config.LoadFeeds(*feedsFile)
	if err != nil {
		fail(err)
	}
	feed, err := feeds.Select(*feedName)
	if err != nil {
		fail(err)
	}
	endpoint, rules, err := transit.NewEndpoint(feed,
		tracker.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		tracker.WithLogger(logger),
	)
	if err != nil {
		fail(err)
	}

	switch *mode {
	case "times":
		codes := splitList(*stops)
		if len(codes) == 0 {
			fail(errors.New("-stops is required"))
		}
		lt, err := endpoint.GetLiveTimesForStops(ctx, codes, *departures)
		if err != nil {
			fail(err)
		}
		for _, s := range lt.Stops() {
			fmt.Printf("%s %s", s.Code(), s.Name)
			if s.Disrupted {
				fmt.Print(" [disrupted]")
			}
			fmt.Println()
			for _, d := range s.Departures {
				marker := ""
				if !d.Estimated {
					marker = " (scheduled)"
				}
				fmt.Printf("  %-6s %3d min  %s%s\n", d.Service.Name, d.ETA, d.Destination, marker)
			}
		}
		if lt.HasGlobalDisruption() {
			fmt.Println("network disruption in effect")
		}

	case "add":
		codes := splitList(*stops)
		if len(codes) != 1 {
			fail(errors.New("-mode=add takes exactly one stop in -stops"))
		}
		set := alerts.AnyService()
		if strings.TrimSpace(*services) != "*" {
			set = alerts.Services(splitList(*services)...)
		}
		a, err := alerts.NewArrivalAlertRequest(rules, codes[0], set, *trigger)
		if err != nil {
			fail(err)
		}
		if err := store.NewFile(*alertsFile).AddAlert(ctx, a); err != nil {
			fail(err)
		}
		fmt.Println(a.ID)

	case "check":
		s := checker.NewService(store.NewFile(*alertsFile), publisher.NewLogNotifier(logger), endpoint, *departures,
			checker.WithLogger(logger))
		res, err := s.Check(ctx)
		if err != nil {
			fail(err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fail(err)
		}

	default:
		fail(fmt.Errorf("unknown mode %q", *mode))
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "busalert:", err)
	if tracker.Retryable(err) {
		fmt.Fprintln(os.Stderr, "busalert: the tracker may recover, try again shortly")
	}
	os.Exit(1)
}
