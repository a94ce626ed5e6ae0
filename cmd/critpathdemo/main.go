// Command critpathdemo drives the critical-path listener against a
// synthetic or file-described build and prints the resulting report.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/latticebuild/critpath/backend"
	"github.com/latticebuild/critpath/internal/critlog"
	"github.com/latticebuild/critpath/internal/metrics"
	"github.com/latticebuild/critpath/listener"
	"github.com/latticebuild/critpath/scope"
	"github.com/latticebuild/critpath/signal"
)

func main() {
	app := &cli.App{
		Name:  "critpathdemo",
		Usage: "replay a build scenario through the critical-path listener",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scenario", Value: "", Usage: "path to a TOML scenario file; built-in scenario used if empty"},
			&cli.BoolFlag{Name: "longest-path", Usage: "force the longest-path backend regardless of BUCK2_USE_LONGEST_PATH_GRAPH"},
			&cli.IntFlag{Name: "metrics-port", Value: 0, Usage: "serve Prometheus metrics on this port; 0 disables"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "critpathdemo:", err)
		os.Exit(1)
	}
}

// scenarioFile is the on-disk shape a scenario is loaded from.
type scenarioFile struct {
	Actions []struct {
		ID        string   `toml:"id"`
		Target    string   `toml:"target"`
		Category  string   `toml:"category"`
		DependsOn []string `toml:"depends_on"`
		Millis    int64    `toml:"millis"`
	} `toml:"action"`
}

func run(c *cli.Context) error {
	structuredLog, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer structuredLog.Sync() //nolint:errcheck

	logger := critlog.New(structuredLog, os.Stderr)

	registry := prometheus.NewRegistry()
	metricsRegistry := metrics.NewRegistry(registry)

	if port := c.Int("metrics-port"); port != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
		go srv.ListenAndServe() //nolint:errcheck
		defer srv.Close()
	}

	actions, err := loadScenario(c.String("scenario"))
	if err != nil {
		return err
	}

	opts := scope.Options{
		Logger:  logger,
		Metrics: metricsRegistry,
		Sink: listener.EventSinkFunc(func(info listener.BuildGraphExecutionInfo) {
			printReport(info)
		}),
	}
	if c.Bool("longest-path") {
		opts.Backend = backend.NewLongestPath().WithLogger(logger)
	}

	_, err = scope.Run(context.Background(), opts, func(ctx context.Context) error {
		sender, ok := listener.SenderFromContext(ctx)
		if !ok {
			return fmt.Errorf("no sender in context")
		}
		emitScenario(sender, actions)
		return nil
	})
	return err
}

type scenarioAction struct {
	id        string
	target    string
	category  string
	dependsOn []string
	duration  time.Duration
}

func loadScenario(path string) ([]scenarioAction, error) {
	if path == "" {
		return builtinScenario(), nil
	}

	var raw scenarioFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	actions := make([]scenarioAction, 0, len(raw.Actions))
	for _, a := range raw.Actions {
		actions = append(actions, scenarioAction{
			id:        a.ID,
			target:    a.Target,
			category:  a.Category,
			dependsOn: a.DependsOn,
			duration:  time.Duration(a.Millis) * time.Millisecond,
		})
	}
	return actions, nil
}

func builtinScenario() []scenarioAction {
	return []scenarioAction{
		{id: "compile-lib", target: "//demo:lib", category: "compile", duration: 400 * time.Millisecond},
		{id: "compile-main", target: "//demo:main", category: "compile", dependsOn: []string{"compile-lib"}, duration: 150 * time.Millisecond},
		{id: "link-main", target: "//demo:main", category: "link", dependsOn: []string{"compile-main"}, duration: 900 * time.Millisecond},
	}
}

func emitScenario(sender signal.Sender, actions []scenarioAction) {
	targets := make(map[string]bool)
	for _, a := range actions {
		targets[a.target] = true
	}
	for target := range targets {
		sender.Signal(signal.AnalysisSignal{
			Label:    target,
			Duration: signal.NodeDuration{User: 5 * time.Millisecond},
		})
	}

	byID := make(map[string]scenarioAction, len(actions))
	for _, a := range actions {
		byID[a.id] = a
	}

	for _, a := range actions {
		var inputs []signal.ArtifactGroup
		for _, dep := range a.dependsOn {
			depAction, ok := byID[dep]
			if !ok {
				continue
			}
			inputs = append(inputs, signal.NewArtifactActionGroup(actionKeyFor(depAction)))
		}

		sender.Signal(signal.ActionExecutionSignal{
			Action: &signal.RegisteredAction{
				Key:        actionKeyFor(a),
				Category:   a.category,
				Identifier: a.id,
				Inputs:     inputs,
			},
			Duration: signal.NodeDuration{User: a.duration, Total: a.duration},
			SpanID:   &signal.SpanID{ID: uuid.New().ID()},
		})
	}
}

func actionKeyFor(a scenarioAction) signal.ActionKey {
	return signal.ActionKey{ID: a.id, Owner: signal.Owner{Kind: signal.OwnerTargetLabel, Label: a.target}}
}

func printReport(info listener.BuildGraphExecutionInfo) {
	fmt.Printf("critical path (%d nodes, %d edges):\n", info.NumNodes, info.NumEdges)
	for _, e := range info.CriticalPath {
		switch e.Kind {
		case listener.ActionExecutionEntryKind:
			fmt.Printf("  action  %-20s %-10s dur=%-10s potential=%v\n",
				e.ActionExecution.Name.Identifier, e.ActionExecution.Name.Category, e.Duration, e.PotentialImprovement)
		case listener.AnalysisEntryKind:
			fmt.Printf("  analysis %-20s dur=%-10s potential=%v\n",
				e.Analysis.Target, e.Duration, e.PotentialImprovement)
		}
	}
}
