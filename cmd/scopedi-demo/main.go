// Command scopedi-demo walks through the container's behaviour: the
// registered graph, scope isolation, circular dependency reporting and a
// resolution micro-benchmark.
//
//	scopedi-demo --scenario scopes
//	scopedi-demo -s bench -n 1000000 --metrics
//	scopedi-demo --dot | dot -Tsvg > services.svg
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/junioryono/scopedi/app"
	"github.com/junioryono/scopedi/config"
)

var scenarios = []string{"graph", "scopes", "cycle", "bench"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("scopedi-demo", pflag.ContinueOnError)
	fs.SetOutput(out)

	configPath := fs.StringP("config", "c", "", "YAML configuration file")
	envFile := fs.String("env-file", ".env", "dotenv file with SCOPEDI_* overrides")
	scenario := fs.StringP("scenario", "s", "graph", "one of: "+strings.Join(scenarios, ", "))
	iterations := fs.IntP("iterations", "n", 100_000, "resolutions per benchmark")
	metrics := fs.Bool("metrics", false, "report resolution metrics when done")
	dot := fs.Bool("dot", false, "write the graph scenario as Graphviz DOT")
	noColor := fs.Bool("no-color", false, "disable colored output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *noColor {
		color.NoColor = true
	}

	if !validScenario(*scenario) {
		return fmt.Errorf("unknown scenario %q, want one of: %s", *scenario, strings.Join(scenarios, ", "))
	}
	if *iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", *iterations)
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if *metrics && cfg.Container.MetricsNamespace == "" {
		cfg.Container.MetricsNamespace = "demo"
	}

	b := app.NewBuilder(app.WithConfig(cfg), app.WithRegisterer(reg))
	b.AddExtension(&repositoryExtension{})
	b.Services().AddSingleton(&Options{
		Scenario:   *scenario,
		Iterations: *iterations,
		DOT:        *dot,
		Out:        out,
	})

	d, provider, err := app.Build[*Demo](b)
	if err != nil {
		return err
	}

	if err := app.Run(ctx, d, provider); err != nil {
		return err
	}

	if cfg.Container.MetricsNamespace != "" {
		return printMetrics(out, reg)
	}
	return nil
}

func validScenario(name string) bool {
	for _, s := range scenarios {
		if s == name {
			return true
		}
	}
	return false
}

func printMetrics(out io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}

	heading := color.New(color.Bold)
	heading.Fprintln(out, "\nresolution metrics")

	var lines []string
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "resolutions_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			lines = append(lines, fmt.Sprintf("  %-70s %8.0f", strings.Join(labels, " "), m.GetCounter().GetValue()))
		}
	}

	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}
