package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/claude/fitarch/internal/plans"
	"github.com/claude/fitarch/internal/plans/alpha"
	"github.com/claude/fitarch/internal/workout"
)

func main() {
	format := flag.String("format", "yaml", "input format: yaml or alpha")
	path := flag.String("path", "", "plan file (required)")
	rest := flag.Int("rest", 90, "rest seconds between sets for alpha imports")
	flag.Parse()

	if *path == "" {
		fmt.Fprintf(os.Stderr, "Usage: fitarch-plan -path plan.yaml [-format yaml|alpha] [-rest 90]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	plan, err := load(*format, *path, *rest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fitarch-plan: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%s: %d exercises, %d sets\n", plan.Name, len(plan.Exercises), plan.TotalSets())

	if err := plans.WriteYAML(os.Stdout, plan); err != nil {
		fmt.Fprintf(os.Stderr, "fitarch-plan: %v\n", err)
		os.Exit(1)
	}
}

func load(format, path string, rest int) (*workout.Plan, error) {
	switch format {
	case "yaml":
		return plans.LoadYAML(path)
	case "alpha":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sessions, err := alpha.Parse(f)
		if err != nil {
			return nil, err
		}
		latest, ok := alpha.Latest(sessions)
		if !ok {
			return nil, fmt.Errorf("%s: no sessions", path)
		}
		return alpha.ToPlan(latest, rest)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
