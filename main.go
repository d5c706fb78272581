package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"dabastion/config"
	"dabastion/directory"
	"dabastion/history"
	"dabastion/posture"
	"dabastion/prereq"
	"dabastion/remedy"
	"dabastion/report"
	"dabastion/rsop"
	"dabastion/snapshot"
)

func printUsage() {
	fmt.Println("Usage: dabastion -evaluate | -remediate | -deathblossom | -undo [-config FILE]")
	fmt.Println()
	fmt.Println("Audits and hardens the privileged-account posture of an Active Directory")
	fmt.Println("domain. Run it on a domain controller with a privileged bind account.")
	fmt.Println()
	fmt.Println("  -evaluate      collect a domain snapshot and report posture findings")
	fmt.Println("  -remediate     apply hardening actions, confirming each one")
	fmt.Println("  -deathblossom  apply every hardening action after a single confirmation")
	fmt.Println("  -undo          remove the artifacts earlier remediation runs created")
	fmt.Println("  -config FILE   environment file with connection settings (default dabastion.env)")
	fmt.Println("  -help          show this help")
	fmt.Println()
	fmt.Println("Hardening actions:")
	for _, line := range remedy.Summaries() {
		fmt.Println("  " + line)
	}
}

func main() {
	evaluate := flag.Bool("evaluate", false, "report posture findings")
	remediate := flag.Bool("remediate", false, "apply hardening actions interactively")
	deathblossom := flag.Bool("deathblossom", false, "apply all hardening actions after one confirmation")
	undo := flag.Bool("undo", false, "remove remediation artifacts")
	help := flag.Bool("help", false, "show usage")
	configPath := flag.String("config", "dabastion.env", "environment file with connection settings")
	flag.Usage = printUsage
	flag.Parse()

	mode := ""
	for _, m := range []struct {
		set  bool
		name string
	}{
		{*evaluate, "evaluate"},
		{*remediate, "remediate"},
		{*deathblossom, "deathblossom"},
		{*undo, "undo"},
	} {
		if !m.set {
			continue
		}
		if mode != "" {
			fmt.Fprintln(os.Stderr, "pick exactly one of -evaluate, -remediate, -deathblossom, -undo")
			os.Exit(1)
		}
		mode = m.name
	}

	if *help || mode == "" {
		printUsage()
		return
	}

	if err := run(mode, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "dabastion: %v\n", err)
		os.Exit(1)
	}
}

func run(mode, configPath string) error {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fileLog, err := report.OpenFileLog(cfg.Report.LogPath)
	if err != nil {
		return err
	}
	defer fileLog.Close()
	sinks := report.Fanout{report.NewConsole(os.Stdout), fileLog}

	// The history store is optional: a missing or unreachable database
	// downgrades to a warning rather than blocking the run.
	var hist *history.Store
	if cfg.History.DSN != "" {
		hist, err = history.Open(ctx, cfg.History.DSN, logger)
		if err != nil {
			logger.Warn("run history unavailable, continuing without it", "error", err)
			hist = nil
		}
	}

	sess := directory.NewSession(cfg.Directory.Host, cfg.Directory.BaseDN,
		directory.WithPageSize(cfg.Directory.PageSize),
		directory.WithLogger(logger),
	)
	if err := sess.Connect(cfg.Directory.Username, cfg.Directory.Password); err != nil {
		return err
	}
	defer sess.Close()

	if err := prereq.Check(sess); err != nil {
		return err
	}

	if hist != nil {
		if err := hist.BeginRun(mode, cfg.Directory.BaseDN, sess.AuthzID()); err != nil {
			logger.Warn("run history unavailable, continuing without it", "error", err)
			hist.Close()
		} else {
			defer hist.Close()
			defer hist.FinishRun()
			sinks = append(sinks, hist)
		}
	}

	if mode == "evaluate" {
		return evaluateDomain(ctx, cfg, sess, sinks, logger)
	}

	confirm := remedy.NewTerminalConfirmer()
	catalog := remedy.NewCatalog(sess, sess, confirm, sinks)
	switch mode {
	case "remediate":
		return remedy.NewController(catalog, confirm, sinks).Remediate()
	case "deathblossom":
		return remedy.NewController(catalog, confirm, sinks).DeathBlossom()
	case "undo":
		return remedy.NewUndoer(catalog, sinks).Undo()
	}
	return fmt.Errorf("unknown mode %q", mode)
}

func evaluateDomain(ctx context.Context, cfg *config.Config, sess *directory.Session, rep report.Reporter, logger *slog.Logger) error {
	source := rsop.NewCommandSource(
		rsop.WithScratchDir(cfg.Collector.ScratchDir),
		rsop.WithCommand(cfg.Collector.Command()),
		rsop.WithLogger(logger),
	)
	collector, err := snapshot.NewCollector(source, sess, snapshot.WithLogger(logger))
	if err != nil {
		return err
	}
	snap, err := collector.Collect(ctx)
	if err != nil {
		return err
	}
	for _, finding := range posture.Evaluate(snap) {
		rep.Record(finding.Severity, finding.Message)
	}
	return nil
}
