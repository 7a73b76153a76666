// Command schemafactory inspects and applies the relational schema for one
// scope at design time.
//
//	schemafactory [-config path] [-tenant name] status|upgrade
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/yungbote/elementstore/internal/data/migrate"
	"github.com/yungbote/elementstore/internal/platform/config"
	"github.com/yungbote/elementstore/internal/platform/ctxutil"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

func main() {
	var configPath string
	var tenant string
	flag.StringVar(&configPath, "config", filepath.Join("cmd", "dbmigrator", "appsettings.yaml"), "path to appsettings.yaml")
	flag.StringVar(&tenant, "tenant", "", "tenant scope (default: host)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: schemafactory [flags] status|upgrade\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), os.Stdout, configPath, tenant, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "schemafactory: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, configPath, tenant, command string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Provider != config.ProviderRelational {
		return fmt.Errorf("provider %q has no schema", cfg.Database.Provider)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	m := migrate.NewMigrator(cfg, config.NewResolver(cfg), log)
	ctx = ctxutil.WithTenant(ctx, tenant)

	switch command {
	case "status":
		return printStatus(ctx, out, m)
	case "upgrade":
		applied, err := m.Upgrade(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(out, "schema is up to date")
			return nil
		}
		for _, v := range applied {
			fmt.Fprintf(out, "applied %s\n", v)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printStatus(ctx context.Context, out io.Writer, m *migrate.Migrator) error {
	steps, err := m.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED\tAT\tDESCRIPTION")
	for _, s := range steps {
		at := "-"
		if s.Applied {
			at = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", s.Version, s.Applied, at, s.Description)
	}
	return w.Flush()
}
