// Package registry implements the operator command for the undername
// registry: it opens the ledger, rebuilds the materialized state, and runs
// governance and inspection tasks against it.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	platformcmd "github.com/permasite/undernames/internal/platform/cmd"
	"github.com/permasite/undernames/internal/registry/service"
	"github.com/permasite/undernames/internal/storage/integrity"
	"github.com/permasite/undernames/internal/storage/sqlite"
)

// Config holds registry command configuration.
type Config struct {
	DBPath   string        `env:"PERMASITE_REGISTRY_DB"`
	RootName string        `env:"PERMASITE_REGISTRY_ROOT" envDefault:"permasite"`
	Timeout  time.Duration `env:"PERMASITE_REGISTRY_TIMEOUT" envDefault:"10m"`

	Bootstrap  string
	As         string
	Verify     bool
	Audit      bool
	Filter     string
	AfterSeq   uint64
	PageSize   int
	Export     string
	JSONOutput bool
}

// ParseConfig loads env defaults and parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "registry.db")
	}
	cfg.PageSize = 50

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the ledger sqlite database (default: PERMASITE_REGISTRY_DB or data/registry.db)")
	fs.StringVar(&cfg.RootName, "root", cfg.RootName, "namespace root the registry governs (default: PERMASITE_REGISTRY_ROOT)")
	fs.StringVar(&cfg.Bootstrap, "bootstrap", "", "seed the given address as the initial controller")
	fs.StringVar(&cfg.As, "as", "", "controller identity to run -audit and -export as")
	fs.BoolVar(&cfg.Verify, "verify", false, "verify the ledger hash chain and signatures")
	fs.BoolVar(&cfg.Audit, "audit", false, "print ledger events, optionally filtered")
	fs.StringVar(&cfg.Filter, "filter", "", "AIP-160 filter for -audit (e.g. 'actor = \"ctrl-1\"')")
	fs.Uint64Var(&cfg.AfterSeq, "after-seq", 0, "start -audit after this event sequence")
	fs.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "max -audit events per page")
	fs.StringVar(&cfg.Export, "export", "", "write a signed state snapshot to the given path ('-' for stdout)")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON for -audit")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the registry command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Bootstrap == "" && !cfg.Verify && !cfg.Audit && cfg.Export == "" {
		return errors.New("no task selected: use -bootstrap, -verify, -audit, or -export")
	}

	keyring, err := integrity.KeyringFromEnv()
	if err != nil {
		return err
	}
	store, err := sqlite.Open(cfg.DBPath, cfg.RootName, keyring)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close ledger store: %v\n", closeErr)
		}
	}()

	svc, err := service.New(ctx, store, cfg.RootName, keyring)
	if err != nil {
		return err
	}

	if cfg.Bootstrap != "" {
		if err := svc.Bootstrap(ctx, cfg.Bootstrap); err != nil {
			return err
		}
		fmt.Fprintf(out, "bootstrapped root %q with controller %s\n", cfg.RootName, cfg.Bootstrap)
	}

	if cfg.Verify {
		if err := svc.VerifyIntegrity(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "ledger integrity OK")
	}

	if cfg.Audit {
		if err := runAudit(ctx, svc, cfg, out); err != nil {
			return err
		}
	}

	if cfg.Export != "" {
		if err := runExport(ctx, svc, cfg, out); err != nil {
			return err
		}
	}

	return nil
}

func runAudit(ctx context.Context, svc *service.Service, cfg Config, out io.Writer) error {
	afterSeq := cfg.AfterSeq
	for {
		page, err := svc.Audit(ctx, cfg.As, cfg.Filter, afterSeq, cfg.PageSize)
		if err != nil {
			return err
		}
		for _, evt := range page.Events {
			if cfg.JSONOutput {
				line, err := json.Marshal(evt)
				if err != nil {
					return fmt.Errorf("marshal event: %w", err)
				}
				fmt.Fprintln(out, string(line))
			} else {
				fmt.Fprintf(out, "%6d  %s  %-24s  actor=%s  entity=%s/%s\n",
					evt.Seq,
					evt.Timestamp.Format(time.RFC3339),
					evt.Type,
					evt.Actor,
					evt.EntityType,
					evt.EntityID,
				)
			}
			afterSeq = evt.Seq
		}
		if !page.HasNextPage {
			return nil
		}
	}
}

// exportEnvelope pairs a snapshot with its attestation token.
type exportEnvelope struct {
	Snapshot    json.RawMessage `json:"snapshot"`
	Attestation string          `json:"attestation"`
}

func runExport(ctx context.Context, svc *service.Service, cfg Config, out io.Writer) error {
	snapshot, token, err := svc.Export(ctx, cfg.As)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	envelope, err := json.MarshalIndent(exportEnvelope{Snapshot: raw, Attestation: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	envelope = append(envelope, '\n')

	if cfg.Export == "-" {
		_, err = out.Write(envelope)
		return err
	}
	if err := os.WriteFile(cfg.Export, envelope, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(out, "exported snapshot at seq %d to %s\n", snapshot.HeadSeq, cfg.Export)
	return nil
}
