package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	orchestra "github.com/jeffdeville/penn-orchestra-sub006"
	"github.com/jeffdeville/penn-orchestra-sub006/backend"
	"github.com/jeffdeville/penn-orchestra-sub006/backend/pebblestore"
	"github.com/jeffdeville/penn-orchestra-sub006/repl"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
	"github.com/jeffdeville/penn-orchestra-sub006/utils"
)

// defaultConfig declares a one relation demo schema.
func defaultConfig(dir string) *orchestra.Config {
	return &orchestra.Config{
		Schema:  "demo",
		Backend: backend.Descriptor{Kind: backend.KindPebble, Path: filepath.Join(dir, "demo.db")},
		Relations: []orchestra.RelationConfig{{
			Name: "people",
			ID:   1,
			Key:  []string{"name"},
			Fields: []orchestra.FieldConfig{
				{Name: "name", Type: "string"},
				{Name: "age", Type: "int", Nullable: true},
			},
		}},
	}
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var configPath, dir, peer, kind, metricsAddr string
	var verbose bool
	cmd := &cobra.Command{
		Use:          "orchestra",
		Short:        "shell over a reconciliation diff store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			log := utils.NewDefaultLogger(level)

			path := configPath
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			cfg, err := orchestra.LoadConfig(path)
			if errors.Is(err, fs.ErrNotExist) {
				cfg, err = defaultConfig(dir), nil
			}
			if err != nil {
				return err
			}
			if peer != "" {
				cfg.Peer = txn.PeerID(peer)
			}
			if kind != "" {
				cfg.Backend.Kind = kind
			}
			if cfg.Backend.Path == "" && cfg.Backend.Kind != backend.KindMemory {
				cfg.Backend.Path = filepath.Join(dir, cfg.Schema+".db")
			}

			store, err := orchestra.OpenFromConfig(cfg, orchestra.Options{Logger: log})
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					log.Error("close failed", "err", err)
				}
			}()
			if err = cfg.Save(path); err != nil {
				return err
			}

			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				reg.MustRegister(orchestra.Collectors()...)
				if ps, ok := store.Backend().(*pebblestore.Store); ok {
					reg.MustRegister(ps.Collector())
				}
				go func() {
					err := http.ListenAndServe(metricsAddr, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
					log.Error("metrics endpoint stopped", "err", err)
				}()
			}

			shell := repl.New(store)
			if err = shell.Open(filepath.Join(dir, ".orchestra_history")); err != nil {
				return err
			}
			defer shell.Close()
			_, _ = fmt.Fprintf(shell.Out, "%s store %s, peer %s\n",
				cfg.Backend.Kind, cfg.Backend.ID, store.PidAndRecno())
			return shell.Run()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "orchestra.yaml", "configuration document, relative to --dir")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "working directory for the store and its history")
	cmd.Flags().StringVarP(&peer, "peer", "p", "", "peer id of this store")
	cmd.Flags().StringVarP(&kind, "backend", "b", "", "storage engine: memory, pebble or badger")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve prometheus metrics on this address")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}
