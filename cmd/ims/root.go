// ims is a terminal client for an inventory management system: a
// catalogue of part designs organised in a category tree, physical items
// tracked across a tree of systems, and transition rules governing where
// items may be created, moved and deleted.
package main

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/beamtime/ims/internal/catalogue"
	"github.com/beamtime/ims/internal/config"
	"github.com/beamtime/ims/internal/debug"
	"github.com/beamtime/ims/internal/item"
	"github.com/beamtime/ims/internal/lookup"
	"github.com/beamtime/ims/internal/objectstore"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/storage/sqlite"
	"github.com/beamtime/ims/internal/system"
)

var (
	dbPath       string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ims",
	Short: "Inventory management for scientific facilities",
	Long: `ims tracks a facility's equipment catalogue and physical inventory.

Catalogue categories form a tree whose leaves declare property schemas;
catalogue items describe part designs against those schemas; items are
the physical units, living in a tree of systems and moving between them
under transition rules.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		if dbPath != "" {
			config.Set("database.path", dbPath)
		}
		debug.SetLogFile(config.GetString("log.file"),
			config.GetInt("log.max-size-mb"), config.GetInt("log.max-backups"))
		config.Watch(func(e fsnotify.Event) {
			debug.Logf("config reloaded: %s", e.Name)
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the database file (default from config)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "table", "output format: table, json or yaml")

	rootCmd.AddGroup(
		&cobra.Group{ID: "catalogue", Title: "Catalogue:"},
		&cobra.Group{ID: "inventory", Title: "Inventory:"},
		&cobra.Group{ID: "reference", Title: "Reference data:"},
	)
}

// services bundles one storage handle with the services built over it.
// Commands open it for the duration of one invocation.
type services struct {
	store     storage.Storage
	catalogue *catalogue.Service
	systems   *system.Service
	items     *item.Service
	lookups   *lookup.Service
}

func openServices(ctx context.Context) (*services, error) {
	store, err := sqlite.New(ctx, storage.Config{
		Path:           config.GetString("database.path"),
		MaxTrailLength: config.MaxTrailLength(),
	})
	if err != nil {
		return nil, err
	}

	var objects system.ObjectRemover
	if config.GetBool("object-storage.enabled") {
		objects = objectstore.New(objectstore.Config{
			BaseURL:        config.GetString("object-storage.url"),
			AuthToken:      config.GetString("object-storage.auth-token"),
			RequestTimeout: config.GetDuration("object-storage.request-timeout"),
		})
	}

	return &services{
		store:     store,
		catalogue: catalogue.NewService(store),
		systems:   system.NewService(store, objects),
		items:     item.NewService(store, config.GetBool("spares.recompute-enabled")),
		lookups:   lookup.NewService(store),
	}, nil
}

// withServices opens the database, runs fn and closes it again. All
// command bodies go through here.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, s *services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.store.Close(); cerr != nil {
			debug.Logf("closing storage: %v", cerr)
		}
	}()
	return fn(ctx, s)
}
