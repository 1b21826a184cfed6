package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/database"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/edgar"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/logging"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/openfigi"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/repository"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/service"
)

// app holds the services a subcommand works with.
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	db     *sql.DB
	query  *service.QueryService
	loader *service.LoaderService
}

// openApp loads configuration, opens and migrates the database and wires the
// services. Commands that reach the SEC pass network so that configuration
// is validated first. Overrides are applied to the loaded configuration.
func openApp(ctx context.Context, network bool, overrides ...func(*config.Config)) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if network {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logger := logging.New(cfg.Logging)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if _, err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	fundRepo := repository.NewFundRepository(db)
	filingRepo := repository.NewFilingRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	relRepo := repository.NewRelationshipRepository(db)

	return &app{
		cfg: cfg,
		log: logger,
		db:  db,
		query: service.NewQueryService(fundRepo, filingRepo, holdingRepo, relRepo),
		loader: service.NewLoaderService(
			db,
			fundRepo,
			filingRepo,
			holdingRepo,
			relRepo,
			edgar.NewFetcher(cfg.Edgar, logger),
			openfigi.NewClient(cfg.OpenFIGI, logger),
			cfg.Loader,
			logger,
		),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close database")
	}
}

// printMarkdown renders md for the terminal, falling back to the raw text.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		if out, err := r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Println(md)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
