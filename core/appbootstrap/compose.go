// Package appbootstrap wires stores, services and the HTTP server together
// from a loaded configuration.
package appbootstrap

import (
	"database/sql"
	"fmt"

	"tesoportamos/api"
	"tesoportamos/config"
	"tesoportamos/core/incidents"
	"tesoportamos/core/intake"
	"tesoportamos/core/maintenance"
	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

type Runtime struct {
	Server    *api.Server
	Scheduler *maintenance.Scheduler
}

func Compose(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) (*Runtime, error) {
	timeout := cfg.EffectiveStoreTimeout()
	clients := store.ClientsWithTimeout(store.NewClientsStore(db), timeout)
	incidentsStore := store.IncidentsWithTimeout(store.NewIncidentsStore(db), timeout)
	audits := store.NewAuditStore(db)

	rules := intake.DefaultRuleSet()
	if cfg.Classifier.RulesPath != "" {
		loaded, err := intake.LoadRuleSet(cfg.Classifier.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load classifier rules: %w", err)
		}
		rules = loaded
		logger.Printf("classifier rules loaded from %s", cfg.Classifier.RulesPath)
	}

	intakeSvc := intake.NewService(cfg, clients, incidentsStore, audits, rules, logger)
	estadosSvc := incidents.NewService(clients, incidentsStore, audits, logger)

	server := api.NewServer(cfg, api.ServerDeps{
		Clients:    clients,
		Incidents:  incidentsStore,
		Audits:     audits,
		IntakeSvc:  intakeSvc,
		EstadosSvc: estadosSvc,
	}, logger)

	scheduler := maintenance.NewScheduler(cfg.Maintenance, audits, logger)
	return &Runtime{Server: server, Scheduler: scheduler}, nil
}
