package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/consultacerta/portal/internal/config"
	"github.com/consultacerta/portal/internal/domain/companion"
	"github.com/consultacerta/portal/internal/domain/contact"
	"github.com/consultacerta/portal/internal/domain/content"
	"github.com/consultacerta/portal/internal/domain/feedback"
	"github.com/consultacerta/portal/internal/domain/health"
	"github.com/consultacerta/portal/internal/domain/locator"
	"github.com/consultacerta/portal/internal/domain/patient"
	"github.com/consultacerta/portal/internal/domain/reminder"
	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/platform/credstore"
	"github.com/consultacerta/portal/internal/platform/db"
	"github.com/consultacerta/portal/internal/platform/middleware"
	"github.com/consultacerta/portal/internal/platform/websocket"
	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

// app holds everything one portal process shares: the session, the
// backend client and the domain services built on them.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	closers []func()

	sessions *session.Store
	metrics  *middleware.Metrics
	hub      *websocket.Hub

	patients   *patient.Service
	companions *companion.Service
	reminders  *reminder.Service
	survey     *health.Service
	ratings    *feedback.Service
	contacts   *contact.Service
	guides     *content.Service
	clinics    *locator.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: middleware.NewMetrics(),
		hub:     websocket.NewHub(logger),
	}

	creds, err := a.openCredStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sessions = session.NewStore(creds, cfg.SessionKey, session.NewTokenDecoder(cfg.TokenSigningKey), logger)
	a.closers = append(a.closers, a.hub.WatchSession(a.sessions))

	opts := []workflow.Option{
		workflow.WithObserver(a.metrics.Observer()),
		workflow.WithObserver(a.hub.Observer()),
	}

	api := backend.NewAPI(backend.NewClient(cfg.HTTPTimeout, logger), cfg.Endpoints)
	patientRepo := patient.NewHTTPRepo(api.Patients)
	reminderRepo := reminder.NewHTTPRepo(api.Consultations, api.ReminderNotify)

	a.patients = patient.NewService(patientRepo, a.sessions, logger, opts...)
	a.companions = companion.NewService(companion.NewHTTPRepo(api.Companions), patientRepo, a.sessions, logger, opts...)
	a.reminders = reminder.NewService(reminderRepo, a.sessions, loc, logger, opts...)
	a.survey = health.NewService(health.NewHTTPRepo(api.HealthData, api.Prediction), reminderRepo, patientRepo, a.sessions, loc, logger, opts...)
	a.ratings = feedback.NewService(feedback.NewHTTPRepo(api.Ratings), loc, logger, opts...)
	a.contacts = contact.NewService(contact.NewHTTPRepo(api.Contacts), a.sessions, logger, opts...)
	a.guides = content.NewService(content.NewHTTPRepo(api.Content), logger)
	a.clinics = locator.NewService(locator.NewHTTPRepo(api.Locator), logger)
	return a, nil
}

// openCredStore selects the credential backend named by SESSION_STORE.
func (a *app) openCredStore(ctx context.Context) (credstore.Store, error) {
	switch a.cfg.SessionStore {
	case config.StoreMemory:
		return credstore.NewMemory(), nil

	case config.StoreRedis:
		r, err := credstore.NewRedis(ctx, a.cfg.RedisURL, 0)
		if err != nil {
			return nil, fmt.Errorf("open redis credential store: %w", err)
		}
		a.closers = append(a.closers, func() { r.Close() })
		a.logger.Debug().Msg("credential store: redis")
		return r, nil

	case config.StorePostgres:
		pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("open postgres credential store: %w", err)
		}
		a.pool = pool
		a.closers = append(a.closers, pool.Close)
		pg := credstore.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.logger.Debug().Msg("credential store: postgres")
		return pg, nil
	}

	f, err := credstore.NewFile(a.cfg.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("open file credential store: %w", err)
	}
	return f, nil
}

// Close releases the credential backend in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
