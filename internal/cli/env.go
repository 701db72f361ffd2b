package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/credential"
	"github.com/nhle/pmsterm/internal/logging"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/session"
)

// errNotLoggedIn is returned by commands that need a stored session.
var errNotLoggedIn = errors.New("not logged in, run `pmsterm login` first")

// env is the wiring every command shares.
type env struct {
	cfg      *model.AppConfig
	log      zerolog.Logger
	client   *api.Client
	sessions *session.Manager
	close    func() error
}

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return model.DefaultConfigPath()
}

// setup loads configuration and builds the API client and session manager.
func setup() (*env, error) {
	cfg, err := model.LoadConfig(configPath())
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}

	client := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithLogger(logging.Component(log, "api")),
	)
	ring := credential.NewKeyring(model.ConfigDir())

	return &env{
		cfg:      cfg,
		log:      log,
		client:   client,
		sessions: session.NewManager(ring, cfg.API.Host(), client, session.WithLogger(log)),
		close:    closeLog,
	}, nil
}

// authed restores the stored session and returns a client acting as it.
func (e *env) authed(ctx context.Context) (*session.Session, *api.Client, error) {
	s, err := e.sessions.Restore(ctx)
	if errors.Is(err, session.ErrLoginRequired) {
		e.log.Debug().Err(err).Msg("no usable session")
		return nil, nil, errNotLoggedIn
	}
	if err != nil {
		return nil, nil, err
	}
	return s, e.sessions.Client(s), nil
}

// withEnv runs fn with a fresh env and a context bounded by the API timeout.
func withEnv(fn func(ctx context.Context, e *env) error) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := e.close(); err != nil {
			e.log.Warn().Err(err).Msg("closing log")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(e.cfg.API.TimeoutSec)*time.Second)
	defer cancel()
	return fn(ctx, e)
}
