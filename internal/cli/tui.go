package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/pmsterm/internal/app"
	"github.com/nhle/pmsterm/internal/store"
)

func runTUI(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	db, err := store.NewSQLiteStore(e.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	socketURL, err := e.cfg.API.ResolveSocketURL()
	if err != nil {
		e.log.Warn().Err(err).Msg("live chat disabled")
		socketURL = ""
	}

	m := app.New(app.Config{
		Sessions:     e.sessions,
		Store:        db,
		SocketURL:    socketURL,
		AssetBase:    e.cfg.API.BaseURL,
		PollInterval: time.Duration(e.cfg.Display.PollIntervalSec) * time.Second,
		Log:          e.log,
	})

	e.log.Info().Str("api", e.cfg.API.BaseURL).Msg("starting")
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
