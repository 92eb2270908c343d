package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pqx/internal/session"
	"pqx/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
)

const logFileName = "pqx.log"

// Options says what to open. Zero Page and PageSize restore where the file was
// left, then fall back to page 1 and the configured page size.
type Options struct {
	Path     string
	Store    store.ColumnarStore
	Page     int
	PageSize int
}

func Run(ctx context.Context, opts Options) error {
	closeLog := redirectLogs()
	defer closeLog()

	cfg, err := store.LoadConfig()
	if err != nil {
		log.WithError(err).Warn("config unreadable; using defaults")
		cfg = &store.GlobalConfig{}
	}
	vs, err := store.LoadViewState()
	if err != nil {
		log.WithError(err).Warn("view state unreadable")
		vs = &store.ViewState{}
	}
	prev := vs.ForFile(opts.Path)

	size := firstPositive(opts.PageSize, prev.PageSize, cfg.PageSize())
	page := firstPositive(opts.Page, prev.Page, 1)

	s := session.New(opts.Store, opts.Path, size)
	if err := s.Load(ctx, page, size); err != nil {
		return fmt.Errorf("open %s: %w", opts.Path, err)
	}

	applyThemePreference(cfg.Theme)
	applyColorProfilePreference()

	m := newModel(ctx, s, cfg)
	if opts.Page == 0 && prev.Page == s.Window().Page() {
		m.restoreCursor(prev)
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(appModel); ok {
		m = fm
	}

	// Remember the file and position for next time; failures only cost convenience.
	cfg.TouchRecent(m.sess.Path())
	if err := store.SaveConfig(cfg); err != nil {
		log.WithError(err).Warn("save config")
	}
	vs.SetFile(m.sess.Path(), m.viewState())
	if err := store.SaveViewState(vs); err != nil {
		log.WithError(err).Warn("save view state")
	}
	return nil
}

// redirectLogs sends logrus output to ~/.pqx/pqx.log while the alt screen is up.
func redirectLogs() func() {
	prevOut := log.StandardLogger().Out
	restore := func() { log.SetOutput(prevOut) }

	dir, err := store.ConfigDir()
	if err == nil {
		err = os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		log.SetOutput(io.Discard)
		return restore
	}
	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		log.SetOutput(io.Discard)
		return restore
	}
	log.SetOutput(f)
	if !log.IsLevelEnabled(log.InfoLevel) {
		log.SetLevel(log.InfoLevel)
	}
	return func() {
		restore()
		_ = f.Close()
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
