package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/strikezone/internal/app"
	"github.com/ayusman/strikezone/internal/config"
	"github.com/ayusman/strikezone/internal/logging"
	"github.com/ayusman/strikezone/internal/model"
	"github.com/ayusman/strikezone/internal/server"
	"github.com/ayusman/strikezone/internal/state"
	"github.com/ayusman/strikezone/internal/store"
	"github.com/ayusman/strikezone/internal/tray"
)

func main() {
	configDir := flag.String("config", defaultDataDir(), "directory holding strikezone.json")
	headless := flag.Bool("headless", false, "run without the system tray")
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	cfg, err := config.Get()
	if err != nil {
		log.Fatal().Err(err).Msg("decode config")
	}

	var logFile io.Writer
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.LogFile).Msg("open log file")
		}
		defer f.Close()
		logFile = f
	}
	logging.Setup(logging.Options{Level: cfg.LogLevel, File: logFile})
	log.Info().Msg("Strikezone - AR Pitch Tracker")

	if dir := filepath.Dir(cfg.Store.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("create data directory")
		}
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize store")
	}
	defer st.Close()

	hub := server.NewHub()
	defer hub.Close()

	a := app.New(app.Config{Settings: cfg, Store: st, Events: hub})
	defer a.Close()
	if err := a.DiscoverPlugins(); err != nil {
		log.Warn().Err(err).Str("dir", cfg.Hooks.Dir).Msg("plugin discovery failed")
	}

	webDir := findWebDir()
	if webDir != "" {
		log.Info().Str("dir", webDir).Msg("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Field:     a.Field(),
		Session:   a,
		Plugins:   a.Plugins(),
		Events:    hub,
		Frames:    a,
	})

	go func() {
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	if *headless {
		if err := a.StartTracking(); err != nil {
			log.Error().Err(err).Msg("tracking not started")
		}
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		return
	}

	runTray(a, chartURL(cfg.Server.Addr))
}

// runTray blocks on the tray event loop until Quit.
func runTray(a *app.App, chart string) {
	t := tray.New()
	t.OnToggle(func(tracking bool) error {
		if !tracking {
			a.StopTracking()
			return nil
		}
		return a.StartTracking()
	})
	t.OnResetField(a.ResetField)
	t.OnChart(func() {
		if err := openBrowser(chart); err != nil {
			log.Warn().Err(err).Str("url", chart).Msg("open chart")
		}
	})
	t.OnQuit(func() {
		log.Info().Msg("quit requested")
	})

	a.States().Subscribe(func(tr state.Transition) {
		t.SetState(tr.To)
		if tr.To == model.StateStopped || tr.To == model.StateError {
			t.SetTracking(a.IsTracking())
		}
	})
	a.Tracker().OnPitch(t.SetLastPitch)

	t.Run()
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".strikezone")
}

func chartURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return fmt.Sprintf("http://%s/api/pitches/chart", host)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.strikezone/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(defaultDataDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
