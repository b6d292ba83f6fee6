package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesm/flow/internal/config"
	"github.com/wesm/flow/internal/server"
	"github.com/wesm/flow/internal/store"
)

const (
	browserPollInterval = 100 * time.Millisecond
	browserPollAttempts = 60
	shutdownTimeout     = 5 * time.Second
)

// landingPath is the page opened in the browser. There is no
// HTML front-end, so it points at the build info endpoint.
const landingPath = "/api/version"

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server (default command)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	config.RegisterServeFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogFile(cfg.DataDir)

	st, cfg, err := openStore(cfg, store.WithWatch(true))
	if err != nil {
		return err
	}
	defer st.Close()

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		fmt.Printf("Port %d in use, using %d\n", cfg.Port, port)
	}
	cfg.Port = port

	srv := server.New(cfg, st, engine,
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
	)

	url := fmt.Sprintf("http://%s", srv.Addr())
	fmt.Printf("flow %s listening at %s (%s storage, %s)\n",
		version, url, cfg.Storage, cfg.Variant)

	if !cfg.NoBrowser {
		go openBrowser(url)
	}

	ctx, stop := signal.NotifyContext(
		cmd.Context(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), shutdownTimeout,
	)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func openBrowser(base string) {
	url := base + landingPath
	for range browserPollAttempts {
		time.Sleep(browserPollInterval)
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32",
			"url.dll,FileProtocolHandler", url)
	default:
		return
	}
	_ = cmd.Run()
}
