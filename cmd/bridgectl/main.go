package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/wirebridge/internal/admin"
	"github.com/danmuck/wirebridge/internal/bridge"
	"github.com/danmuck/wirebridge/internal/logging"
	"github.com/danmuck/wirebridge/internal/runtime"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "cmd/bridgectl/config.toml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to bridgectl config.toml")
	flag.Parse()

	logging.ConfigureRuntime()
	cfg, err := loadSettings(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: %v\n", err)
		os.Exit(1)
	}
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, bridge.Default(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: %v\n", err)
		os.Exit(1)
	}
}

// run starts a client registered with reg and forwards input lines through
// it until EOF, ctx cancellation, or a failure. A read or send failure is
// returned alongside any writer error.
func run(ctx context.Context, cfg settings, reg *bridge.Registry, in io.Reader, stdout io.Writer) error {
	out := stdout
	if cfg.Output != "" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		out = f
	}

	client, err := runtime.New(cfg.Runtime, out, reg)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return err
	}

	var srv *http.Server
	if cfg.AdminListen != "" {
		gin.SetMode(gin.ReleaseMode)
		srv = &http.Server{
			Addr:              cfg.AdminListen,
			Handler:           admin.NewRouter(admin.ClientBoundary{Client: client}, admin.Options{CorsOrigins: cfg.CorsOrigins}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("module", "bridgectl").Str("addr", cfg.AdminListen).Msg("admin listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("module", "bridgectl").Msg("admin server failed")
				_ = reg.StopBridge().Stop()
			}
		}()
	}

	// Buffered so the forwarder can report before it signals stop.
	inputErr := make(chan error, 1)
	go func() {
		if err := forwardLines(in, reg, client.Done()); err != nil {
			inputErr <- err
		}
		_ = reg.StopBridge().Stop()
	}()

	waitErr := client.Wait()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	select {
	case err := <-inputErr:
		return errors.Join(err, waitErr)
	default:
		return waitErr
	}
}

// forwardLines sends each newline-terminated line of in, with no length
// limit. A final unterminated line is sent with a newline appended.
func forwardLines(in io.Reader, reg *bridge.Registry, done <-chan struct{}) error {
	r := bufio.NewReader(in)
	sb := reg.SendBridge()
	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			select {
			case <-done:
				return nil
			default:
			}
			if line[len(line)-1] != '\n' {
				line = append(line, '\n')
			}
			if err := sb.Send(line); err != nil {
				log.Warn().Err(err).Str("module", "bridgectl").Msg("stopping input")
				return fmt.Errorf("forward input: %w", err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			log.Error().Err(readErr).Str("module", "bridgectl").Msg("read input")
			return fmt.Errorf("read input: %w", readErr)
		}
	}
}
