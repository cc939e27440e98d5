package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Dev-Ruco/pressflow"
	httpAdapter "github.com/Dev-Ruco/pressflow/internal/adapters/http"
	redisAdapter "github.com/Dev-Ruco/pressflow/internal/adapters/redis"
	"github.com/Dev-Ruco/pressflow/internal/adapters/rest"
	"github.com/Dev-Ruco/pressflow/internal/config"
	"github.com/Dev-Ruco/pressflow/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workflow HTTP server",
	Long:  `Starts the pressflow engine in server mode, exposing the editorial workflow as a JSON API over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")

		cfg := config.DefaultConfig()
		if configPath != "" {
			loaded, err := config.LoadFromFile(configPath)
			if err != nil {
				fmt.Printf("Error loading config: %v\n", err)
				os.Exit(1)
			}
			cfg = loaded
		}
		if addr != "" {
			cfg.Server.Addr = addr
		}

		logger := logging.New(logging.ParseLevel(cfg.Log.Level))

		opts := []pressflow.Option{pressflow.WithLogger(logger)}

		// An empty redis addr keeps the in-memory adapters, which is
		// fine for a single replica.
		if cfg.Redis.Addr != "" {
			client := backend.NewClient(&backend.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			opts = append(opts,
				pressflow.WithStateStore(redisAdapter.NewFromClient(client, redisAdapter.WithTTL(cfg.Redis.SessionTTL))),
				pressflow.WithTitleCache(redisAdapter.NewTitleCache(client)),
				pressflow.WithLocker(redisAdapter.NewLocker(client, "pressflow:lock:")),
			)
		}

		if cfg.Store.URL != "" {
			opts = append(opts, pressflow.WithArticleStore(rest.New(cfg.Store.URL, cfg.Store.APIKey, cfg.Store.Timeout)))
		}

		engine, err := pressflow.New(cfg, opts...)
		if err != nil {
			fmt.Printf("Error initializing pressflow: %v\n", err)
			os.Exit(1)
		}

		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: httpAdapter.NewHandler(engine),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Pressflow Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 10*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			// Flush dirty sessions before exiting.
			if err := engine.Close(ctx); err != nil {
				fmt.Printf("Error closing engine: %v\n", err)
			}
			fmt.Println("Pressflow Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
}
