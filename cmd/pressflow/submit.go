package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Dev-Ruco/pressflow"
	"github.com/Dev-Ruco/pressflow/internal/config"
	"github.com/Dev-Ruco/pressflow/internal/logging"
	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

var submitCmd = &cobra.Command{
	Use:   "submit [files...]",
	Short: "Submit source material for one-shot processing",
	Long: `Starts a throwaway session, attaches the given files, links and text,
and runs the upload pipeline against the configured webhook. Useful for
scripting and for smoke-testing an n8n deployment.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		userID, _ := cmd.Flags().GetString("user")
		links, _ := cmd.Flags().GetStringArray("link")
		text, _ := cmd.Flags().GetString("text")

		cfg := config.DefaultConfig()
		if configPath != "" {
			loaded, err := config.LoadFromFile(configPath)
			if err != nil {
				fmt.Printf("Error loading config: %v\n", err)
				os.Exit(1)
			}
			cfg = loaded
		}

		logger := logging.New(logging.ParseLevel(cfg.Log.Level))
		engine, err := pressflow.New(cfg, pressflow.WithLogger(logger))
		if err != nil {
			fmt.Printf("Error initializing pressflow: %v\n", err)
			os.Exit(1)
		}
		ctx := context.Background()
		defer engine.Close(ctx)

		sessionID := "cli-" + uuid.NewString()
		if _, err := engine.StartSession(ctx, sessionID, userID); err != nil {
			fmt.Printf("Error starting session: %v\n", err)
			os.Exit(1)
		}

		var descriptors []domain.FileDescriptor
		payloads := make(map[string][]byte)
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Printf("Error reading %s: %v\n", path, err)
				os.Exit(1)
			}
			name := filepath.Base(path)
			mimeType := mime.TypeByExtension(filepath.Ext(name))
			desc := domain.FileDescriptor{
				ID:       uuid.NewString(),
				FileName: name,
				MimeType: mimeType,
				FileType: fileTypeFor(mimeType),
				FileSize: int64(len(data)),
				Status:   domain.FilePending,
			}
			descriptors = append(descriptors, desc)
			payloads[desc.ID] = data
		}

		if len(descriptors) > 0 {
			if err := engine.AddFiles(ctx, sessionID, descriptors, payloads); err != nil {
				fmt.Printf("Error attaching files: %v\n", err)
				os.Exit(1)
			}
		}
		patch := domain.Patch{}
		if len(links) > 0 {
			patch.Links = &links
		}
		if text != "" {
			patch.Content = &text
		}
		if !patch.IsZero() {
			if err := engine.Update(ctx, sessionID, patch); err != nil {
				fmt.Printf("Error attaching material: %v\n", err)
				os.Exit(1)
			}
		}

		if err := engine.Submit(cmd.Context(), sessionID); err != nil {
			fmt.Printf("Submission failed: %v\n", err)
			os.Exit(1)
		}

		state, err := engine.State(ctx, sessionID)
		if err != nil {
			fmt.Printf("Error reading session: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Submitted %d file(s), %d link(s). Stage: %s\n",
			len(descriptors), len(links), state.ProcessingStage)
	},
}

// fileTypeFor buckets a MIME type into the product's coarse categories.
func fileTypeFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	default:
		return "document"
	}
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().String("user", "cli", "User ID to submit as")
	submitCmd.Flags().StringArray("link", nil, "Source link (repeatable)")
	submitCmd.Flags().String("text", "", "Pasted source text")
}
