package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chorusai/chorus-sdk-go/pkg/chorus"
)

var (
	verbose bool
	apiKey  string
	baseURL string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "chorus",
		Short:   "Chorus SDK Go CLI",
		Long:    "A command-line interface for the Chorus voice AI platform",
		Version: chorus.Version,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL")

	rootCmd.AddCommand(ttsCmd())
	rootCmd.AddCommand(configsCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(envCmd())

	if err := rootCmd.Execute(); err != nil {
		chorus.GetGlobalLogger().WithError(err).Fatal("CLI execution failed")
	}
}

func newClient() (*chorus.Client, error) {
	config := chorus.NewClientConfig()
	if apiKey != "" {
		config.APIKey = apiKey
	}
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if verbose {
		config.LogLevel = "debug"
		config.DebugWebSocket = true
	}
	return chorus.NewClient(config)
}

func ttsCmd() *cobra.Command {
	var (
		text  string
		voice string
		out   string
		play  bool
	)

	cmd := &cobra.Command{
		Use:   "tts",
		Short: "Synthesize speech",
		Long:  "Synthesize speech from text, streaming segments as they are generated",
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" {
				return fmt.Errorf("--text is required")
			}

			client, err := newClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if !play {
				audio, err := client.Synthesize(ctx, chorus.SynthesisRequest{Text: text, Voice: voice})
				if err != nil {
					return err
				}
				if out == "" {
					out = "output.wav"
				}
				if err := os.WriteFile(out, audio, 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %d bytes to %s\n", len(audio), out)
				return nil
			}

			player, err := chorus.NewAudioPlayer()
			if err != nil {
				return err
			}
			defer player.Close()

			err = client.SynthesizeStream(ctx, chorus.SynthesisRequest{Text: text, Voice: voice},
				func(segment chorus.AudioSegment) error {
					player.Enqueue(segment)
					return nil
				})
			if err != nil {
				return err
			}
			player.Wait(time.Minute)
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice name")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default output.wav)")
	cmd.Flags().BoolVar(&play, "play", false, "Stream and play through the default audio device")
	return cmd
}

func configsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Manage stored configurations",
	}

	var page, size int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			result, err := client.ListConfigs(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			for _, cfg := range result.Configs {
				fmt.Printf("%s\t%s\t%s\n", cfg.ID, cfg.Name, cfg.Voice)
			}
			fmt.Printf("page %d/%d\n", result.PageNumber, result.TotalPages)
			return nil
		},
	}
	listCmd.Flags().IntVar(&page, "page", 0, "Page number")
	listCmd.Flags().IntVar(&size, "size", 20, "Page size")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			cfg, err := client.GetConfig(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("ID:      %s\nName:    %s\nVoice:   %s\nPrompt:  %s\n",
				cfg.ID, cfg.Name, cfg.Voice, cfg.SystemPrompt)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			return client.DeleteConfig(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(getCmd)
	cmd.AddCommand(deleteCmd)
	return cmd
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage analysis jobs",
	}

	var urls, text, models []string
	var wait bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Submit an analysis job",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			job, err := client.StartJob(cmd.Context(), chorus.JobRequest{
				URLs:   urls,
				Text:   text,
				Models: models,
			})
			if err != nil {
				return err
			}
			fmt.Printf("job %s: %s\n", job.ID, job.Status)
			if wait {
				job, err = client.WaitForJob(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				fmt.Printf("job %s: %s\n", job.ID, job.Status)
			}
			return nil
		},
	}
	startCmd.Flags().StringSliceVar(&urls, "url", nil, "Audio URL to analyze (repeatable)")
	startCmd.Flags().StringSliceVar(&text, "text", nil, "Text to analyze (repeatable)")
	startCmd.Flags().StringSliceVar(&models, "model", nil, "Model to run (repeatable)")
	startCmd.Flags().BoolVar(&wait, "wait", false, "Block until the job finishes")

	statusCmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show job status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			job, err := client.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("job %s: %s\n", job.ID, job.Status)
			return nil
		},
	}

	cmd.AddCommand(startCmd)
	cmd.AddCommand(statusCmd)
	return cmd
}

func chatCmd() *cobra.Command {
	var message string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a short live chat session",
		Long:  "Connect to the streaming endpoint, send a message and print what comes back",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			session := client.NewChatSession()
			session.OnMessage(chorus.CreateChatMessageHandler(func(m chorus.ChatMessage) {
				fmt.Printf("%s: %s\n", m.Role, m.Content)
			}))
			session.OnMessage(chorus.CreateTranscriptHandler(func(text string, final bool) {
				if final {
					fmt.Printf("you: %s\n", text)
				}
			}))
			session.OnDisconnect(func(reason *chorus.Error) {
				if reason != nil {
					fmt.Printf("disconnected: %s\n", reason.Message)
				}
			})

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := session.Connect(ctx); err != nil {
				return err
			}
			defer session.Disconnect()

			if message != "" {
				if err := session.SendText(message); err != nil {
					return err
				}
			}

			select {
			case <-ctx.Done():
			case <-time.After(duration):
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Message to send")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "How long to listen")
	return cmd
}

func envCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			config := chorus.NewClientConfig()
			config.PrintConfig()
			if err := config.Validate(); err != nil {
				fmt.Printf("\nValidation: %v\n", err)
			} else {
				fmt.Println("\nValidation: OK")
			}
		},
	}
}
