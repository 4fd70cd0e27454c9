package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/spf13/cobra"

	"quillchat/internal/infrastructure/firebase"
	"quillchat/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "Operator tool for quillchat conversations",
	Long: `chatctl reads and writes conversations and messages in the same
Firestore project as the API, using the service account from the environment.`,
}

var timeout time.Duration

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "deadline for remote calls")
}

type backend struct {
	cfg       *config.Config
	firestore *firestore.Client
	auth      *firebase.FirebaseAuthClient
}

func (b *backend) Close() {
	b.firestore.Close()
}

// connect opens the Firestore and Firebase Auth clients configured in the environment.
func connect(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	opt, err := firebase.CredentialsOption(cfg)
	if err != nil {
		return nil, err
	}

	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth: %w", err)
	}

	client, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &backend{
		cfg:       cfg,
		firestore: client,
		auth:      firebase.NewFirebaseAuthClient(authClient),
	}, nil
}
