package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/govpass/govpass/internal/config"
	"github.com/govpass/govpass/internal/domain/repository"
	"github.com/govpass/govpass/internal/observability/logger"
	tokens "github.com/govpass/govpass/internal/security/token"
	"github.com/govpass/govpass/internal/store"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed demo clients and a citizen profile for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
}

func runSeed(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	defer logger.Sync()

	st, err := store.New(ctx, store.Config{
		Driver:       cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	// Public SPA client, PKCE only.
	spa, err := st.Clients().Create(ctx, repository.ClientInput{
		ClientID: "demo-spa",
		Name:     "Demo Portal",
		Type:     repository.ClientTypePublic,
		RedirectURIs: []string{
			"http://localhost:3000/callback",
		},
		Scopes:   []string{"openid", "profile", "email"},
		Active:   true,
		Verified: true,
	})
	if err != nil {
		return fmt.Errorf("seed spa client: %w", err)
	}

	// Confidential backend client. The secret is printed once and only the
	// bcrypt hash is stored.
	secret, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return fmt.Errorf("seed secret: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed secret hash: %w", err)
	}
	backend, err := st.Clients().Create(ctx, repository.ClientInput{
		ClientID:   "demo-backend",
		Name:       "Demo Agency Backend",
		Type:       repository.ClientTypeConfidential,
		SecretHash: string(hash),
		RedirectURIs: []string{
			"http://localhost:4000/oauth/callback",
		},
		Scopes:   []string{"openid", "profile", "email", "phone"},
		Active:   true,
		Verified: true,
	})
	if err != nil {
		return fmt.Errorf("seed backend client: %w", err)
	}

	if err := st.Citizens().Upsert(ctx, repository.CitizenProfile{
		CitizenID:     "ctz-demo-0001",
		NIP:           "19850412000123",
		GivenName:     "Maria",
		FamilyName:    "Dubois",
		Birthdate:     "1985-04-12",
		Gender:        "female",
		Email:         "maria.dubois@example.org",
		EmailVerified: true,
		Phone:         "+33612345678",
		PhoneVerified: false,
	}); err != nil {
		return fmt.Errorf("seed citizen: %w", err)
	}

	fmt.Println("seeded demo data:")
	fmt.Printf("  public client:        %s\n", spa.ClientID)
	fmt.Printf("  confidential client:  %s\n", backend.ClientID)
	fmt.Printf("  client secret:        %s  (store it now, shown once)\n", secret)
	fmt.Printf("  citizen profile:      ctz-demo-0001\n")
	return nil
}
