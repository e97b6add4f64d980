package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-integrations/app/dto"
	"github.com/vibast-solutions/ms-go-integrations/app/ratelimit"
	"github.com/vibast-solutions/ms-go-integrations/app/repository"
	"github.com/vibast-solutions/ms-go-integrations/app/service"
	"github.com/vibast-solutions/ms-go-integrations/config"
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage hub API keys",
}

var (
	apiKeyPerMinute int
	apiKeyPerHour   int
	apiKeyPerDay    int
	apiKeyExpiresIn time.Duration
)

var apiKeyGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate an API key; the plaintext is printed once and never again",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		credentials, db, err := newCredentialServiceForAPIKeyCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		input := dto.IssueAPIKeyInput{Name: args[0]}
		if apiKeyPerMinute > 0 {
			input.PerMinute = &apiKeyPerMinute
		}
		if apiKeyPerHour > 0 {
			input.PerHour = &apiKeyPerHour
		}
		if apiKeyPerDay > 0 {
			input.PerDay = &apiKeyPerDay
		}
		if apiKeyExpiresIn > 0 {
			expiresAt := time.Now().Add(apiKeyExpiresIn)
			input.ExpiresAt = &expiresAt
		}

		result, err := credentials.Issue(context.Background(), input)
		if err != nil {
			if errors.Is(err, service.ErrValidation) {
				return fmt.Errorf("invalid input: %v", err)
			}
			return err
		}

		fmt.Printf("id: %d\n", result.Key.ID)
		fmt.Printf("name: %s\n", result.Key.Name)
		fmt.Printf("prefix: %s\n", result.Key.Prefix)
		fmt.Printf("api_key: %s\n", result.Plaintext)
		fmt.Printf("rate_limits: %d/min %d/hour %d/day\n",
			result.Key.RateLimitPerMinute, result.Key.RateLimitPerHour, result.Key.RateLimitPerDay)
		if result.Key.ExpiresAt.Valid {
			fmt.Printf("expires_at: %s\n", result.Key.ExpiresAt.Time.Format(time.RFC3339))
		}
		return nil
	},
}

var apiKeyRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid api key id %q", args[0])
		}

		credentials, db, err := newCredentialServiceForAPIKeyCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := credentials.Revoke(context.Background(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return fmt.Errorf("api key %d not found", id)
			}
			return err
		}

		fmt.Printf("api key %d revoked\n", id)
		return nil
	},
}

var apiKeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API key metadata",
	RunE: func(_ *cobra.Command, _ []string) error {
		credentials, db, err := newCredentialServiceForAPIKeyCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		keys, err := credentials.List(context.Background())
		if err != nil {
			return err
		}

		for _, key := range keys {
			state := "active"
			if !key.Usable(time.Now()) {
				state = "inactive"
			}
			fmt.Printf("%d\t%s\t%s...\t%s\n", key.ID, key.Name, key.Prefix, state)
		}
		return nil
	},
}

func init() {
	apiKeyGenerateCmd.Flags().IntVar(&apiKeyPerMinute, "per-minute", 0, "requests allowed per minute (default from config)")
	apiKeyGenerateCmd.Flags().IntVar(&apiKeyPerHour, "per-hour", 0, "requests allowed per hour (default from config)")
	apiKeyGenerateCmd.Flags().IntVar(&apiKeyPerDay, "per-day", 0, "requests allowed per day (default from config)")
	apiKeyGenerateCmd.Flags().DurationVar(&apiKeyExpiresIn, "expires-in", 0, "optional key lifetime, e.g. 720h")

	apiKeyCmd.AddCommand(apiKeyGenerateCmd)
	apiKeyCmd.AddCommand(apiKeyRevokeCmd)
	apiKeyCmd.AddCommand(apiKeyListCmd)
	rootCmd.AddCommand(apiKeyCmd)
}

func newCredentialServiceForAPIKeyCommands() (*service.CredentialService, *sql.DB, error) {
	_ = godotenv.Load()

	dsn := strings.TrimSpace(os.Getenv("MYSQL_DSN"))
	if dsn == "" {
		return nil, nil, errors.New("MYSQL_DSN environment variable is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}

	defaults := config.RateLimitDefaults{PerMinute: 60, PerHour: 1000, PerDay: 10000}
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	credentials := service.NewCredentialService(apiKeyRepo, ratelimit.NewMemoryLimiter(), defaults)

	return credentials, db, nil
}
