package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

func createAdminCmd(load loader) *cobra.Command {
	var username, email, password, organization string
	var super bool

	cmd := &cobra.Command{
		Use:   "createadmin",
		Short: "Create an admin account",
		Long: `Create an admin account. Without --password a random one is
generated and printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog, err := load()
			if err != nil {
				return err
			}
			defer closeLog()

			ctx := cmd.Context()
			database, err := openDatabase(ctx, cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			generated := password == ""
			if generated {
				if password, err = generatePassword(16); err != nil {
					return fmt.Errorf("generating password: %w", err)
				}
			}

			role := model.RoleAdmin
			if super {
				role = model.RoleSuperAdmin
			}
			u, err := createAdmin(ctx, database, username, email, password, organization, role)
			if err != nil {
				return err
			}

			fmt.Printf("Created %s %q (id %d).\n", u.Role, u.Username, u.ID)
			if generated {
				fmt.Printf("  Password: %s\n", password)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "login name (required)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (generated when empty)")
	cmd.Flags().StringVar(&organization, "organization", "", "organization, created if missing")
	cmd.Flags().BoolVar(&super, "super", false, "grant the super admin role")
	cmd.MarkFlagRequired("username")
	return cmd
}

// createAdmin validates and stores an elevated account.
func createAdmin(ctx context.Context, database *sql.DB, username, email, password, organization, role string) (*model.User, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, err
	}

	var orgID *int64
	if organization != "" {
		org, err := store.GetOrCreateOrganization(ctx, database, organization)
		if err != nil {
			return nil, err
		}
		orgID = &org.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u, err := store.CreateUser(ctx, database, username, email, string(hash), role, orgID)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", role, err)
	}
	slog.Info("user created", "user", "cli", "username", u.Username, "role", u.Role)
	return u, nil
}

// printInitResult prints the first-run account to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database initialized: %s\n", dbPath)
	fmt.Println()
	fmt.Println("Super admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password; it cannot be recovered.")
	fmt.Println("It can be changed after logging in.")
	fmt.Println()
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
