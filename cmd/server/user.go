package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/bizadmin-auth/internal/config"
	"github.com/iliyamo/bizadmin-auth/internal/database"
	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/repository"
	"github.com/iliyamo/bizadmin-auth/internal/role"
	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

var hashCost int

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash of a password read from stdin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		hash, err := utils.HashPassword(pw, hashCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var createUser struct {
	email    string
	name     string
	tenant   string
	roles    []string
	inactive bool
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an account; the password is read from stdin",
	Args:  cobra.NoArgs,
	RunE:  runCreateUser,
}

func init() {
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", 12, "bcrypt cost")

	f := createUserCmd.Flags()
	f.StringVar(&createUser.email, "email", "", "login email (required)")
	f.StringVar(&createUser.name, "name", "", "full name")
	f.StringVar(&createUser.tenant, "tenant", "", "tenant id")
	f.StringSliceVar(&createUser.roles, "role", []string{"staff"}, "role name, repeatable")
	f.BoolVar(&createUser.inactive, "inactive", false, "create the account suspended")
	_ = createUserCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(hashPasswordCmd, createUserCmd)
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	resolver, err := role.Parse(cfg.RoleLevels)
	if err != nil {
		return fmt.Errorf("%w: ROLE_LEVELS: %v", config.ErrConfiguration, err)
	}
	for _, r := range createUser.roles {
		if !resolver.Known(r) {
			return fmt.Errorf("unknown role %q", r)
		}
	}

	pw, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(pw) < cfg.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", cfg.MinPasswordLength)
	}

	db, err := database.Open(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	id, err := repository.NewUserRepo(db).Create(cmd.Context(), model.User{
		TenantID: createUser.tenant,
		Email:    createUser.email,
		FullName: createUser.name,
		IsActive: !createUser.inactive,
		Roles:    createUser.roles,
	}, pw, cfg.BcryptCost)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %d\n", id)
	return nil
}

// readPassword takes the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("empty password on stdin")
	}
	return pw, nil
}
