package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/repository"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

// newUserAddCmd is the only way to create ADMIN accounts; public
// registration always yields CUSTOMER.
func newUserAddCmd() *cobra.Command {
	var email, name, password, role string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			role = strings.ToUpper(strings.TrimSpace(role))
			if role != model.RoleAdmin && role != model.RoleCustomer {
				return fmt.Errorf("role must be %s or %s", model.RoleAdmin, model.RoleCustomer)
			}
			db, cfg, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			id, err := repository.NewUserRepo(db).Create(cmd.Context(), email, name, password, role, cfg.BcryptCost)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %q (id=%d)\n", role, email, id)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "login email")
	c.Flags().StringVar(&name, "name", "", "display name")
	c.Flags().StringVar(&password, "password", "", "password")
	c.Flags().StringVar(&role, "role", model.RoleCustomer, "ADMIN or CUSTOMER")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("password")
	return c
}
