package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/repository"
	"github.com/iliyamo/hall-reservation/internal/service"
)

// newSeedCmd regenerates a hall's calendar on behalf of an existing
// admin account, so the same authorization applies as over HTTP.
func newSeedCmd() *cobra.Command {
	var (
		hallID uint64
		days   int
		admin  string
	)

	c := &cobra.Command{
		Use:   "seed",
		Short: "Generate availability for the next days of a hall",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, _, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := repository.NewUserRepo(db).GetByEmail(ctx, admin)
			if err != nil {
				return fmt.Errorf("look up %q: %w", admin, err)
			}
			caller := model.Caller{UserID: u.ID, Role: u.Role}

			svc := service.New(repository.NewStore(db), service.WithLogger(logrus.StandardLogger()))
			out, err := svc.SeedAvailability(ctx, caller, hallID, days)
			if err != nil {
				return err
			}
			open := 0
			for _, d := range out {
				if d.Available {
					open++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hall %d: seeded %d days, %d available\n", hallID, len(out), open)
			return nil
		},
	}

	c.Flags().Uint64Var(&hallID, "hall", 0, "hall id")
	c.Flags().IntVar(&days, "days", 60, "number of days starting today")
	c.Flags().StringVar(&admin, "admin", "", "email of the admin account to act as")
	_ = c.MarkFlagRequired("hall")
	_ = c.MarkFlagRequired("admin")
	return c
}
