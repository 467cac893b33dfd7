package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/repository"
	"github.com/iliyamo/hall-reservation/internal/service"
)

func newHallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hall",
		Short: "Manage the hall catalogue",
	}
	cmd.AddCommand(newHallAddCmd())
	return cmd
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newHallAddCmd() *cobra.Command {
	var (
		name, location, address, description string
		capacity                             uint32
		rate                                 int64
		amenities                            []string
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a hall",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			svc := service.New(repository.NewStore(db), service.WithLogger(logrus.StandardLogger()))
			h := &model.Hall{
				Name:             name,
				Location:         optional(location),
				Address:          optional(address),
				Capacity:         capacity,
				DefaultRateCents: rate,
				Description:      optional(description),
				Amenities:        amenities,
			}
			if err := svc.CreateHall(cmd.Context(), h); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created hall %q (id=%d)\n", h.Name, h.ID)
			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "hall name")
	c.Flags().StringVar(&location, "location", "", "short location label")
	c.Flags().StringVar(&address, "address", "", "street address")
	c.Flags().StringVar(&description, "description", "", "free text shown to customers")
	c.Flags().Uint32Var(&capacity, "capacity", 0, "maximum number of guests")
	c.Flags().Int64Var(&rate, "rate-cents", 0, "default price per day in cents")
	c.Flags().StringSliceVar(&amenities, "amenity", nil, "amenity label (repeatable)")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("capacity")
	_ = c.MarkFlagRequired("rate-cents")
	return c
}
