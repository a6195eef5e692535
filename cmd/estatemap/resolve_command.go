package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"estatemap/internal/models"
)

type resolveOutput struct {
	Name     string                 `json:"name"`
	District string                 `json:"district,omitempty"`
	Place    *models.Place          `json:"place"`
	Building *models.EstateBuilding `json:"building,omitempty"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "resolve <name> [district]",
		Short: "Resolve one estate or building name to a place",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := resolveOutput{Name: args[0]}
			if len(args) == 2 {
				out.District = args[1]
			}

			a, err := newApp(cmd.Context(), ctx.cfg, ctx.logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			out.Place, err = a.resolver.Resolve(cmd.Context(), out.Name, out.District)
			if err != nil {
				return err
			}
			if out.Place == nil {
				return fmt.Errorf("no place found for %q", out.Name)
			}

			if create {
				out.Building, err = a.buildings.GetOrCreate(cmd.Context(), out.Place)
			} else {
				out.Building, err = a.buildings.GetByPlaceID(cmd.Context(), out.Place.ID)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().BoolVar(&create, "create", false, "Create the estate building when it does not exist")
	return cmd
}
