// cmd/seed.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/das-group/HOSIT/internal/observability"
	"github.com/das-group/HOSIT/internal/seed"
)

func newSeedCmd() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Shows or renews the remembered session seed",
	}

	seedCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Prints the stored seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			store, err := seed.NewStore(cfg.Seed().Path)
			if err != nil {
				return err
			}
			stored, ok, err := store.Load()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no seed stored at %s", store.Path())
			}
			cmd.Println(stored)
			return nil
		},
	})

	newCmd := &cobra.Command{
		Use:   "new [seed]",
		Short: "Stores a seed, drawn from the feed file when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			explicit := ""
			if len(args) == 1 {
				explicit = args[0]
			}
			cfg.SetSeedReuse(false)
			fresh, err := bootstrapSeed(cmd.Context(), cfg, explicit, observability.GetLogger())
			if err != nil {
				return err
			}
			if fresh == "" {
				return fmt.Errorf("no seed generated; set querygen.feed_file or pass a seed")
			}
			cmd.Println(fresh)
			return nil
		},
	}
	seedCmd.AddCommand(newCmd)
	return seedCmd
}
