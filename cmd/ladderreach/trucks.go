package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/firereach/ladderreach/internal/config"
	"github.com/firereach/ladderreach/internal/truck"
	"github.com/firereach/ladderreach/pkg/core"
	"github.com/spf13/cobra"
)

var trucksCmd = &cobra.Command{
	Use:   "trucks",
	Short: "List the truck catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		formatTrucks(cmd.OutOrStdout(), catalog.All())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trucksCmd)
}

// loadCatalog returns the configured catalog, or the built-in one.
func loadCatalog() (*truck.Catalog, error) {
	path := config.GetTrucksConfig().CatalogPath
	if path == "" {
		return truck.DefaultCatalog(), nil
	}
	c, err := truck.LoadCatalogFile(path)
	if err != nil {
		return nil, fmt.Errorf("load truck catalog: %w", err)
	}
	return c, nil
}

// defaultProfile returns the configured default truck, falling back to the
// first catalog entry.
func defaultProfile(c *truck.Catalog) (core.TruckProfile, error) {
	id := config.GetTrucksConfig().Default
	if id == "" {
		return c.Default(), nil
	}
	return c.Get(id)
}

func formatTrucks(w io.Writer, profiles []core.TruckProfile) {
	if w == nil {
		w = os.Stdout
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tREACH (m)\tELEVATION (deg)\tJACK SPREAD (m)\tHEIGHT (m)")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%g-%g\t%.2f\t%.2f\n",
			p.ID, p.Label, p.LadderReach,
			p.ElevationRange.MinDeg, p.ElevationRange.MaxDeg,
			p.JackSpread, p.Height)
	}
	tw.Flush() //nolint:errcheck
}
