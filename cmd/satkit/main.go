// Command satkit is a CLI for working with TLE files offline: decoding
// element sets, propagating orbits with any of the analytic models, and
// predicting ground-station passes.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/satkit/internal/passes"
	"github.com/star/satkit/internal/propagation"
	"github.com/star/satkit/internal/tle"
	"github.com/star/satkit/internal/transform"
)

var rootCmd = &cobra.Command{
	Use:   "satkit",
	Short: "satellite orbit toolkit",
	Long: `satkit decodes two-line element sets and propagates orbits with the
SGP, SGP4, SGP8, SDP4 and SDP8 analytic models.`,
	SilenceUsage: true,
}

var (
	flagNORAD   int
	flagMinutes float64
	flagModel   string
	flagECEF    bool
	flagLat     float64
	flagLon     float64
	flagAlt     float64
	flagHours   float64
	flagMinElev float64
	flagMaxPass int
	flagVerbose bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <tle-file>",
	Short: "decode a TLE file and list its element sets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := loadEntries(args[0])
		if err != nil {
			return err
		}
		for _, e := range entries {
			period := propagation.Period(e.Elements)
			regime := "near-earth"
			if period >= 225 {
				regime = "deep-space"
			}
			fmt.Printf("%-6d %-24s epoch=%s incl=%.4f° ecc=%.7f period=%.1fmin (%s)\n",
				e.NORADID, e.Name, e.Epoch.Format(time.RFC3339),
				e.Elements.Inclination*180/math.Pi,
				e.Elements.Eccentricity, period, regime)
		}
		fmt.Printf("%d element sets\n", len(entries))
		return nil
	},
}

var propagateCmd = &cobra.Command{
	Use:   "propagate <tle-file>",
	Short: "propagate one satellite to an offset from its epoch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := findEntry(args[0], flagNORAD)
		if err != nil {
			return err
		}

		var res propagation.Result
		if flagModel != "" {
			res, err = propagation.PropagateModel(entry.Elements, propagation.Model(flagModel), flagMinutes)
		} else {
			res, err = propagation.Propagate(entry.Elements, flagMinutes)
		}
		if err != nil {
			return fmt.Errorf("propagating NORAD %d: %w", entry.NORADID, err)
		}

		fmt.Printf("NORAD %d  %s  t=%+.1f min  model=%s\n", entry.NORADID, entry.Name, flagMinutes, res.Model)
		fmt.Printf("TEME  r = [%12.4f %12.4f %12.4f] km\n", res.State.X, res.State.Y, res.State.Z)
		fmt.Printf("      v = [%12.7f %12.7f %12.7f] km/s\n", res.State.VX, res.State.VY, res.State.VZ)

		if flagECEF {
			t := entry.Epoch.Add(time.Duration(flagMinutes * float64(time.Minute)))
			ecef := transform.TEMEToECEF(transform.FromState(res.State), t)
			fmt.Printf("ECEF  r = [%12.1f %12.1f %12.1f] m   (at %s)\n",
				ecef.X, ecef.Y, ecef.Z, t.Format(time.RFC3339))
			fmt.Printf("      v = [%12.3f %12.3f %12.3f] m/s\n", ecef.VX, ecef.VY, ecef.VZ)
		}
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models <tle-file>",
	Short: "compare all five models on one satellite",
	Long: `models propagates one satellite with SGP, SGP4, SGP8, SDP4 and SDP8 at the
same time offset and prints the resulting state vectors side by side.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := findEntry(args[0], flagNORAD)
		if err != nil {
			return err
		}

		fmt.Printf("NORAD %d  %s  t=%+.1f min  period=%.1f min\n",
			entry.NORADID, entry.Name, flagMinutes, propagation.Period(entry.Elements))
		fmt.Printf("%-5s %13s %13s %13s %12s %12s %12s\n", "model", "x km", "y km", "z km", "vx km/s", "vy km/s", "vz km/s")

		models := []propagation.Model{
			propagation.ModelSGP,
			propagation.ModelSGP4,
			propagation.ModelSGP8,
			propagation.ModelSDP4,
			propagation.ModelSDP8,
		}
		for _, m := range models {
			res, err := propagation.PropagateModel(entry.Elements, m, flagMinutes)
			if err != nil {
				fmt.Printf("%-5s error: %v\n", m, err)
				continue
			}
			fmt.Printf("%-5s %13.4f %13.4f %13.4f %12.7f %12.7f %12.7f\n",
				m, res.State.X, res.State.Y, res.State.Z,
				res.State.VX, res.State.VY, res.State.VZ)
		}
		return nil
	},
}

var passesCmd = &cobra.Command{
	Use:   "passes <tle-file>",
	Short: "predict visible passes over a ground station",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := loadEntries(args[0])
		if err != nil {
			return err
		}
		if flagNORAD != 0 {
			var filtered []tle.TLEEntry
			for _, e := range entries {
				if e.NORADID == flagNORAD {
					filtered = append(filtered, e)
				}
			}
			if len(filtered) == 0 {
				return fmt.Errorf("NORAD %d not found in %s", flagNORAD, args[0])
			}
			entries = filtered
		}

		obs := transform.NewObserverPosition(flagLat, flagLon, flagAlt)
		req := passes.Request{
			Observer:     obs,
			Entries:      entries,
			Start:        time.Now().UTC(),
			HorizonHours: flagHours,
			MinElevation: flagMinElev,
			MaxPasses:    flagMaxPass,
		}

		results := passes.Predict(context.Background(), req)
		total := 0
		for _, sat := range results {
			if sat.Error != "" {
				fmt.Printf("NORAD %d: error: %s\n", sat.NORADID, sat.Error)
				continue
			}
			if len(sat.Passes) == 0 && flagNORAD == 0 {
				continue
			}
			fmt.Printf("NORAD %d: %d passes\n", sat.NORADID, len(sat.Passes))
			for _, p := range sat.Passes {
				fmt.Printf("  %s  maxEl=%5.1f°  dur=%4.0fs\n",
					p.StartTime.Format("2006-01-02 15:04:05"), p.MaxElevation, p.DurationSeconds)
			}
			total += len(sat.Passes)
		}
		fmt.Printf("%d passes total\n", total)
		return nil
	},
}

func loadEntries(path string) ([]tle.TLEEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	logOut := io.Discard
	if flagVerbose {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, nil))
	entries, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

func findEntry(path string, noradID int) (tle.TLEEntry, error) {
	entries, err := loadEntries(path)
	if err != nil {
		return tle.TLEEntry{}, err
	}
	if noradID == 0 {
		if len(entries) == 0 {
			return tle.TLEEntry{}, fmt.Errorf("no element sets in %s", path)
		}
		return entries[0], nil
	}
	for _, e := range entries {
		if e.NORADID == noradID {
			return e, nil
		}
	}
	return tle.TLEEntry{}, fmt.Errorf("NORAD %d not found in %s", noradID, path)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log parse warnings to stderr")

	propagateCmd.Flags().IntVarP(&flagNORAD, "norad", "n", 0, "NORAD catalog number (default: first entry)")
	propagateCmd.Flags().Float64VarP(&flagMinutes, "minutes", "t", 0, "minutes since element set epoch")
	propagateCmd.Flags().StringVarP(&flagModel, "model", "m", "", "force model (SGP, SGP4, SGP8, SDP4, SDP8)")
	propagateCmd.Flags().BoolVar(&flagECEF, "ecef", false, "also print the ECEF state")

	modelsCmd.Flags().IntVarP(&flagNORAD, "norad", "n", 0, "NORAD catalog number (default: first entry)")
	modelsCmd.Flags().Float64VarP(&flagMinutes, "minutes", "t", 0, "minutes since element set epoch")

	passesCmd.Flags().IntVarP(&flagNORAD, "norad", "n", 0, "NORAD catalog number (default: all)")
	passesCmd.Flags().Float64Var(&flagLat, "lat", 0, "observer latitude in degrees")
	passesCmd.Flags().Float64Var(&flagLon, "lon", 0, "observer longitude in degrees")
	passesCmd.Flags().Float64Var(&flagAlt, "alt", 0, "observer altitude in meters")
	passesCmd.Flags().Float64Var(&flagHours, "hours", 24, "prediction horizon in hours")
	passesCmd.Flags().Float64Var(&flagMinElev, "min-elevation", 10, "minimum peak elevation in degrees")
	passesCmd.Flags().IntVar(&flagMaxPass, "max-passes", 20, "maximum passes per satellite")

	rootCmd.AddCommand(decodeCmd, propagateCmd, modelsCmd, passesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
