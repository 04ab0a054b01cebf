package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/fitdash/internal/database"
	"github.com/TobiSchelling/fitdash/internal/dataset"
)

var datasetsCmd = &cobra.Command{
	Use:     "datasets",
	Aliases: []string{"ds"},
	Short:   "Manage stored datasets",
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.ListDatasets()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No datasets stored. Add one with: fitdash datasets import <file>")
			return nil
		}

		fmt.Println("Datasets:")
		fmt.Println()
		for _, d := range items {
			marker := " "
			if d.IsDefault {
				marker = color.GreenString("*")
			}
			fmt.Printf("  [%s] %s %s (%s rows, %s)\n", d.ID[:8], marker, d.Name, humanize.Comma(int64(d.Rows)), d.Source)
			if d.Origin != nil && *d.Origin != "" {
				fmt.Printf("             from %s\n", *d.Origin)
			}
		}
		return nil
	},
}

var importDefault bool

var datasetsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Validate a CSV/XLSX file and store it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := dataset.LoadFile(args[0])
		if err != nil {
			printErr(err)
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		origin, err := filepath.Abs(args[0])
		if err != nil {
			origin = args[0]
		}
		d, err := db.SaveDataset(t, origin)
		if err != nil {
			return fmt.Errorf("saving dataset: %w", err)
		}
		fmt.Printf("Imported [%s] %s: %s rows, %d months\n", d.ID[:8], d.Name, humanize.Comma(int64(d.Rows)), len(t.Months()))

		if importDefault {
			if err := db.SetDefaultDataset(d.ID); err != nil {
				return err
			}
			fmt.Println("Set as default dataset.")
		}
		return nil
	},
}

var showRows int

var datasetsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print the first rows of a stored dataset as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.ResolveID(args[0])
		if err != nil {
			return err
		}
		t, err := db.GetDataset(id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("dataset %s not found", args[0])
		}

		fmt.Fprintf(os.Stderr, "%s: %d rows, months %v\n", t.Name, t.Len(), t.Months())
		if showRows > 0 {
			t = t.Head(showRows)
		}
		return dataset.EncodeCSV(os.Stdout, t)
	},
}

var datasetsDefaultCmd = &cobra.Command{
	Use:   "default [id]",
	Short: "Serve a stored dataset by default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.ResolveID(args[0])
		if err != nil {
			return err
		}
		if err := db.SetDefaultDataset(id); err != nil {
			return err
		}
		fmt.Printf("Default dataset: [%s]\n", id[:8])
		if cfg.DatasetPath() != "" {
			color.Yellow("Note: dataset.path in the config takes precedence over the stored default.")
		}
		return nil
	},
}

var datasetsClearDefaultCmd = &cobra.Command{
	Use:   "clear-default",
	Short: "Unset the default dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ClearDefaultDataset(); err != nil {
			return err
		}
		fmt.Println("Default dataset cleared.")
		return nil
	},
}

var datasetsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a stored dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.ResolveID(args[0])
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("dataset %s not found", args[0])
		}
		if err != nil {
			return err
		}
		ok, err := db.DeleteDataset(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("dataset %s not found", args[0])
		}
		fmt.Printf("Deleted [%s]\n", id[:8])
		return nil
	},
}

func init() {
	datasetsImportCmd.Flags().BoolVar(&importDefault, "default", false, "Also make it the default dataset")
	datasetsShowCmd.Flags().IntVarP(&showRows, "rows", "n", 10, "Rows to print (0 for all)")

	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsImportCmd)
	datasetsCmd.AddCommand(datasetsShowCmd)
	datasetsCmd.AddCommand(datasetsDefaultCmd)
	datasetsCmd.AddCommand(datasetsClearDefaultCmd)
	datasetsCmd.AddCommand(datasetsDeleteCmd)
}
