package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/todosync/internal/migrate"
	"github.com/mschirtzinger/todosync/internal/schema"
	"github.com/mschirtzinger/todosync/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export [path]",
	GroupID: "advanced",
	Short:   "Export the cache",
	Long: `Export the cached snapshot as JSONL (one entity per line, importable) or YAML
(for reading). Without a path the export goes to stdout.

Examples:
  todosync export backup.jsonl --backup
  todosync export --format yaml | less`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		name, _ := cmd.Flags().GetString("format")
		backup, _ := cmd.Flags().GetBool("backup")
		format, err := migrate.ParseFormat(name)
		if err != nil {
			fatalf("%v", err)
		}

		a := mustOpen(ctx, appOptions{})
		defer a.close()
		snap := a.store.Read()

		if len(args) == 0 || args[0] == "-" {
			write := migrate.WriteJSONL
			if format == migrate.FormatYAML {
				write = migrate.WriteYAML
			}
			if _, err := write(os.Stdout, snap); err != nil {
				fatalf("%v", err)
			}
			return
		}

		res, err := migrate.ExportFile(args[0], snap, migrate.ExportOptions{Format: format, Backup: backup})
		if err != nil {
			fatalf("%v", err)
		}
		if res.BackupCreated != "" {
			fmt.Fprintf(os.Stderr, "Backup: %s\n", res.BackupCreated)
		}
		fmt.Printf("%s Exported %d records to %s\n", ui.RenderPass("✓"), res.Records, args[0])
	},
}

var importCmd = &cobra.Command{
	Use:     "import <path>",
	GroupID: "advanced",
	Short:   "Replace the cache with a JSONL export",
	Long: `Replace the cached snapshot with a JSONL export. The export's sync cursor is
restored too, so the next refresh continues from where the export was taken.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		snap, res, err := migrate.ImportFile(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		for _, msg := range res.Errors {
			fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderWarn("Warning:"), msg)
		}

		a := mustOpen(ctx, appOptions{})
		defer a.close()
		a.store.Replace(snap)
		if err := a.store.Persist(ctx); err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(res)
			return
		}
		fmt.Printf("%s Imported %d records (%d tasks, %d projects)\n", ui.RenderPass("✓"),
			res.Records, res.Counts[schema.KindTask], res.Counts[schema.KindProject])
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", "jsonl", "Output format (jsonl, yaml)")
	exportCmd.Flags().Bool("backup", false, "Keep a copy of an existing output file")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
