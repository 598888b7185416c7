package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/todosync/internal/config"
	"github.com/mschirtzinger/todosync/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "advanced",
	Short:   "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	Long: `Write a config file with the default settings and the given API token.

Every setting can also be set from the environment, for example
TODOSYNC_API_TOKEN or TODOSYNC_REFRESH_INTERVAL=1m.`,
	Run: func(cmd *cobra.Command, args []string) {
		token, _ := cmd.Flags().GetString("token")
		force, _ := cmd.Flags().GetBool("force")

		path := cfgFile
		if path == "" {
			path = config.Path()
		}
		if _, err := os.Stat(path); err == nil && !force {
			fatalf("%s already exists (use --force to overwrite)", path)
		}

		cfg := config.DefaultConfig()
		cfg.APIToken = token
		if err := config.Write(path, cfg); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		if token == "" {
			fmt.Printf("%s api_token is empty; set it in the file or TODOSYNC_API_TOKEN\n", ui.RenderWarn("Note:"))
		}
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(cfg.Redacted())
			return
		}
		out, err := config.Encode(cfg.Redacted())
		if err != nil {
			fatalf("%v", err)
		}
		os.Stdout.Write(out)
	},
}

func init() {
	configInitCmd.Flags().String("token", "", "API token")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
