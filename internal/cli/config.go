package cli

import (
	"fmt"
	"strconv"
	"strings"

	"pqx/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings in ~/.pqx/config.json",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, _ := store.ConfigPath()
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"path":        path,
					"pageSize":    cfg.PageSize(),
					"pageSizes":   cfg.PageSizeChoices(),
					"theme":       themeOrDefault(cfg.Theme),
					"recentFiles": cfg.RecentFiles,
				},
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting (page-size, page-sizes, theme)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := setConfigKey(cfg, args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SaveConfig(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"key": args[0], "value": args[1]}})
		},
	})
	return cmd
}

func themeOrDefault(s string) string {
	if s == "" {
		return "auto"
	}
	return s
}

func setConfigKey(cfg *store.GlobalConfig, key, value string) error {
	switch key {
	case "page-size":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("page-size must be a positive integer; got %q", value)
		}
		cfg.DefaultPageSize = n
	case "page-sizes":
		var sizes []int
		for _, part := range strings.Split(value, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n <= 0 {
				return fmt.Errorf("page-sizes must be positive integers; got %q", part)
			}
			sizes = append(sizes, n)
		}
		cfg.PageSizes = sizes
	case "theme":
		switch value {
		case "auto", "light", "dark":
			cfg.Theme = value
		default:
			return fmt.Errorf("theme must be auto|light|dark; got %q", value)
		}
	default:
		return fmt.Errorf("unknown key %q (want page-size|page-sizes|theme)", key)
	}
	return nil
}
