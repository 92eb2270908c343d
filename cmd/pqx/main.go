package main

import (
	"os"
	"path/filepath"
	"strings"

	"pqx/internal/cli"
)

func isParquetPath(s string) bool {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(s))) {
	case ".parquet", ".parq", ".pq":
		return true
	}
	return false
}

func rewriteDirectOpenArgs(argv []string) []string {
	// Convenience: `pqx data.parquet` works like `pqx open data.parquet`.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv before parsing.
	// Persistent flags may come first (e.g. `pqx --page-size 50 data.parquet`), so look for the
	// first positional token, not just argv[1].
	if len(argv) < 2 {
		return argv
	}

	// Unknown flags are skipped without consuming a value so the path is never swallowed.
	valueFlags := map[string]bool{
		"--page-size": true,
		"--format":    true,
	}
	boolFlags := map[string]bool{
		"--pretty":  true,
		"--verbose": true,
		"--backup":  true,
		"-v":        true,
	}

	insertOpen := func(i int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "open")
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			// `pqx -- -odd-name.parquet` keeps the dash after the subcommand.
			if i+1 < len(argv) && isParquetPath(argv[i+1]) {
				return insertOpen(i)
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") {
				continue
			}
			if boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
				continue
			}
			continue
		}

		if isParquetPath(a) {
			return insertOpen(i)
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteDirectOpenArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
