package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hyesung/opsbundle/internal/config"
	"github.com/hyesung/opsbundle/internal/errors"
	"github.com/hyesung/opsbundle/internal/ops"
	"github.com/hyesung/opsbundle/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, datasets config.Datasets, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "opsbundle",
		Usage:   "Troubleshooting bundle store",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(db, cfg, datasets, baseDir),
			storeCmd(db),
			fetchCmd(db),
			listCmd(db, cfg),
			searchCmd(db),
			deleteCmd(db),
			exportCmd(db, baseDir),
			importCmd(db),
			datasetsCmd(datasets),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd starts the web UI.
func serveCmd(db *sql.DB, cfg *config.Config, datasets config.Datasets, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8377, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, cfg, datasets, baseDir, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// storeCmd creates a bundle, reading the command list from stdin.
func storeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Create a bundle (reads commands from stdin, one per line)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Required: true, Usage: "Dataset id"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Bundle name"},
			&cli.StringFlag{Name: "part", Usage: "Grouping label"},
			&cli.StringFlag{Name: "description", Usage: "What the bundle is for"},
			&cli.StringFlag{Name: "keywords", Aliases: []string{"k"}, Usage: "Comma-separated keywords"},
			&cli.StringFlag{Name: "expected-outcome", Usage: "What running the bundle should produce"},
			&cli.StringFlag{Name: "interpretation", Usage: "How to read the results"},
			&cli.StringFlag{Name: "updated-date", Usage: "Date in 2006-01-02 form; defaults to today"},
			&cli.StringFlag{Name: "todo", Usage: "Open follow-ups"},
		},
		Action: func(c *cli.Context) error {
			commandText := ""
			if stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewStorage(err))
				}
				commandText = text
			}

			output, err := ops.Create(db, ops.CreateInput{
				Dataset: c.String("dataset"),
				Fields: ops.BundleFields{
					Part:            c.String("part"),
					BundleName:      c.String("name"),
					CommandText:     commandText,
					Description:     c.String("description"),
					Keywords:        c.String("keywords"),
					ExpectedOutcome: c.String("expected-outcome"),
					Interpretation:  c.String("interpretation"),
					UpdatedDate:     c.String("updated-date"),
					Todo:            c.String("todo"),
				},
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// fetchCmd fetches one bundle with memos and links.
func fetchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a bundle by id",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Required: true, Usage: "Dataset id"},
			&cli.BoolFlag{Name: "links", Usage: "Include link entries"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(db, ops.FetchInput{
				Dataset:      c.String("dataset"),
				ID:           c.Args().First(),
				IncludeLinks: c.Bool("links"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd lists every bundle in a dataset.
func listCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List bundles, most recently updated first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Required: true, Usage: "Dataset id"},
			&cli.BoolFlag{Name: "keywords", Usage: "Include keyword candidates"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{Dataset: c.String("dataset")}
			if c.Bool("keywords") {
				input.KeywordLimit = cfg.KeywordLimit
			}

			output, err := ops.List(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// searchCmd filters bundles by name and keyword.
func searchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search bundles by name or keyword substring",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Required: true, Usage: "Dataset id"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Substring of the bundle name"},
			&cli.StringFlag{Name: "keyword", Aliases: []string{"k"}, Usage: "Substring of any keyword"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(db, ops.SearchInput{
				Dataset: c.String("dataset"),
				Name:    c.String("name"),
				Keyword: c.String("keyword"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// deleteCmd deletes a bundle and its memos.
func deleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a bundle",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Required: true, Usage: "Dataset id"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(db, ops.DeleteInput{
				Dataset: c.String("dataset"),
				ID:      c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// exportCmd writes a dataset's CSV export.
func exportCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a dataset to CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Required: true, Usage: "Dataset id"},
			&cli.StringFlag{Name: "kind", Value: "main", Usage: "Export kind: main|memos|links"},
			&cli.StringFlag{Name: "path", Aliases: []string{"o"}, Usage: "Output path (default: exports dir)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(db, ops.ExportInput{
				Dataset: c.String("dataset"),
				Kind:    ops.ExportKind(c.String("kind")),
				Path:    c.String("path"),
				BaseDir: baseDir,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd reads a CSV export back into a dataset.
func importCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a CSV export file",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Required: true, Usage: "Dataset id"},
			&cli.StringFlag{Name: "kind", Value: "main", Usage: "Import kind: main|memos|links"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(db, ops.ImportInput{
				Dataset: c.String("dataset"),
				Kind:    ops.ExportKind(c.String("kind")),
				Path:    c.Args().First(),
				Mode:    ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// datasetsCmd prints the configured datasets.
func datasetsCmd(datasets config.Datasets) *cli.Command {
	return &cli.Command{
		Name:  "datasets",
		Usage: "List configured datasets",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]any{"datasets": datasets})
		},
	}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if appErr, ok := err.(*errors.Error); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
