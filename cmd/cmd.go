// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// setupCommand prepares the config file, upload directory and ledger.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file, upload directory and database",
		Action: r.Setup,
		Commands: []*cli.Command{
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// serveCommand runs the HTTP service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the OAuth, picker and media HTTP service",
		Action: r.Serve,
	}
}

// authCommand handles linking the Google account.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Google account authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize familybook in the browser and store the token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "redirect-uri",
						Usage: "Loopback callback URL (defaults to google.redirect_uri)",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the callback",
						Value: 2 * time.Minute,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the consent URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the stored credential",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// pickerCommand handles Google Photos picker sessions.
func pickerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "picker",
		Usage: "Google Photos picker sessions",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Open a picker session, wait for a selection and import it",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Minimum time between polls (defaults to picker.poll_interval_seconds)",
					},
					&cli.DurationFlag{
						Name:  "budget",
						Usage: "Total time to wait for a selection (defaults to picker.poll_budget_seconds)",
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the picker URL instead of opening a browser",
					},
					&cli.BoolFlag{
						Name:  "plain",
						Usage: "Log progress instead of running the interactive UI",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the import result as JSON (implies --plain)",
					},
					&cli.StringFlag{
						Name:  "log-file",
						Usage: "Where the interactive UI writes logs",
						Value: "./tmp/familybook-tui.log",
					},
				},
				Action: r.PickerImport,
			},
		},
	}
}

// mediaCommand handles imported media.
func mediaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "media",
		Usage: "Imported media",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show counts and sizes of imported media",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Usage: "Where to read totals from: storage or ledger",
						Value: "storage",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MediaStats,
			},
			{
				Name:  "list",
				Usage: "List or export the import ledger",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only list image or video",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of rows (0 for all)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv, markdown or json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the export to a file",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Write the export to familybook_media.{ext} when --output is not set",
					},
				},
				Action: r.MediaList,
			},
		},
	}
}
