package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/starford/notas/internal"
	"github.com/starford/notas/internal/models"
)

// withApp opens the core with logs on stderr, runs fn and closes it.
func withApp(ctx context.Context, cmd *cli.Command, fn func(*internal.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	app, err := internal.Open(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithVersion(version),
	)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

// withSession is withApp for commands that act on the signed-in account.
func withSession(ctx context.Context, cmd *cli.Command, fn func(*internal.App, models.Session) error) error {
	return withApp(ctx, cmd, func(app *internal.App) error {
		s, err := app.Directory.Resolve(ctx)
		if err != nil {
			return err
		}
		return fn(app, s)
	})
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "username",
			Aliases:  []string{"u"},
			Usage:    "Account name",
			Required: true,
			Sources:  cli.EnvVars("NOTAS_USERNAME"),
		},
		&cli.StringFlag{
			Name:     "password",
			Aliases:  []string{"p"},
			Usage:    "Account password",
			Required: true,
			Sources:  cli.EnvVars("NOTAS_PASSWORD"),
		},
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account",
		Flags: credentialFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(app *internal.App) error {
				username := cmd.String("username")
				if err := app.Directory.Register(ctx, username, cmd.String("password")); err != nil {
					return err
				}
				fmt.Printf("registered %s\n", username)
				return nil
			})
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in; later commands act on this account",
		Flags: credentialFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(app *internal.App) error {
				s, err := app.Directory.Login(ctx, cmd.String("username"), cmd.String("password"))
				if err != nil {
					return err
				}
				fmt.Printf("signed in as %s\n", s.Username)
				return nil
			})
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(app *internal.App) error {
				return app.Directory.Logout(ctx)
			})
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Print the signed-in account",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, func(_ *internal.App, s models.Session) error {
				fmt.Println(s.Username)
				return nil
			})
		},
	}
}

func noteFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Note title", Required: required},
		&cli.StringFlag{Name: "content", Aliases: []string{"m"}, Usage: "Note body", Required: required},
	}
}

func noteID(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", fmt.Errorf("note id argument is required")
	}
	return id, nil
}

func notesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "Manage the signed-in account's notes",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notes, optionally filtered by title",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Case-insensitive title filter"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(app *internal.App, s models.Session) error {
						found, err := app.Notes.Search(ctx, s, cmd.String("query"))
						if err != nil {
							return err
						}
						st, err := app.Notes.Stats(ctx, s)
						if err != nil {
							return err
						}
						printNotes(os.Stdout, found, st)
						return nil
					})
				},
			},
			{
				Name:  "add",
				Usage: "Create a note",
				Flags: noteFlags(true),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(app *internal.App, s models.Session) error {
						n, err := app.Notes.Create(ctx, s, cmd.String("title"), cmd.String("content"))
						if err != nil {
							return err
						}
						fmt.Println(n.ID)
						return nil
					})
				},
			},
			{
				Name:      "edit",
				Usage:     "Change a note's title and content",
				ArgsUsage: "<id>",
				Flags:     noteFlags(false),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := noteID(cmd)
					if err != nil {
						return err
					}
					return withSession(ctx, cmd, func(app *internal.App, s models.Session) error {
						cur, err := app.Notes.Get(ctx, s, id)
						if err != nil {
							return err
						}
						// Unset flags keep the current value, like a pre-filled edit form.
						title, content := cur.Title, cur.Content
						if cmd.IsSet("title") {
							title = cmd.String("title")
						}
						if cmd.IsSet("content") {
							content = cmd.String("content")
						}
						_, err = app.Notes.Update(ctx, s, id, title, content)
						return err
					})
				},
			},
			{
				Name:      "toggle",
				Usage:     "Mark a note completed or pending",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := noteID(cmd)
					if err != nil {
						return err
					}
					return withSession(ctx, cmd, func(app *internal.App, s models.Session) error {
						n, err := app.Notes.ToggleComplete(ctx, s, id)
						if err != nil {
							return err
						}
						fmt.Println(status(n))
						return nil
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a note",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := noteID(cmd)
					if err != nil {
						return err
					}
					return withSession(ctx, cmd, func(app *internal.App, s models.Session) error {
						n, err := app.Notes.Get(ctx, s, id)
						if err != nil {
							return err
						}
						if !cmd.Bool("yes") && !confirm(os.Stdin, os.Stdout, fmt.Sprintf("Delete %q?", n.Title)) {
							fmt.Println("cancelled")
							return nil
						}
						return app.Notes.Delete(ctx, s, id)
					})
				},
			},
			{
				Name:  "stats",
				Usage: "Count all, completed and pending notes",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(app *internal.App, s models.Session) error {
						st, err := app.Notes.Stats(ctx, s)
						if err != nil {
							return err
						}
						fmt.Printf("total %d, completed %d, pending %d\n", st.Total, st.Completed, st.Pending)
						return nil
					})
				},
			},
		},
	}
}

func dirFlag() cli.Flag {
	return &cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Markdown directory", Required: true}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the signed-in account's notes as Markdown files",
		Flags: []cli.Flag{dirFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(app *internal.App) error {
				n, err := app.Export(ctx, cmd.String("dir"))
				if err != nil {
					return err
				}
				fmt.Printf("exported %d notes\n", n)
				return nil
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Create notes from Markdown files",
		Flags: []cli.Flag{dirFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(app *internal.App) error {
				rep, err := app.Import(ctx, cmd.String("dir"))
				if err != nil {
					return err
				}
				for _, s := range rep.Skipped {
					fmt.Printf("skipped %s: %s\n", s.File, s.Reason)
				}
				fmt.Printf("imported %d notes\n", rep.Created)
				return nil
			})
		},
	}
}

func status(n models.Note) string {
	if n.Completed {
		return "done"
	}
	return "pending"
}

func printNotes(w io.Writer, notes []models.Note, st models.Stats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE")
	for _, n := range notes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.ID, status(n), n.Title)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\ntotal %d, completed %d, pending %d\n", st.Total, st.Completed, st.Pending)
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
