package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/daybook/internal"
	"github.com/starford/daybook/internal/daterange"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/tagindex"
)

// withJournal opens the configured journal, logging to stderr so command
// output on stdout stays clean.
func withJournal(ctx context.Context, cmd *cli.Command, fn func(*internal.Journal) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	j, err := internal.OpenJournal(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	defer j.Close()
	return fn(j)
}

func parseDay(s string) (time.Time, error) {
	d, err := time.Parse(daterange.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want yyyy.MM.dd", s)
	}
	return d, nil
}

func filterFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "Range start (yyyy.MM.dd)"},
		&cli.StringFlag{Name: "to", Usage: "Range end (yyyy.MM.dd)"},
		&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag to select (repeatable)"},
		&cli.StringFlag{Name: "mode", Value: "any", Usage: "Tag match mode: any or all"},
	}, extra...)
}

func filterFromFlags(cmd *cli.Command) (tagindex.Filter, error) {
	var f tagindex.Filter
	mode, err := tagindex.ParseMode(cmd.String("mode"))
	if err != nil {
		return f, err
	}
	f.Mode = mode
	f.Tags = cmd.StringSlice("tag")

	from, to := cmd.String("from"), cmd.String("to")
	if from == "" && to == "" {
		return f, nil
	}
	if from == "" || to == "" {
		return f, fmt.Errorf("--from and --to must be given together")
	}
	fd, err := parseDay(from)
	if err != nil {
		return f, err
	}
	td, err := parseDay(to)
	if err != nil {
		return f, err
	}
	r, err := daterange.New(fd, td)
	if err != nil {
		return f, err
	}
	f.Range = &r
	return f, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Append paragraphs to a day's entry, creating it when missing",
		ArgsUsage: "<paragraph>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Entry date (yyyy.MM.dd), defaults to today"},
			&cli.StringFlag{Name: "header", Usage: "Header to append under, defaults to the date header"},
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag to add (repeatable)"},
			&cli.StringFlag{Name: "readme", Aliases: []string{"r"}, Usage: "Reminder: M/d/yyyy or a duration such as '2 weeks'"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req := journal.AppendRequest{
				Header: cmd.String("header"),
				Lines:  cmd.Args().Slice(),
				Tags:   cmd.StringSlice("tag"),
				Readme: cmd.String("readme"),
			}
			if s := cmd.String("date"); s != "" {
				d, err := parseDay(s)
				if err != nil {
					return err
				}
				req.Date = d
			}
			return withJournal(ctx, cmd, func(j *internal.Journal) error {
				e, err := j.Service.AppendEntry(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, e.Path)
				return nil
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete the entry of a day",
		ArgsUsage: "<yyyy.MM.dd>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("delete: expected one date argument")
			}
			d, err := parseDay(cmd.Args().First())
			if err != nil {
				return err
			}
			return withJournal(ctx, cmd, func(j *internal.Journal) error {
				p, err := j.Service.DeleteEntry(ctx, d)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, p)
				return nil
			})
		},
	}
}

func moveCommand() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "Move an entry to another day",
		ArgsUsage: "<from yyyy.MM.dd> <to yyyy.MM.dd>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("move: expected <from> <to>")
			}
			from, err := parseDay(cmd.Args().Get(0))
			if err != nil {
				return err
			}
			to, err := parseDay(cmd.Args().Get(1))
			if err != nil {
				return err
			}
			return withJournal(ctx, cmd, func(j *internal.Journal) error {
				e, err := j.Service.MoveEntry(ctx, from, to)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, e.Path)
				return nil
			})
		},
	}
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List tags with the entries carrying them",
		Flags: filterFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			return withJournal(ctx, cmd, func(j *internal.Journal) error {
				ix, err := j.Service.Index(ctx, f)
				if err != nil {
					return err
				}
				w := cmd.Root().Writer
				for _, b := range ix.Select(f.Tags) {
					fmt.Fprintf(w, "%s (%d)\n", b.Tag, len(b.Entries))
					for _, e := range b.Entries {
						fmt.Fprintf(w, "  %s\n", e.Name)
					}
				}
				return nil
			})
		},
	}
}

func renameTagCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename-tag",
		Usage:     "Rename a tag in every entry that carries it",
		ArgsUsage: "<old> [new]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Only list the entries that would change"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			oldTag, newTag := cmd.Args().Get(0), cmd.Args().Get(1)
			dryRun := cmd.Bool("dry-run")
			if oldTag == "" || (newTag == "" && !dryRun) {
				return fmt.Errorf("usage: rename-tag <old> <new> (or --dry-run <old>)")
			}
			return withJournal(ctx, cmd, func(j *internal.Journal) error {
				var (
					paths []string
					err   error
				)
				if dryRun {
					paths, err = j.Service.RenameTagDryRun(ctx, oldTag)
				} else {
					paths, err = j.Service.RenameTag(ctx, oldTag, newTag)
				}
				w := cmd.Root().Writer
				for _, p := range paths {
					fmt.Fprintln(w, p)
				}
				return err
			})
		},
	}
}

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:  "compile",
		Usage: "Merge the selected entries into one document",
		Flags: filterFlags(
			&cli.BoolFlag{Name: "overwrite", Usage: "Replace an existing compiled document"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			return withJournal(ctx, cmd, func(j *internal.Journal) error {
				p, err := j.Service.CompileFiltered(ctx, f, cmd.Bool("overwrite"))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, p)
				return nil
			})
		},
	}
}

func readmesCommand() *cli.Command {
	return &cli.Command{
		Name:  "readmes",
		Usage: "List entries whose reminders are due",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include reminders that are not yet due"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withJournal(ctx, cmd, func(j *internal.Journal) error {
				views, err := j.Service.Readmes(ctx, cmd.Bool("all"))
				if err != nil {
					return err
				}
				w := cmd.Root().Writer
				for _, v := range views {
					fmt.Fprintf(w, "%-10s  %s\n", v.Readme, v.Name)
				}
				return nil
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search through the entry catalog",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum results"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			if query == "" {
				return fmt.Errorf("usage: search <query>")
			}
			return withJournal(ctx, cmd, func(j *internal.Journal) error {
				results, err := j.DB.Search(query, int(cmd.Int("limit")))
				if err != nil {
					return err
				}
				w := cmd.Root().Writer
				for _, r := range results {
					fmt.Fprintf(w, "%s  %s\n", r.Name, strings.Join(strings.Fields(r.Snippet), " "))
				}
				return nil
			})
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Rebuild the entry catalog from the journal files",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			stats, err := internal.Sync(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.Root().Writer, "indexed %d, removed %d, unchanged %d\n",
				stats.Indexed, stats.Removed, stats.Unchanged)
			return err
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve journal tools over MCP stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.RunMCP(ctx, internal.WithConfig(cfg))
		},
	}
}
