package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/othalahq/othala/internal/tagsvc"
)

// confirm gates destructive operations. The --yes flag answers yes;
// a non-interactive stdin refuses instead of hanging on a prompt.
func confirm(cmd *cli.Command, prompt string) error {
	if cmd.Bool("yes") {
		return nil
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("stdin is not a terminal; pass --yes to proceed")
	}

	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	}
	return fmt.Errorf("aborted")
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip confirmation prompts",
	}
}

// splitList parses a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Scan the vault for tags missing from the vocabulary",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "apply",
				Usage: "Adopt the results: merge adds discovered tags, replace rebuilds the vocabulary from tags in use",
			},
			yesFlag(),
		},
		Action: runScan,
	}
}

func runScan(ctx context.Context, cmd *cli.Command) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.Svc.Scan(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("scanned %d documents", res.Scanned)
	if res.Failed > 0 {
		fmt.Printf(" (%d unreadable)", res.Failed)
	}
	fmt.Println()

	if len(res.Discovered) == 0 {
		fmt.Println("no unknown tags found")
	} else {
		fmt.Printf("discovered %d tags:\n", len(res.Discovered))
		for _, tag := range res.Discovered {
			fmt.Printf("  %s\n", tag)
		}
	}

	switch mode := cmd.String("apply"); mode {
	case "":
		return nil

	case tagsvc.ApplyMerge:
		out, err := env.Svc.ApplyScan(ctx, tagsvc.ApplyMerge, res.Discovered)
		if err != nil {
			return err
		}
		fmt.Printf("adopted %d tags, vocabulary now has %d\n", out.Added, out.Total)
		return nil

	case tagsvc.ApplyReplace:
		// The replacement set is every vocabulary tag still in use plus
		// the discovered ones, so a rebuild prunes dead tags without
		// losing adopted ones.
		counts, err := env.Svc.ListTags(ctx, "", "")
		if err != nil {
			return err
		}
		var keep []string
		for _, tc := range counts {
			if tc.Count > 0 {
				keep = append(keep, tc.Name)
			}
		}
		keep = append(keep, res.Discovered...)

		if err := confirm(cmd, fmt.Sprintf("Rebuild the vocabulary from the %d tags in use, dropping unused ones?", len(keep))); err != nil {
			return err
		}
		out, err := env.Svc.ApplyScan(ctx, tagsvc.ApplyReplace, keep)
		if err != nil {
			return err
		}
		fmt.Printf("vocabulary rebuilt with %d tags\n", out.Total)
		return nil

	default:
		return fmt.Errorf("unknown apply mode %q (merge or replace)", mode)
	}
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Manage the tag vocabulary",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List vocabulary tags with usage counts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Substring filter"},
					&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Usage: "Sort order: name, count, or relevance"},
				},
				Action: runTagsList,
			},
			{
				Name:      "add",
				Usage:     "Add a tag to the vocabulary",
				ArgsUsage: "NAME",
				Action:    runTagsAdd,
			},
			{
				Name:      "rename",
				Usage:     "Rename a tag and rewrite every note that uses it",
				ArgsUsage: "OLD NEW",
				Flags:     []cli.Flag{yesFlag()},
				Action:    runTagsRename,
			},
			{
				Name:      "rm",
				Usage:     "Delete a tag and strip it from every note that uses it",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{yesFlag()},
				Action:    runTagsRemove,
			},
		},
	}
}

func runTagsList(ctx context.Context, cmd *cli.Command) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	tags, err := env.Svc.ListTags(ctx, cmd.String("query"), cmd.String("sort"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, tc := range tags {
		fmt.Fprintf(w, "%s\t%d\n", tc.Name, tc.Count)
	}
	return w.Flush()
}

func runTagsAdd(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: othala tags add NAME")
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	tag, err := env.Svc.AddTag(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	fmt.Printf("added: %s\n", tag)
	return nil
}

func runTagsRename(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: othala tags rename OLD NEW")
	}
	oldName, newName := cmd.Args().Get(0), cmd.Args().Get(1)

	if err := confirm(cmd, fmt.Sprintf("Rename %q and rewrite every note that uses it?", oldName)); err != nil {
		return err
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	renamed, out, err := env.Svc.RenameTag(ctx, oldName, newName)
	if err != nil {
		return err
	}
	fmt.Printf("renamed to %s, %d notes rewritten\n", renamed, out.Modified)
	for _, path := range out.Failed {
		fmt.Fprintf(os.Stderr, "failed to rewrite %s\n", path)
	}
	return nil
}

func runTagsRemove(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: othala tags rm NAME")
	}
	name := cmd.Args().First()

	if err := confirm(cmd, fmt.Sprintf("Delete %q and strip it from every note that uses it?", name)); err != nil {
		return err
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	out, err := env.Svc.DeleteTag(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("deleted, %d notes rewritten\n", out.Modified)
	for _, path := range out.Failed {
		fmt.Fprintf(os.Stderr, "failed to rewrite %s\n", path)
	}
	return nil
}

func noteCommand() *cli.Command {
	return &cli.Command{
		Name:      "note",
		Usage:     "Create a reference note for a vault image",
		ArgsUsage: "IMAGE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author credit"},
			&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "notes", Aliases: []string{"n"}, Usage: "Free-form text for the Notes section"},
		},
		Action: runNote,
	}
}

func runNote(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: othala note IMAGE")
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	detail, err := env.Svc.CreateImageNote(ctx, tagsvc.NoteRequest{
		Image:  cmd.Args().First(),
		Author: cmd.String("author"),
		Tags:   splitList(cmd.String("tags")),
		Notes:  cmd.String("notes"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("created: %s\n", detail.Path)
	return nil
}

func imagesCommand() *cli.Command {
	return &cli.Command{
		Name:   "images",
		Usage:  "List vault images and their tagging state",
		Action: runImages,
	}
}

func runImages(ctx context.Context, cmd *cli.Command) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	images, err := env.Svc.ListImages(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, img := range images {
		state := "untagged"
		if img.Tagged {
			state = fmt.Sprintf("%d note(s)", len(img.Notes))
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", img.Path, img.Size, state)
	}
	return w.Flush()
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Inspect or reset the persisted vocabulary settings",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the current settings as YAML",
				Action: runSettingsShow,
			},
			{
				Name:   "reset",
				Usage:  "Restore the built-in vocabulary and settings",
				Flags:  []cli.Flag{yesFlag()},
				Action: runSettingsReset,
			},
		},
	}
}

func runSettingsShow(ctx context.Context, cmd *cli.Command) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	out, err := yaml.Marshal(env.Svc.Settings(ctx))
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func runSettingsReset(ctx context.Context, cmd *cli.Command) error {
	if err := confirm(cmd, "Reset the vocabulary and settings to the built-in defaults?"); err != nil {
		return err
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	st, err := env.Svc.ResetSettings(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("settings reset, vocabulary has %d tags\n", len(st.Tags))
	return nil
}
