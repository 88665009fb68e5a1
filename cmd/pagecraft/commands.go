/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"pagecraft/internal/cli"
	"pagecraft/internal/config"
	"pagecraft/internal/domain"
	"pagecraft/internal/storage"
	"pagecraft/internal/version"
)

// System clipboard access, swapped out in tests.
var (
	clipboardWrite = clipboard.WriteAll
	clipboardRead  = clipboard.ReadAll
)

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pagecraft", version.String())
		},
	}
}

// settingRow is one effective setting as shown by "pagecraft config".
type settingRow struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value" yaml:"value"`
	Source string `json:"source" yaml:"source"`
}

func (a *app) settings() []settingRow {
	c := a.cfg
	rows := []settingRow{
		{Key: "general.theme", Value: c.General.Theme},
		{Key: "editor.history_limit", Value: fmt.Sprint(c.Editor.HistoryLimit)},
		{Key: "editor.max_html_chars", Value: fmt.Sprint(c.Editor.MaxHTMLChars)},
		{Key: "editor.max_depth", Value: fmt.Sprint(c.Editor.MaxDepth)},
		{Key: "editor.max_nodes", Value: fmt.Sprint(c.Editor.MaxNodes)},
		{Key: "editor.id_strategy", Value: c.Editor.IDStrategy},
		{Key: "editor.id_prefix", Value: c.Editor.IDPrefix},
		{Key: "storage.backend", Value: c.Storage.Backend},
		{Key: "storage.path", Value: c.Storage.Path},
		{Key: "logging.level", Value: c.Logging.Level},
		{Key: "logging.format", Value: c.Logging.Format},
		{Key: "logging.source", Value: fmt.Sprint(c.Logging.Source)},
		{Key: "logging.file", Value: c.Logging.File},
	}
	for i := range rows {
		rows[i].Source = "config"
		if env, ok := config.EnvOverrideFor(rows[i].Key); ok {
			rows[i].Source = env
		}
	}
	return rows
}

func (a *app) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration and where each value comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := a.settings()
			if cli.OutputFormat(a.output) != cli.FormatText {
				return cli.OutputResults(cmd.OutOrStdout(), a.output, rows)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Key, r.Value, r.Source)
			}
			return tw.Flush()
		},
	}
}

func (a *app) kindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the component kinds that can be added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds := a.reg.List()
			if cli.OutputFormat(a.output) == cli.FormatText {
				return cli.KindsTable(cmd.OutOrStdout(), kinds)
			}
			return cli.OutputResults(cmd.OutOrStdout(), a.output, kinds)
		},
	}
}

func (a *app) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the canvas element tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if cli.OutputFormat(a.output) == cli.FormatText {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTree(store.Elements()))
				return err
			}
			return cli.OutputResults(cmd.OutOrStdout(), a.output, store.Document())
		},
	}
}

func (a *app) addCommand() *cobra.Command {
	var (
		parent string
		index  int
		props  []string
		style  []string
	)
	cmd := &cobra.Command{
		Use:   "add <type>",
		Short: "Add an element of the given kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.ParseAssignments(props)
			if err != nil {
				return err
			}
			st, err := cli.ParseAssignments(style)
			if err != nil {
				return err
			}
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			id, ok := store.AddElement(a.reg.Descriptor(args[0], p, st), parent, index)
			if !ok {
				return fmt.Errorf("parent %q not found", parent)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent element id (default: canvas root)")
	cmd.Flags().IntVar(&index, "index", -1, "position among siblings (negative appends)")
	cmd.Flags().StringArrayVar(&props, "prop", nil, "prop assignment key=value (repeatable)")
	cmd.Flags().StringArrayVar(&style, "style", nil, "style assignment key=value (repeatable)")
	return cmd
}

func (a *app) updateCommand() *cobra.Command {
	var (
		props []string
		style []string
		typ   string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Merge props and style into an element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.ParseAssignments(props)
			if err != nil {
				return err
			}
			st, err := cli.ParseAssignments(style)
			if err != nil {
				return err
			}
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if !store.UpdateElement(args[0], domain.ElementUpdate{Props: p, Style: st, Type: typ}) {
				return fmt.Errorf("element %q not found", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&props, "prop", nil, "prop assignment key=value (repeatable)")
	cmd.Flags().StringArrayVar(&style, "style", nil, "style assignment key=value (repeatable)")
	cmd.Flags().StringVar(&typ, "type", "", "replace the element type")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete elements and their descendants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			n := store.DeleteElements(args)
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d element(s)\n", n)
			return nil
		},
	}
}

func (a *app) moveCommand() *cobra.Command {
	var (
		parent string
		index  int
	)
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move an element under a new parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if !store.MoveElement(args[0], parent, index) {
				return fmt.Errorf("cannot move %q under %q", args[0], parent)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "new parent element id (default: canvas root)")
	cmd.Flags().IntVar(&index, "index", -1, "position among siblings (negative appends)")
	return cmd
}

func (a *app) duplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <id>...",
		Short: "Duplicate elements next to the originals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range store.DuplicateElements(args) {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func (a *app) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every element from the canvas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			store.ClearCanvas()
			return nil
		},
	}
}

func (a *app) cloneCommand() *cobra.Command {
	var (
		parent string
		index  int
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "clone <html-file|->",
		Short: "Convert an HTML fragment into canvas elements",
		Long: `clone reads HTML from a file (or stdin with "-"), converts it into a
bounded element tree and inserts it. With --dry-run the converted tree is
printed and discarded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd.InOrStdin(), args[0], a.cfg.Editor.MaxHTMLChars)
			if err != nil {
				return err
			}
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			res := a.conv.ConvertResult(src)
			store.SetClonePreview(res.Root)
			if dryRun {
				defer store.DiscardClonePreview()
				preview, _ := store.ClonePreview()
				if cli.OutputFormat(a.output) == cli.FormatText {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTree([]domain.Element{preview}))
					return err
				}
				return cli.OutputResults(cmd.OutOrStdout(), a.output, preview)
			}
			id, ok := store.CommitClonePreview(parent, index)
			if !ok {
				store.DiscardClonePreview()
				return fmt.Errorf("parent %q not found", parent)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			if res.Truncated || res.Clipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "note: input exceeded conversion limits, %d node(s) kept\n", res.Nodes)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent element id (default: canvas root)")
	cmd.Flags().IntVar(&index, "index", -1, "position among siblings (negative appends)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the converted tree without inserting it")
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the canvas document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			data, err := storage.EncodeJSON(store.Document())
			if err != nil {
				return err
			}
			if file == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(file, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "destination file (default: stdout)")
	return cmd
}

func (a *app) copyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>...",
		Short: "Copy elements to the system clipboard",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			store.SetSelection(args)
			if store.CopyToClipboard() == 0 {
				return errors.New("nothing to copy")
			}
			data, err := store.ExportClipboard()
			if err != nil {
				return err
			}
			if err := clipboardWrite(string(data)); err != nil {
				return fmt.Errorf("write clipboard: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %d element(s)\n", len(store.Clipboard()))
			return nil
		},
	}
}

func (a *app) pasteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paste",
		Short: "Paste elements from the system clipboard",
		Long:  `paste appends the clipboard elements to the canvas root with fresh ids.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := clipboardRead()
			if err != nil {
				return fmt.Errorf("read clipboard: %w", err)
			}
			store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.ImportClipboard([]byte(text)); err != nil {
				return fmt.Errorf("clipboard does not hold canvas elements: %w", err)
			}
			ids := store.PasteFromClipboard()
			if len(ids) == 0 {
				return errors.New("nothing pasted")
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

// readSource reads at most enough bytes to hold maxChars runes; the converter
// trims the rest.
func readSource(stdin io.Reader, name string, maxChars int) (string, error) {
	r := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(maxChars)*utf8.UTFMax+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("empty HTML input")
	}
	return string(data), nil
}
