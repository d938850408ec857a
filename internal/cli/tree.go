package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/refdata"
	"github.com/roach88/datagen/internal/tree"
)

// TreeOptions holds flags for the tree command.
type TreeOptions struct {
	*RootOptions
	Profile   string
	Mode      string
	NamesFile string
}

// TreeInfo describes one decision tree in JSON output.
type TreeInfo struct {
	Violated string `json:"violated,omitempty"`
	Branches int    `json:"branches"`
	Dot      string `json:"dot"`
}

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TreeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tree <profiles-dir>",
		Short: "Print a profile's decision trees in Graphviz DOT",
		Long: `Print the decision trees rows are drawn from, in Graphviz DOT.

In violating mode there is one tree per rule.

Example:
  datagen tree ./profiles | dot -Tsvg > tree.svg`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "profile to render (required when the directory declares several)")
	cmd.Flags().StringVar(&opts.Mode, "mode", string(generator.ModeValid), "valid|violating")
	cmd.Flags().StringVar(&opts.NamesFile, "names", "", "YAML file of first and last names")

	return cmd
}

func runTree(opts *TreeOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	mode, err := generator.ParseMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}
	p, err := loadProfile(dir, opts.Profile)
	if err != nil {
		return err
	}

	genOpts := []generator.Option{generator.WithMode(mode)}
	if opts.NamesFile != "" {
		names, err := refdata.LoadFile(opts.NamesFile)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeConfig, err)
		}
		genOpts = append(genOpts, generator.WithNames(names))
	}
	g, err := generator.New(p, genOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build profile", err)
	}

	infos := make([]TreeInfo, 0, len(g.Trees()))
	for _, t := range g.Trees() {
		infos = append(infos, TreeInfo{Violated: t.Violated, Branches: t.Count(), Dot: tree.Dot(t)})
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	for _, info := range infos {
		if info.Violated != "" {
			fmt.Fprintf(formatter.Writer, "// violates %q, %d branch(es)\n", info.Violated, info.Branches)
		} else {
			fmt.Fprintf(formatter.Writer, "// %d branch(es)\n", info.Branches)
		}
		fmt.Fprint(formatter.Writer, info.Dot)
	}
	return nil
}
