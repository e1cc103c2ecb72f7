package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

func newRenderCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "draw one tree of a saved model with Graphviz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, v)
		},
	}
	flags := cmd.Flags()
	flags.String("model", "", "model file written by train")
	flags.Int("tree", 0, "index of the tree to draw")
	flags.String("format", "svg", "svg, png, jpg or dot")
	flags.String("out", "", "output file (stdout when empty)")
	flags.StringSlice("feature-names", nil, "feature names used in split labels")
	return cmd
}

func runRender(cmd *cobra.Command, v *viper.Viper) (err error) {
	path, err := requireString(v, "model")
	if err != nil {
		return err
	}
	m, err := loadModel(path)
	if err != nil {
		return err
	}
	trees := m.Trees()
	i := v.GetInt("tree")
	if i < 0 || i >= len(trees) {
		return scierrors.NewIndexError("render", i, len(trees))
	}
	format, err := tree.ParseFormat(v.GetString("format"))
	if err != nil {
		return err
	}
	names := featureNames(v.GetStringSlice("feature-names"), m.NFeatures())

	out := v.GetString("out")
	if out == "" {
		return trees[i].Render(cmd.OutOrStdout(), format, names)
	}
	f, err := os.Create(out)
	if err != nil {
		return scierrors.Wrapf(err, "failed to create %s", out)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	if err := trees[i].Render(f, format, names); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote tree %d to %s\n", i, out)
	return nil
}
