package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/sciforest/core/model"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

func newInspectCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "print tree sizes and feature importances of a saved model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, v)
		},
	}
	flags := cmd.Flags()
	flags.String("model", "", "model file written by train")
	flags.String("plot", "", "save a feature importance bar chart (.png, .svg or .pdf)")
	flags.StringSlice("feature-names", nil, "feature names for the report and chart")
	return cmd
}

func runInspect(cmd *cobra.Command, v *viper.Viper) error {
	path, err := requireString(v, "model")
	if err != nil {
		return err
	}
	m, err := loadModel(path)
	if err != nil {
		return err
	}
	names := featureNames(v.GetStringSlice("feature-names"), m.NFeatures())

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "model\t%s\n", m.Kind)
	fmt.Fprintf(tw, "features\t%d\n", m.NFeatures())
	fmt.Fprintln(tw, "\ntree\tdepth\tleaves\tnodes")
	for i, t := range m.Trees() {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", i, t.Depth(), t.NLeaves(), len(t.Nodes))
	}

	var importances []float64
	if fi, ok := m.Estimator.(model.FeatureImportancer); ok {
		importances = fi.GetFeatureImportances()
		fmt.Fprintln(tw, "\nfeature\timportance")
		for j, imp := range importances {
			fmt.Fprintf(tw, "%s\t%.4f\n", names[j], imp)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if out := v.GetString("plot"); out != "" {
		if importances == nil {
			return scierrors.NewConfigurationError("plot", "model does not report feature importances", m.Kind)
		}
		return plotImportances(out, names, importances)
	}
	return nil
}

// featureNames pads or replaces names so that there is one per feature.
func featureNames(names []string, n int) []string {
	out := make([]string, n)
	for j := range out {
		if j < len(names) {
			out[j] = names[j]
		} else {
			out[j] = fmt.Sprintf("x[%d]", j)
		}
	}
	return out
}

func plotImportances(path string, names []string, importances []float64) error {
	p := plot.New()
	p.Title.Text = "Feature importances"
	p.Y.Label.Text = "mean impurity decrease"

	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(16))
	if err != nil {
		return scierrors.Wrap(err, "failed to build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(len(names))*vg.Points(24) + 2*vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return scierrors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}
