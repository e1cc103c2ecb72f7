package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/matrix"
	"github.com/YuminosukeSato/sciforest/core/model"
)

func newPredictCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "apply a saved model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, v)
		},
	}
	flags := cmd.Flags()
	flags.String("model", "", "model file written by train")
	flags.String("data", "", "feature matrix (.npy)")
	flags.String("labels", "", "optional labels (.npy) to score against")
	flags.String("svmlight", "", "features (and labels) in svmlight format")
	flags.String("out", "", "write predictions to this .npy file instead of stdout")
	flags.Bool("proba", false, "output class probabilities (classifiers)")
	return cmd
}

func runPredict(cmd *cobra.Command, v *viper.Viper) error {
	path, err := requireString(v, "model")
	if err != nil {
		return err
	}
	m, err := loadModel(path)
	if err != nil {
		return err
	}
	X, y, err := loadData(v, m.NFeatures())
	if err != nil {
		return err
	}

	var pred mat.Matrix
	if p, ok := m.Estimator.(model.ProbabilisticClassifier); ok && v.GetBool("proba") {
		pred, err = p.PredictProba(X)
	} else {
		pred, err = m.Estimator.Predict(X)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if out := v.GetString("out"); out != "" {
		if err := matrix.WriteNpyFile(out, pred); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote %s\n", out)
	} else {
		r, c := pred.Dims()
		row := make([]float64, c)
		for i := 0; i < r; i++ {
			mat.Row(row, i, pred)
			for j, x := range row {
				if j > 0 {
					fmt.Fprint(w, " ")
				}
				fmt.Fprintf(w, "%g", x)
			}
			fmt.Fprintln(w)
		}
	}

	if s, ok := m.Estimator.(model.Scorer); ok && y != nil {
		if r, _ := y.Dims(); r > 0 {
			score, err := s.Score(X, y)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "score %.4f\n", score)
		}
	}
	return nil
}
