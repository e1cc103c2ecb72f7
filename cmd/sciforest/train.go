package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/sciforest/core/model"
	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/sklearn/ensemble"
	"github.com/YuminosukeSato/sciforest/sklearn/multiclass"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

func newTrainCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "fit a decision tree or random forest and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String("data", "", "feature matrix (.npy)")
	flags.String("labels", "", "label vector (.npy)")
	flags.String("svmlight", "", "features and labels in svmlight format")
	flags.Int("n-features", 0, "svmlight column count (0 infers it)")
	flags.String("model", "", "output model file")
	flags.String("task", "classify", "classify or regress")
	flags.String("estimator", "forest", "forest or tree")
	flags.Bool("ovr", false, "wrap the classifier in one-vs-rest")

	flags.Int("n-estimators", 100, "number of trees")
	flags.String("criterion", "", "gini, entropy or squared_error (default depends on --task)")
	flags.Int("max-depth", 0, "maximum depth (0 = unbounded)")
	flags.Int("min-samples-split", 2, "smallest node that may be split")
	flags.Int("min-samples-leaf", 1, "smallest leaf a split may produce")
	flags.Int("max-features", tree.MaxFeaturesAuto, "features tried per split (-1 = sqrt for forests, all for trees)")
	flags.Int("n-jobs", 0, "parallel fits (0 = all CPUs)")
	flags.Bool("oob", false, "compute the out-of-bag score (forests)")
	flags.Uint64("seed", 0, "random seed")
	return cmd
}

func runTrain(cmd *cobra.Command, v *viper.Viper) error {
	out, err := requireString(v, "model")
	if err != nil {
		return err
	}
	X, y, err := loadData(v, v.GetInt("n-features"))
	if err != nil {
		return err
	}
	if y == nil {
		return scierrors.NewConfigurationError("labels", "training requires labels", "")
	}

	kind, est, err := buildEstimator(v)
	if err != nil {
		return err
	}
	if err := est.Fit(X, y); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if s, ok := est.(model.Scorer); ok {
		score, err := s.Score(X, y)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: training score %.4f\n", kind, score)
	}
	if o, ok := est.(interface{ OOBScore() (float64, error) }); ok && v.GetBool("oob") {
		score, err := o.OOBScore()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: out-of-bag score %.4f\n", kind, score)
	}

	if err := saveModel(out, kind, est); err != nil {
		return err
	}
	fmt.Fprintf(w, "saved %s\n", out)
	return nil
}

// buildEstimator returns the unfitted estimator selected by the training flags.
func buildEstimator(v *viper.Viper) (string, gobEstimator, error) {
	task, estimator := v.GetString("task"), v.GetString("estimator")
	if task != "classify" && task != "regress" {
		return "", nil, scierrors.NewConfigurationError("task", "must be classify or regress", task)
	}
	if estimator != "forest" && estimator != "tree" {
		return "", nil, scierrors.NewConfigurationError("estimator", "must be forest or tree", estimator)
	}
	if v.GetBool("ovr") && task != "classify" {
		return "", nil, scierrors.NewConfigurationError("ovr", "one-vs-rest requires --task classify", true)
	}
	criterion := v.GetString("criterion")
	if criterion == "" {
		criterion = "gini"
		if task == "regress" {
			criterion = "squared_error"
		}
	}

	treeOpts := []tree.Option{
		tree.WithCriterion(criterion),
		tree.WithMaxDepth(v.GetInt("max-depth")),
		tree.WithMinSamplesSplit(v.GetInt("min-samples-split")),
		tree.WithMinSamplesLeaf(v.GetInt("min-samples-leaf")),
		tree.WithMaxFeatures(v.GetInt("max-features")),
		tree.WithRandomState(v.GetUint64("seed")),
	}
	forestOpts := []ensemble.Option{
		ensemble.WithNEstimators(v.GetInt("n-estimators")),
		ensemble.WithCriterion(criterion),
		ensemble.WithMaxDepth(v.GetInt("max-depth")),
		ensemble.WithMinSamplesSplit(v.GetInt("min-samples-split")),
		ensemble.WithMinSamplesLeaf(v.GetInt("min-samples-leaf")),
		ensemble.WithMaxFeatures(v.GetInt("max-features")),
		ensemble.WithNJobs(v.GetInt("n-jobs")),
		ensemble.WithOOBScore(v.GetBool("oob")),
		ensemble.WithRandomState(v.GetUint64("seed")),
	}

	switch {
	case v.GetBool("ovr") && estimator == "tree":
		return kindOvRTree, multiclass.NewOneVsRestClassifier(func() multiclass.BinaryEstimator {
			return tree.NewDecisionTreeClassifier(treeOpts...)
		}, multiclass.WithNJobs(v.GetInt("n-jobs"))), nil
	case v.GetBool("ovr"):
		// クラス単位では逐次、各フォレストの中で n_jobs 並列
		return kindOvRForest, multiclass.NewOneVsRestClassifier(func() multiclass.BinaryEstimator {
			return ensemble.NewRandomForestClassifier(forestOpts...)
		}, multiclass.WithNJobs(1)), nil
	case estimator == "tree" && task == "classify":
		return kindTreeClassifier, tree.NewDecisionTreeClassifier(treeOpts...), nil
	case estimator == "tree":
		return kindTreeRegressor, tree.NewDecisionTreeRegressor(treeOpts...), nil
	case task == "classify":
		return kindForestClassifier, ensemble.NewRandomForestClassifier(forestOpts...), nil
	}
	return kindForestRegressor, ensemble.NewRandomForestRegressor(forestOpts...), nil
}
