// Command sciforest trains, applies and inspects tree models on .npy or svmlight data.
//
//	sciforest train --data X.npy --labels y.npy --model forest.gob --n-estimators 200
//	sciforest predict --model forest.gob --data Xtest.npy --out pred.npy
//	sciforest inspect --model forest.gob --plot importances.png
//	sciforest render --model forest.gob --tree 0 --format svg --out tree0.svg
//
// Every flag can also be set in a config file (--config) or through a SCIFOREST_* environment
// variable, e.g. SCIFOREST_N_ESTIMATORS=50.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
