package metrics

import (
	"math"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MSE は平均二乗誤差を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pairs("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	d := floats.Distance(t, p, 2)
	return d * d / float64(len(t)), nil
}

// RMSE は二乗平均平方根誤差を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pairs("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Distance(t, p, 1) / float64(len(t)), nil
}

// R2Score は決定係数 1 - SSE/SST を計算する。
// yTrue が定数の場合 SST = 0 となり定義できないため ValueError を返す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pairs("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if len(t) < 2 {
		return 0, errors.NewInsufficientDataError("R2Score", "need at least two samples", 2, len(t))
	}
	mean := stat.Mean(t, nil)
	constant := true
	for _, v := range t {
		if v != mean {
			constant = false
			break
		}
	}
	if constant {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero")
	}
	return stat.RSquaredFrom(p, t, nil), nil
}

// MSEMatrix は n×1 行列形式の入力に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnVectors("MSEMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return MSE(t, p)
}

// MAEMatrix は n×1 行列形式の入力に対してMAEを計算する
func MAEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnVectors("MAEMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return MAE(t, p)
}

// pairs validates both vectors and returns their raw values.
func pairs(op string, yTrue, yPred *mat.VecDense) ([]float64, []float64, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return vecValues(yTrue), vecValues(yPred), nil
}

func vecValues(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
