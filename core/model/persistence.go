package model

import (
	"encoding/gob"
	"encoding/json"
	"io"
	"os"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// SaveModel はモデルをファイルに保存する
//
// パラメータ:
//   - model: 保存するモデル（StateManagerを保持する構造体のポインタ）
//   - filename: 保存先のファイルパス
//
// 使用例:
//
//	rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(50))
//	// ... モデルの学習 ...
//	err := model.SaveModel(rf, "forest.gob")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return scierrors.Wrapf(err, "failed to create file %s", filename)
	}
	defer file.Close()

	return SaveModelToWriter(model, file)
}

// LoadModel はファイルからモデルを読み込む
//
// パラメータ:
//   - model: 読み込み先のモデル（ポインタ）
//   - filename: 読み込み元のファイルパス
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return scierrors.Wrapf(err, "failed to open file %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerにgob形式で保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return scierrors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからgob形式のモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return scierrors.Wrap(err, "failed to decode model")
	}
	return nil
}

// SaveJSON writes the model as indented JSON. Models that implement json.Marshaler
// (trees, forests) control their own layout.
func SaveJSON(model interface{}, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(model); err != nil {
		return scierrors.Wrap(err, "failed to encode model as json")
	}
	return nil
}

// LoadJSON reads a model written by SaveJSON.
func LoadJSON(model interface{}, r io.Reader) error {
	if err := json.NewDecoder(r).Decode(model); err != nil {
		return scierrors.Wrap(err, "failed to decode model json")
	}
	return nil
}
