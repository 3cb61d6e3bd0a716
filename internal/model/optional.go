package model

import (
	"bytes"
	"encoding/json"
)

// Optional はJSONパッチで「キー省略」と「明示的なnull」を区別するためのラッパー。
// キーが存在する場合のみUnmarshalJSONが呼ばれるため、Setで省略を判定できる。
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some は値ありのOptionalを生成する。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null は明示的なnullを表すOptionalを生成する。
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// applyOptional はOptionalが設定されている場合のみdstを上書きする。
func applyOptional[T any](dst **T, o Optional[T]) {
	if !o.Set {
		return
	}
	if o.Value == nil {
		*dst = nil
		return
	}
	v := *o.Value
	*dst = &v
}
