// Package form はフォーム入力の検証エラーを利用者向けの通知文に変換します。
package form

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Labels は構造体のフィールド名と画面上の項目名の対応です。
type Labels map[string]string

// Message は err を1行の通知文に変換します。
// バリデーションエラー以外（フォームが解析できない等）は汎用の文言になります。
func Message(err error, labels Labels) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "入力内容を確認してください。"
	}

	fe := verrs[0]
	label, ok := labels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%sを入力してください。", label)
	case "max":
		return fmt.Sprintf("%sは%s文字以内で入力してください。", label, fe.Param())
	case "min":
		return fmt.Sprintf("%sは%s文字以上で入力してください。", label, fe.Param())
	case "alphanum":
		return fmt.Sprintf("%sは半角英数字で入力してください。", label)
	default:
		return fmt.Sprintf("%sの形式が正しくありません。", label)
	}
}
