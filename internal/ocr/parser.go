package ocr

import (
	"strings"
	"time"
	"unicode"
)

// capitalizeProperName は氏名向けの正規化を行う。
// 全体を小文字化した上で、各語の先頭（先行が非文字の位置）を大文字にする。
// キリル文字を含むマルチバイト文字列に対応する。空文字列にはnilを返す。
func capitalizeProperName(text string) *string {
	if text == "" {
		return nil
	}

	runes := []rune(strings.ToLower(text))
	prevIsLetter := false
	for i, r := range runes {
		if unicode.IsLetter(r) && !prevIsLetter {
			runes[i] = unicode.ToUpper(r)
		}
		prevIsLetter = unicode.IsLetter(r)
	}

	result := string(runes)
	return &result
}

// capitalizeText は先頭の1文字だけを大文字にする。残りは変更しない。
// 空文字列にはnilを返す。
func capitalizeText(text string) *string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	result := string(runes)
	return &result
}

// stripSpaces は文字列から全空白文字を除去する。
func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// extractSerie はパスポート番号文字列からシリーズ（先頭4文字）を取り出す。
func extractSerie(passportNumber string) string {
	cleaned := []rune(stripSpaces(passportNumber))
	if len(cleaned) <= 4 {
		return string(cleaned)
	}
	return string(cleaned[:4])
}

// extractNumber はパスポート番号文字列から番号（5文字目以降）を取り出す。
func extractNumber(passportNumber string) string {
	cleaned := []rune(stripSpaces(passportNumber))
	if len(cleaned) <= 4 {
		return ""
	}
	return string(cleaned[4:])
}

// buildCarModel はブランドとモデルを結合した車種名を返す。両方空の場合は空文字列。
func buildCarModel(entities Entities) string {
	return strings.TrimSpace(entities["stsfront_car_brand"] + " " + entities["stsfront_car_model"])
}

// dateFormats はOCRが返しうる日付表記。
var dateFormats = []string{"02.01.2006", "02/01/2006", "2006-01-02"}

// parseDate は日付文字列をパースする。どの形式にも合致しない場合はnilを返す。
func parseDate(dateString string) *time.Time {
	if dateString == "" {
		return nil
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, dateString); err == nil {
			return &t
		}
	}

	return nil
}
