package ocr

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestCapitalizeProperName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *string
	}{
		{"空文字列はnil", "", nil},
		{"全大文字キリル", "ИВАНОВ", strPtr("Иванов")},
		{"全小文字キリル", "иванов", strPtr("Иванов")},
		{"複合語", "АННА-МАРИЯ", strPtr("Анна-Мария")},
		{"ラテン文字", "JOHN DOE", strPtr("John Doe")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := capitalizeProperName(tt.input)
			if !equalStrPtr(got, tt.want) {
				t.Errorf("capitalizeProperName(%q) = %v, want %v", tt.input, deref(got), deref(tt.want))
			}
		})
	}
}

func TestCapitalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *string
	}{
		{"空文字列はnil", "", nil},
		{"先頭のみ大文字化", "отделом уфмс россии", strPtr("Отделом уфмс россии")},
		{"残りは変更しない", "тОЙОТА КАМРИ", strPtr("ТОЙОТА КАМРИ")},
		{"1文字", "а", strPtr("А")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := capitalizeText(tt.input)
			if !equalStrPtr(got, tt.want) {
				t.Errorf("capitalizeText(%q) = %v, want %v", tt.input, deref(got), deref(tt.want))
			}
		})
	}
}

func TestExtractSerieAndNumber(t *testing.T) {
	tests := []struct {
		input      string
		wantSerie  string
		wantNumber string
	}{
		{"45 12 123456", "4512", "123456"},
		{"4512123456", "4512", "123456"},
		{"45 12\t123456", "4512", "123456"},
		{"4512", "4512", ""},
		{"45", "45", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		if got := extractSerie(tt.input); got != tt.wantSerie {
			t.Errorf("extractSerie(%q) = %q, want %q", tt.input, got, tt.wantSerie)
		}
		if got := extractNumber(tt.input); got != tt.wantNumber {
			t.Errorf("extractNumber(%q) = %q, want %q", tt.input, got, tt.wantNumber)
		}
	}
}

func TestBuildCarModel(t *testing.T) {
	tests := []struct {
		name     string
		entities Entities
		want     string
	}{
		{"ブランドとモデル", Entities{"stsfront_car_brand": "ТОЙОТА", "stsfront_car_model": "КАМРИ"}, "ТОЙОТА КАМРИ"},
		{"ブランドのみ", Entities{"stsfront_car_brand": "ЛАДА"}, "ЛАДА"},
		{"モデルのみ", Entities{"stsfront_car_model": "ВЕСТА"}, "ВЕСТА"},
		{"両方なし", Entities{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildCarModel(tt.entities); got != tt.want {
				t.Errorf("buildCarModel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2015, 3, 27, 0, 0, 0, 0, time.UTC)

	for _, input := range []string{"27.03.2015", "27/03/2015", "2015-03-27"} {
		got := parseDate(input)
		if got == nil || !got.Equal(want) {
			t.Errorf("parseDate(%q) = %v, want %v", input, got, want)
		}
	}

	for _, input := range []string{"", "not-a-date", "2015.03.27", "31.02.2015"} {
		if got := parseDate(input); got != nil {
			t.Errorf("parseDate(%q) = %v, want nil", input, got)
		}
	}
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}
