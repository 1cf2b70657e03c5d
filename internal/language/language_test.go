package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToAlpha3(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "eng"},
		{"eng", "eng"},
		{"EN", "eng"},
		{"en-US", "eng"},
		{"en_GB", "eng"},
		{"fr", "fra"},
		{"es", "spa"},
		{"zh", "zho"},
		{"", ""},
		{"not a language", ""},
		{"qq", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToAlpha3(tt.in), "ToAlpha3(%q)", tt.in)
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "English", Name("en"))
	assert.Equal(t, "French", Name("fra"))
	assert.Empty(t, Name("not a language"))
}

func TestFromAcceptLanguage(t *testing.T) {
	assert.Equal(t, []string{"eng", "fra"}, FromAcceptLanguage("en-US,en;q=0.9,fr;q=0.8"))
	assert.Equal(t, []string{"spa"}, FromAcceptLanguage("es-MX"))
	assert.Equal(t, DefaultLanguages, FromAcceptLanguage(""))
	assert.Equal(t, DefaultLanguages, FromAcceptLanguage(";;;"))
}
