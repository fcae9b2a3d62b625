package core

import (
	. "github.com/balzaczyy/segstore/analysis"
)

// NonAnalyzer indexes the whole text of a field as a single term.
func NewNonAnalyzer() *AnalyzerImpl {
	return NewAnalyzer(NewNonTokenizer())
}

func NewWhitespaceAnalyzer(lower bool) *AnalyzerImpl {
	return NewAnalyzer(NewWhitespaceTokenizer(lower))
}

func NewLetterAnalyzer(lower bool) *AnalyzerImpl {
	return NewAnalyzer(NewLetterTokenizer(lower))
}

// Filters LetterTokenizer with StopFilter.
func NewStopAnalyzer(stopWords []string, lower bool) *AnalyzerImpl {
	if stopWords == nil {
		stopWords = EnglishStopWords
	}
	return NewAnalyzer(NewStopFilter(NewLetterTokenizer(lower), stopWords))
}
