package standard

import (
	. "github.com/balzaczyy/segstore/analysis"
	"github.com/balzaczyy/segstore/analysis/core"
)

func buildChain(ts TokenStream, stopWords []string, lower bool) TokenStream {
	if lower {
		ts = core.NewLowerCaseFilter(ts)
	}
	if stopWords == nil {
		stopWords = core.EnglishStopWords
	}
	return core.NewHyphenFilter(core.NewStopFilter(ts, stopWords))
}

/*
Filters StandardTokenizer with an optional LowerCaseFilter, a StopFilter
and a HyphenFilter. A nil stopWords means core.EnglishStopWords; pass an
empty list to keep every word.
*/
func NewStandardAnalyzer(stopWords []string, lower bool) *AnalyzerImpl {
	return NewAnalyzer(buildChain(NewStandardTokenizer(), stopWords, lower))
}

// Like NewStandardAnalyzer, over LegacyTokenizer.
func NewLegacyAnalyzer(stopWords []string, lower bool) *AnalyzerImpl {
	return NewAnalyzer(buildChain(NewLegacyTokenizer(), stopWords, lower))
}
