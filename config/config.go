/*
Package config loads the settings of a segment store from YAML, with
environment overrides, and builds the stores and analyzers they
describe.
*/
package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/op/go-logging"
	"gopkg.in/yaml.v3"

	. "github.com/balzaczyy/segstore/analysis"
	"github.com/balzaczyy/segstore/analysis/core"
	"github.com/balzaczyy/segstore/analysis/snowball"
	"github.com/balzaczyy/segstore/analysis/standard"
	"github.com/balzaczyy/segstore/codec"
	"github.com/balzaczyy/segstore/index"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
	"github.com/balzaczyy/segstore/util/mapper"
)

var log = logging.MustGetLogger("config")

// Prefix of environment variables overriding the file.
const ENV_PREFIX = "SEGSTORE_"

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Terms    TermsConfig    `yaml:"terms"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Fields   FieldsConfig   `yaml:"fields"`
}

type StoreConfig struct {
	Type              string        `yaml:"type"` // fs or ram
	Path              string        `yaml:"path"`
	LockPrefix        string        `yaml:"lock_prefix"`
	LockRetries       int           `yaml:"lock_retries"`
	LockRetryInterval time.Duration `yaml:"lock_retry_interval"`
	RAMLimit          int64         `yaml:"ram_limit"` // bytes, ram stores only
}

type TermsConfig struct {
	IndexInterval int `yaml:"index_interval"`
	SkipInterval  int `yaml:"skip_interval"`
}

type StemConfig struct {
	Algorithm string `yaml:"algorithm"`
	Charset   string `yaml:"charset"`
}

type Mapping struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// AnalyzerConfig describes one analyzer chain.
type AnalyzerConfig struct {
	// standard, legacy, whitespace, letter, stop or non
	Analyzer  string      `yaml:"analyzer"`
	Lowercase bool        `yaml:"lowercase"`
	StopWords []string    `yaml:"stop_words"`
	Stem      *StemConfig `yaml:"stem"`
	Mappings  []Mapping   `yaml:"mappings"`
}

type AnalysisConfig struct {
	AnalyzerConfig `yaml:",inline"`
	PerField       map[string]AnalyzerConfig `yaml:"per_field"`
}

type FieldsConfig struct {
	Compression string `yaml:"compression"`
}

func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Type:              "fs",
			Path:              "data",
			LockRetries:       store.DEFAULT_LOCK_RETRIES,
			LockRetryInterval: store.DEFAULT_LOCK_RETRY_INTERVAL,
		},
		Terms: TermsConfig{
			IndexInterval: index.DEFAULT_INDEX_INTERVAL,
			SkipInterval:  index.DEFAULT_SKIP_INTERVAL,
		},
		Analysis: AnalysisConfig{
			AnalyzerConfig: AnalyzerConfig{Analyzer: "standard", Lowercase: true},
		},
	}
}

/*
Load reads the YAML file at path over the defaults, then applies the
SEGSTORE_* environment overrides and validates the result. An empty path
loads the defaults alone.
*/
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, util.WrapError(util.ErrFileNotFound, err, "reading config file %v", path)
			}
			return nil, util.WrapError(util.ErrIO, err, "reading config file %v", path)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, util.WrapError(util.ErrArgument, err, "parsing config file %v", path)
		}
	}
	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(ENV_PREFIX + name); ok {
			log.Debugf("%v%v overrides %v", ENV_PREFIX, name, *dst)
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(ENV_PREFIX + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return util.WrapError(util.ErrArgument, err, "%v%v", ENV_PREFIX, name)
		}
		*dst = n
		return nil
	}

	str("STORE_TYPE", &cfg.Store.Type)
	str("STORE_PATH", &cfg.Store.Path)
	str("STORE_LOCK_PREFIX", &cfg.Store.LockPrefix)
	str("ANALYSIS_ANALYZER", &cfg.Analysis.Analyzer)
	str("FIELDS_COMPRESSION", &cfg.Fields.Compression)
	for name, dst := range map[string]*int{
		"STORE_LOCK_RETRIES":   &cfg.Store.LockRetries,
		"TERMS_INDEX_INTERVAL": &cfg.Terms.IndexInterval,
		"TERMS_SKIP_INTERVAL":  &cfg.Terms.SkipInterval,
	} {
		if err := integer(name, dst); err != nil {
			return err
		}
	}
	if v, ok := lookup(ENV_PREFIX + "STORE_LOCK_RETRY_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return util.WrapError(util.ErrArgument, err, "%vSTORE_LOCK_RETRY_INTERVAL", ENV_PREFIX)
		}
		cfg.Store.LockRetryInterval = d
	}
	if v, ok := lookup(ENV_PREFIX + "ANALYSIS_LOWERCASE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return util.WrapError(util.ErrArgument, err, "%vANALYSIS_LOWERCASE", ENV_PREFIX)
		}
		cfg.Analysis.Lowercase = b
	}
	return nil
}

var analyzers = map[string]bool{
	"standard":   true,
	"legacy":     true,
	"whitespace": true,
	"letter":     true,
	"stop":       true,
	"non":        true,
}

// Validate reports the first invalid setting as util.ErrArgument.
func (cfg *Config) Validate() error {
	switch cfg.Store.Type {
	case "ram":
	case "fs":
		if cfg.Store.Path == "" {
			return util.Errorf(util.ErrArgument, "store.path is required for an fs store")
		}
	default:
		return util.Errorf(util.ErrArgument, "unknown store.type %q", cfg.Store.Type)
	}
	if cfg.Store.RAMLimit < 0 {
		return util.Errorf(util.ErrArgument, "store.ram_limit must not be negative")
	}
	if cfg.Store.LockRetries < 0 {
		return util.Errorf(util.ErrArgument, "store.lock_retries must not be negative")
	}
	if cfg.Terms.IndexInterval <= 0 {
		return util.Errorf(util.ErrArgument, "terms.index_interval must be positive (got %v)", cfg.Terms.IndexInterval)
	}
	if cfg.Terms.SkipInterval <= 0 {
		return util.Errorf(util.ErrArgument, "terms.skip_interval must be positive (got %v)", cfg.Terms.SkipInterval)
	}
	if _, err := codec.ParseCompression(cfg.Fields.Compression); err != nil {
		return util.WrapError(util.ErrArgument, err, "fields.compression")
	}
	if err := cfg.Analysis.AnalyzerConfig.validate("analysis"); err != nil {
		return err
	}
	for field, ac := range cfg.Analysis.PerField {
		if err := ac.validate("analysis.per_field." + field); err != nil {
			return err
		}
	}
	return nil
}

func (ac *AnalyzerConfig) validate(section string) error {
	if !analyzers[ac.Analyzer] {
		return util.Errorf(util.ErrArgument, "%v.analyzer: unknown analyzer %q", section, ac.Analyzer)
	}
	if ac.Stem != nil {
		if _, ok := snowball.Algorithms[strings.ToLower(ac.Stem.Algorithm)]; !ok {
			return util.Errorf(util.ErrArgument, "%v.stem: unknown algorithm %q", section, ac.Stem.Algorithm)
		}
	}
	for _, m := range ac.Mappings {
		if m.From == "" {
			return util.Errorf(util.ErrArgument, "%v.mappings: empty pattern", section)
		}
	}
	return nil
}

func (cfg *Config) storeOptions() []store.StoreOption {
	var opts []store.StoreOption
	if cfg.Store.LockPrefix != "" {
		opts = append(opts, store.WithLockPrefix(cfg.Store.LockPrefix))
	}
	if cfg.Store.RAMLimit > 0 {
		opts = append(opts, store.WithRAMLimit(cfg.Store.RAMLimit))
	}
	return append(opts, store.WithLockRetries(cfg.Store.LockRetries, cfg.Store.LockRetryInterval))
}

// Opens the configured store. FS stores are shared through reg.
func (cfg *Config) OpenStore(reg *store.StoreRegistry) (store.Store, error) {
	switch cfg.Store.Type {
	case "ram":
		return store.NewRAMStore(cfg.storeOptions()...), nil
	case "fs":
		s, err := reg.OpenFS(cfg.Store.Path, cfg.storeOptions()...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, util.Errorf(util.ErrArgument, "unknown store.type %q", cfg.Store.Type)
}

/*
Builds the configured analyzer. With per_field entries it is a
PerFieldAnalyzer falling back to the top-level chain. The caller closes
it.
*/
func (cfg *Config) BuildAnalyzer() (Analyzer, error) {
	def, err := cfg.Analysis.AnalyzerConfig.Build()
	if err != nil {
		return nil, err
	}
	if len(cfg.Analysis.PerField) == 0 {
		return def, nil
	}
	pf := NewPerFieldAnalyzer(def)
	fields := make([]string, 0, len(cfg.Analysis.PerField))
	for field := range cfg.Analysis.PerField {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		ac := cfg.Analysis.PerField[field]
		an, err := ac.Build()
		if err != nil {
			pf.Close()
			return nil, err
		}
		if err = pf.Add(field, an); err != nil {
			pf.Close()
			return nil, err
		}
	}
	return pf, nil
}

/*
Build chains the tokenizer named by Analyzer with, in order, lower
casing, stop words, mappings, stemming and, for the standard and legacy
tokenizers, hyphen splitting.
*/
func (ac *AnalyzerConfig) Build() (an Analyzer, err error) {
	var ts TokenStream
	switch ac.Analyzer {
	case "standard":
		ts = standard.NewStandardTokenizer()
	case "legacy":
		ts = standard.NewLegacyTokenizer()
	case "whitespace":
		ts = core.NewWhitespaceTokenizer(ac.Lowercase)
	case "letter", "stop":
		ts = core.NewLetterTokenizer(ac.Lowercase)
	case "non":
		ts = core.NewNonTokenizer()
	default:
		return nil, util.Errorf(util.ErrArgument, "unknown analyzer %q", ac.Analyzer)
	}
	defer func() {
		if err != nil {
			ts.Close()
		}
	}()

	textual := ac.Analyzer == "standard" || ac.Analyzer == "legacy"
	if ac.Lowercase && (textual || ac.Analyzer == "non") {
		ts = core.NewLowerCaseFilter(ts)
	}
	if stopWords := ac.StopWords; stopWords != nil || textual || ac.Analyzer == "stop" {
		if stopWords == nil {
			stopWords = core.EnglishStopWords
		}
		ts = core.NewStopFilter(ts, stopWords)
	}
	if len(ac.Mappings) > 0 {
		m := mapper.New()
		for _, rule := range ac.Mappings {
			if err = m.Add(rule.From, rule.To); err != nil {
				return nil, err
			}
		}
		ts = core.NewMappingFilter(ts, m)
	}
	if ac.Stem != nil {
		var stem *snowball.StemFilter
		if stem, err = snowball.NewStemFilter(ts, ac.Stem.Algorithm, ac.Stem.Charset); err != nil {
			return nil, err
		}
		ts = stem
	}
	if textual {
		ts = core.NewHyphenFilter(ts)
	}
	return NewAnalyzer(ts), nil
}

/*
Returns field infos whose fields default to stored and tokenized, and
compressed with fields.compression when one is set.
*/
func (cfg *Config) FieldInfos() (*index.FieldInfos, error) {
	tag, err := codec.ParseCompression(cfg.Fields.Compression)
	if err != nil {
		return nil, err
	}
	st := index.STORE_YES
	if tag != codec.NONE {
		st = index.STORE_COMPRESS
	}
	fis, err := index.NewFieldInfos(st, index.INDEX_YES, index.TERM_VECTOR_NO)
	if err != nil {
		return nil, err
	}
	fis.SetDefaultCompression(tag)
	return fis, nil
}
