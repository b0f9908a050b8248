package core

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/agebrock/agebrock-mimo/pkg/document"
)

// ProcessingMode controls whether documents are cloned on their way in
// and out of a query or aggregation run
type ProcessingMode int

const (
	// CloneOff mutates and returns the caller's documents
	CloneOff ProcessingMode = 0
	// CloneInput deep-clones documents before the first stage
	CloneInput ProcessingMode = 1
	// CloneOutput deep-clones documents after the last stage
	CloneOutput ProcessingMode = 2
	// CloneAll clones on both ends
	CloneAll ProcessingMode = CloneInput | CloneOutput
)

// Has reports whether m includes flag
func (m ProcessingMode) Has(flag ProcessingMode) bool {
	return m&flag != 0
}

// String returns the string representation of the mode
func (m ProcessingMode) String() string {
	switch m {
	case CloneOff:
		return "clone_off"
	case CloneInput:
		return "clone_input"
	case CloneOutput:
		return "clone_output"
	case CloneAll:
		return "clone_all"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Collation configures locale-aware string comparison
type Collation struct {
	Locale string `json:"locale"`
	// Strength is 1 (base letters), 2 (plus accents) or 3 (plus case).
	// Zero means 3.
	Strength        int    `json:"strength,omitempty"`
	CaseLevel       bool   `json:"caseLevel,omitempty"`
	CaseFirst       string `json:"caseFirst,omitempty"` // "upper", "lower" or "off"
	NumericOrdering bool   `json:"numericOrdering,omitempty"`
	Alternate       string `json:"alternate,omitempty"` // "non-ignorable" or "shifted"
}

// tag builds a BCP 47 tag carrying the collation keywords
func (c *Collation) tag() (language.Tag, error) {
	locale := c.Locale
	if locale == "" || locale == "simple" {
		locale = "und"
	}
	var ext []string
	if c.Strength > 0 {
		ext = append(ext, fmt.Sprintf("ks-level%d", c.Strength))
	}
	switch c.CaseFirst {
	case "upper", "lower":
		ext = append(ext, "kf-"+c.CaseFirst)
	}
	if c.CaseLevel {
		ext = append(ext, "kc")
	}
	if c.NumericOrdering {
		ext = append(ext, "kn")
	}
	if c.Alternate == "shifted" {
		ext = append(ext, "ka-shifted")
	}
	s := locale
	if len(ext) > 0 {
		s += "-u-" + strings.Join(ext, "-")
	}
	return language.Parse(s)
}

// Comparator returns a three-way comparison that applies the collation
// to strings and falls back to document.Compare for everything else
func (c *Collation) Comparator() (document.Comparator, error) {
	if c == nil {
		return document.Compare, nil
	}
	tag, err := c.tag()
	if err != nil {
		return nil, fmt.Errorf("%w: collation locale %q: %v", ErrInvalidOptions, c.Locale, err)
	}

	var opts []collate.Option
	switch c.Strength {
	case 1:
		opts = append(opts, collate.IgnoreCase, collate.IgnoreDiacritics)
	case 2:
		opts = append(opts, collate.IgnoreCase)
	}
	if c.NumericOrdering {
		opts = append(opts, collate.Numeric)
	}
	col := collate.New(tag, append([]collate.Option{collate.OptionsFromTag(tag)}, opts...)...)

	return func(a, b interface{}) int {
		as, aok := a.(string)
		bs, bok := b.(string)
		if aok && bok {
			return col.CompareString(as, bs)
		}
		return document.Compare(a, b)
	}, nil
}

// JSONSchemaValidator compiles a schema into a document predicate
type JSONSchemaValidator func(schema interface{}) (func(obj interface{}) (bool, error), error)

// CollectionResolver returns the documents of a named collection. It is
// used by stages that read other collections, such as $lookup.
type CollectionResolver func(name string) ([]interface{}, error)

// Options configures query, aggregation and update runs. Options are not
// modified by the engine once a run starts.
type Options struct {
	// IDKey is the name of the identifier field
	IDKey string

	// ProcessingMode selects input and output cloning
	ProcessingMode ProcessingMode

	// CloneMode is applied to values inserted by update operators
	CloneMode document.CloneMode

	// Collation applies to string comparison in sorting, nil means binary
	Collation *Collation

	// HashFunction overrides the hash used for bucketing values
	HashFunction document.HashFunction

	// UseStrictMode follows MongoDB rather than JavaScript semantics, for
	// example treating "" as truthy
	UseStrictMode bool

	// ScriptEnabled allows $where and $function
	ScriptEnabled bool

	// JSONSchemaValidator backs the $jsonSchema query operator
	JSONSchemaValidator JSONSchemaValidator

	// CollectionResolver resolves collection names used by $lookup and
	// $unionWith
	CollectionResolver CollectionResolver

	// Registry is consulted first when looking up operators
	Registry *Registry

	// UseGlobalRegistry falls back to Global() when Registry has no match
	UseGlobalRegistry bool

	// Variables are global $$variables visible to every expression
	Variables map[string]interface{}

	// Logger receives debug records. Nil discards.
	Logger *slog.Logger
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		IDKey:             "_id",
		ProcessingMode:    CloneOff,
		CloneMode:         document.CloneCopy,
		UseStrictMode:     true,
		ScriptEnabled:     true,
		UseGlobalRegistry: true,
	}
}

// Clone returns a shallow copy of the options
func (o *Options) Clone() *Options {
	c := *o
	return &c
}

// Validate checks the options for consistency
func (o *Options) Validate() error {
	if o.IDKey == "" {
		return fmt.Errorf("%w: empty id key", ErrInvalidOptions)
	}
	if o.ProcessingMode < CloneOff || o.ProcessingMode > CloneAll {
		return fmt.Errorf("%w: processing mode %d", ErrInvalidOptions, o.ProcessingMode)
	}
	if o.Registry == nil && !o.UseGlobalRegistry {
		return fmt.Errorf("%w: no operator registry", ErrInvalidOptions)
	}
	if c := o.Collation; c != nil {
		if c.Strength < 0 || c.Strength > 3 {
			return fmt.Errorf("%w: collation strength %d", ErrInvalidOptions, c.Strength)
		}
		if _, err := c.tag(); err != nil {
			return fmt.Errorf("%w: collation locale %q: %v", ErrInvalidOptions, c.Locale, err)
		}
	}
	return nil
}

// logger returns the configured logger or a discarding one
func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return discard
}

var discard = slog.New(slog.DiscardHandler)
