package isolation

import (
	"fmt"
	"strings"
)

// Dialect identifies one of the supported ad-marker syntaxes.
type Dialect string

const (
	// DialectXML matches paired tags such as <sponsored>...</sponsored>.
	DialectXML Dialect = "xml"
	// DialectBBCode matches paired tags such as [ad]...[/ad].
	DialectBBCode Dialect = "bbcode"
	// DialectComment matches sentinel comment pairs such as
	// <!--ad-->...<!--/ad-->.
	DialectComment Dialect = "comment"
)

// DefaultPlaceholder replaces each removed ad span.
const DefaultPlaceholder = "[ad content removed]"

// Config describes the tag dialects an Engine recognizes. Zero-value fields
// fall back to the defaults below.
type Config struct {
	// XMLTags are tag names matched as <name>...</name>.
	XMLTags []string
	// BBCodeTags are tag names matched as [name]...[/name].
	BBCodeTags []string
	// CommentSentinels are names matched as <!--name-->...<!--/name-->.
	CommentSentinels []string
	// Placeholder replaces each removed span. It must not itself contain
	// any recognized opening marker, so that isolation stays idempotent.
	Placeholder string
}

// DefaultConfig returns the stock dialect configuration.
func DefaultConfig() Config {
	return Config{
		XMLTags:          []string{"guardian-ad", "sponsored", "ad", "promoted"},
		BBCodeTags:       []string{"ad", "sponsored", "promo"},
		CommentSentinels: []string{"ad"},
		Placeholder:      DefaultPlaceholder,
	}
}

// marker is one compiled open/close pair. Markers are stored lowercase;
// matching is case-insensitive.
type marker struct {
	key     string // dialect-qualified tag, e.g. "xml:ad"
	dialect Dialect
	open    string
	end     string
}

// compileMarkers expands a Config into the concrete marker set, ordered so
// that longer opening markers win when one is a prefix of another (e.g. a
// custom "adv" tag registered next to "ad").
func compileMarkers(cfg Config) ([]marker, error) {
	var markers []marker

	add := func(d Dialect, tag, open, end string) error {
		if tag == "" {
			return fmt.Errorf("isolation: empty tag name for %s dialect", d)
		}
		markers = append(markers, marker{
			key:     string(d) + ":" + tag,
			dialect: d,
			open:    open,
			end:     end,
		})
		return nil
	}

	for _, tag := range cfg.XMLTags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if err := add(DialectXML, t, "<"+t+">", "</"+t+">"); err != nil {
			return nil, err
		}
	}
	for _, tag := range cfg.BBCodeTags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if err := add(DialectBBCode, t, "["+t+"]", "[/"+t+"]"); err != nil {
			return nil, err
		}
	}
	for _, tag := range cfg.CommentSentinels {
		t := strings.ToLower(strings.TrimSpace(tag))
		if err := add(DialectComment, t, "<!--"+t+"-->", "<!--/"+t+"-->"); err != nil {
			return nil, err
		}
	}

	for i := 1; i < len(markers); i++ {
		for j := i; j > 0 && len(markers[j].open) > len(markers[j-1].open); j-- {
			markers[j], markers[j-1] = markers[j-1], markers[j]
		}
	}

	return markers, nil
}
