// Package locales holds the chat reply strings.
package locales

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed *.json
var localeFS embed.FS

// Message ids.
const (
	TrackStarted         = "TrackStarted"
	TrackAlreadyActive   = "TrackAlreadyActive"
	TrackChannelNotFound = "TrackChannelNotFound"
	UntrackNotAChannel   = "UntrackNotAChannel"
	UntrackNotTracked    = "UntrackNotTracked"
	UntrackStopped       = "UntrackStopped"
	ListEmpty            = "ListEmpty"
	ListTitle            = "ListTitle"
	ListDescription      = "ListDescription"
	ListField            = "ListField"
	ScanNothingTracked   = "ScanNothingTracked"
	ScanNotTracked       = "ScanNotTracked"
	ScanStarting         = "ScanStarting"
	ScanBusy             = "ScanBusy"
	ScanChannel          = "ScanChannel"
	ScanThread           = "ScanThread"
	ScanProgress         = "ScanProgress"
	ScanComplete         = "ScanComplete"
	ScanFailed           = "ScanFailed"
	PermissionDenied     = "PermissionDenied"
	UnknownCommand       = "UnknownCommand"
	CommandFailed        = "CommandFailed"
	HelpHeader           = "HelpHeader"
	HelpTrack            = "HelpTrack"
	HelpUntrack          = "HelpUntrack"
	HelpList             = "HelpList"
	HelpScan             = "HelpScan"
	HelpHelp             = "HelpHelp"
)

// Data carries template values for a message.
type Data map[string]any

// Translator renders reply strings in one language, falling back to English
// for ids the language does not define.
type Translator struct {
	lang      language.Tag
	localizer *i18n.Localizer
	fallback  *i18n.Localizer
}

// New loads the embedded message files and returns a Translator for lang.
func New(lang string) (*Translator, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parsing language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := localeFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("reading embedded locales: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, f.Name()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f.Name(), err)
		}
	}

	return &Translator{
		lang:      tag,
		localizer: i18n.NewLocalizer(bundle, tag.String()),
		fallback:  i18n.NewLocalizer(bundle, language.English.String()),
	}, nil
}

// Language is the tag replies are rendered in.
func (t *Translator) Language() language.Tag { return t.lang }

// T renders id with data. Unknown ids come back verbatim.
func (t *Translator) T(id string, data Data) string {
	cfg := &i18n.LocalizeConfig{MessageID: id, TemplateData: map[string]any(data)}
	if msg, err := t.localizer.Localize(cfg); err == nil {
		return msg
	}
	if msg, err := t.fallback.Localize(cfg); err == nil {
		return msg
	}
	return id
}
