package lspclient

const (
	// SchemeFile is the URI scheme of documents stored on the local file
	// system.
	SchemeFile = "file"

	// TargetLanguageID is the language identifier the fluxion-lsp server
	// analyzes.
	TargetLanguageID = "python"
)

// DocumentFilter is a predicate over a document's storage scheme and
// language identifier. An empty field matches anything.
type DocumentFilter struct {
	Scheme   string
	Language string
}

// Matches reports whether a document with the given scheme and language
// satisfies the filter.
func (f DocumentFilter) Matches(scheme, language string) bool {
	if f.Scheme != "" && f.Scheme != scheme {
		return false
	}

	if f.Language != "" && f.Language != language {
		return false
	}

	return true
}

// Selector is the set of document filters a connection applies to. A
// document is in scope when any filter matches.
type Selector []DocumentFilter

// Matches reports whether any filter in the selector matches.
func (s Selector) Matches(scheme, language string) bool {
	for _, filter := range s {
		if filter.Matches(scheme, language) {
			return true
		}
	}

	return false
}

// DefaultSelector scopes the connection to local-file documents in the
// analyzed language.
func DefaultSelector() Selector {
	return Selector{{Scheme: SchemeFile, Language: TargetLanguageID}}
}
