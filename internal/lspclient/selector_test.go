package lspclient_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluxion-ml/fluxionctl/internal/lspclient"
)

func TestDefaultSelector_FilePythonInScope(t *testing.T) {
	t.Parallel()

	selector := lspclient.DefaultSelector()

	assert.True(t, selector.Matches("file", "python"))
}

func TestDefaultSelector_UntitledExcluded(t *testing.T) {
	t.Parallel()

	selector := lspclient.DefaultSelector()

	assert.False(t, selector.Matches("untitled", "python"))
}

func TestDefaultSelector_OtherLanguageExcluded(t *testing.T) {
	t.Parallel()

	selector := lspclient.DefaultSelector()

	assert.False(t, selector.Matches("file", "go"))
}

func TestDocumentFilter_EmptyFieldsMatchAnything(t *testing.T) {
	t.Parallel()

	wildcard := lspclient.DocumentFilter{}

	assert.True(t, wildcard.Matches("untitled", "markdown"))

	schemeOnly := lspclient.DocumentFilter{Scheme: "file"}

	assert.True(t, schemeOnly.Matches("file", "anything"))
	assert.False(t, schemeOnly.Matches("untitled", "anything"))
}

func TestSelector_EmptyMatchesNothing(t *testing.T) {
	t.Parallel()

	var selector lspclient.Selector

	assert.False(t, selector.Matches("file", "python"))
}
