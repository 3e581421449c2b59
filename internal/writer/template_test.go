package writer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandFilenameTemplateDatePlaceholders(t *testing.T) {
	now := time.Now()
	result := ExpandFilenameTemplate("%Y-%m-%d_%H%M%S", TemplateData{})

	require.Len(t, result, len("2006-01-02_150405"))
	assert.Equal(t, now.Format("2006"), result[0:4])
}

func TestExpandFilenameTemplateDataPlaceholders(t *testing.T) {
	result := ExpandFilenameTemplate("%u_%f_%t_%i", TemplateData{
		SourceID:      "example.com",
		SourceFile:    "mystream",
		MetadataTitle: "My Show",
		SequenceIndex: 7,
	})
	assert.Equal(t, "example.com_mystream_My Show_0007", result)
}

func TestExpandFilenameTemplateDefaults(t *testing.T) {
	result := ExpandFilenameTemplate("%u_%f_%t_%i", TemplateData{})
	assert.Equal(t, "local_file_untitled_0000", result)
}

func TestExpandFilenameTemplateLiteralPercent(t *testing.T) {
	assert.Equal(t, "50%", ExpandFilenameTemplate("50%%", TemplateData{}))
}

func TestExpandFilenameTemplateUnknownPlaceholderPassesThrough(t *testing.T) {
	assert.Equal(t, "a%zb", ExpandFilenameTemplate("a%zb", TemplateData{}))
}

func TestExpandFilenameTemplateTrailingPercent(t *testing.T) {
	assert.Equal(t, "a%", ExpandFilenameTemplate("a%", TemplateData{}))
}

func TestSanitizeFilenameReplacesInvalidChars(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e_f_g_h_i", sanitizeFilename(`a<b>c:d"e/f\g|h?i`))
}

func TestSanitizeFilenameTrimsDotsAndSpaces(t *testing.T) {
	assert.Equal(t, "name", sanitizeFilename("  ..name.. "))
}

func TestSanitizeFilenameEmptyBecomesFile(t *testing.T) {
	assert.Equal(t, "file", sanitizeFilename("   ..."))
}

func TestSanitizeFilenameTruncatesLongNames(t *testing.T) {
	long := strings.Repeat("x", 250)
	result := sanitizeFilename(long)
	assert.Len(t, result, maxFilenameLength+3)
	assert.True(t, strings.HasSuffix(result, "..."))
}
