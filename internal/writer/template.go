package writer

import (
	"fmt"
	"strings"
	"time"
)

// invalidFilenameChars are replaced with '_' by sanitizeFilename, matching
// the original implementation's filename sanitizer.
const invalidFilenameChars = `<>:"/\|?*`

// maxFilenameLength is the cap sanitizeFilename truncates to, with a "..."
// suffix appended when truncation occurs.
const maxFilenameLength = 200

// TemplateData supplies the values an output filename template may
// reference: %u (source identifier), %f (source filename base), %t
// (sanitized metadata title), and %i (zero-padded file sequence index).
// %Y %m %d %H %M %S are always resolved from the current local time.
type TemplateData struct {
	SourceID      string
	SourceFile    string
	MetadataTitle string
	SequenceIndex uint32
}

// ExpandFilenameTemplate expands template's placeholders against data and
// the current local time, then sanitizes the result for use as a filename.
// Supported placeholders: %Y %m %d %H %M %S (local time), %u, %f, %t, %i,
// and %% for a literal percent sign; any other placeholder is passed
// through literally (including its leading %).
func ExpandFilenameTemplate(template string, data TemplateData) string {
	now := time.Now()
	var b strings.Builder
	b.Grow(len(template) * 2)

	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '%' || i == len(runes)-1 {
			b.WriteRune(c)
			continue
		}
		next := runes[i+1]
		i++
		switch next {
		case 'Y':
			b.WriteString(now.Format("2006"))
		case 'm':
			b.WriteString(now.Format("01"))
		case 'd':
			b.WriteString(now.Format("02"))
		case 'H':
			b.WriteString(now.Format("15"))
		case 'M':
			b.WriteString(now.Format("04"))
		case 'S':
			b.WriteString(now.Format("05"))
		case 'u':
			if data.SourceID != "" {
				b.WriteString(data.SourceID)
			} else {
				b.WriteString("local")
			}
		case 'f':
			if data.SourceFile != "" {
				b.WriteString(data.SourceFile)
			} else {
				b.WriteString("file")
			}
		case 't':
			if data.MetadataTitle != "" {
				b.WriteString(sanitizeFilename(data.MetadataTitle))
			} else {
				b.WriteString("untitled")
			}
		case 'i':
			b.WriteString(fmt.Sprintf("%04d", data.SequenceIndex))
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteRune(next)
		}
	}

	return sanitizeFilename(b.String())
}

// sanitizeFilename replaces characters invalid in filenames with '_',
// trims leading/trailing dots and spaces, and caps the length at
// maxFilenameLength (appending "..." when truncated).
func sanitizeFilename(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, c := range input {
		if strings.ContainsRune(invalidFilenameChars, c) || c < ' ' {
			b.WriteByte('_')
		} else {
			b.WriteRune(c)
		}
	}

	result := strings.Trim(b.String(), ". ")
	if result == "" {
		return "file"
	}

	runes := []rune(result)
	if len(runes) > maxFilenameLength {
		return string(runes[:maxFilenameLength]) + "..."
	}
	return result
}
