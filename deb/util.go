package deb

import (
	"io"
	"strconv"
	"strings"
)

// countingWriter wraps an io.Writer and counts the bytes written.
// It backs the WriteTo methods of this package.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

// Write writes p to the underlying io.Writer and increments the byte count.
// After the first error every later write is skipped.
func (cw *countingWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	cw.err = err
	return n, err
}

// parseFields splits a control-style stanza into fields, in order.
// Continuation lines (starting with a space or tab) are folded into the
// previous value with their newline kept.
func parseFields(content string) (keys []string, values map[string]string) {
	values = make(map[string]string)
	var currentKey string
	var currentValue strings.Builder

	flush := func() {
		if currentKey == "" {
			return
		}
		if _, ok := values[currentKey]; !ok {
			keys = append(keys, currentKey)
		}
		values[currentKey] = strings.TrimSpace(currentValue.String())
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			currentValue.WriteString("\n" + line)
		} else if strings.Contains(line, ":") {
			flush()
			parts := strings.SplitN(line, ":", 2)
			currentKey = parts[0]
			currentValue.Reset()
			currentValue.WriteString(strings.TrimSpace(parts[1]))
		}
	}
	flush()
	return keys, values
}

// parseControlFile parses the content of a Debian control file and populates the Metadata struct.
// It handles standard fields mapping to struct fields and puts unknown fields into ExtraFields.
func parseControlFile(content string, m *Metadata) error {
	if m.ExtraFields == nil {
		m.ExtraFields = make(map[string]string)
	}
	keys, values := parseFields(content)
	for _, key := range keys {
		val := values[key]
		switch ControlField(key) {
		case FieldPackage:
			m.Package = val
		case FieldVersion:
			m.Version = val
		case FieldArchitecture:
			m.Architecture = val
		case FieldMaintainer:
			m.Maintainer = val
		case FieldDescription:
			m.Description = val
		case FieldSection:
			m.Section = val
		case FieldPriority:
			m.Priority = val
		case FieldHomepage:
			m.Homepage = val
		case FieldEssential:
			m.Essential = (val == "yes")
		case FieldSource:
			m.Source = val
		case FieldInstalledSize:
			size, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return err
			}
			m.InstalledSize = size
		case FieldDepends:
			m.Depends = splitList(val)
		case FieldPreDepends:
			m.PreDepends = splitList(val)
		case FieldRecommends:
			m.Recommends = splitList(val)
		case FieldSuggests:
			m.Suggests = splitList(val)
		case FieldConflicts:
			m.Conflicts = splitList(val)
		case FieldBreaks:
			m.Breaks = splitList(val)
		case FieldReplaces:
			m.Replaces = splitList(val)
		case FieldProvides:
			m.Provides = splitList(val)
		default:
			m.ExtraFields[key] = val
		}
	}
	return nil
}

// splitList splits a comma-separated string into a slice of strings, trimming whitespace from each element.
// It returns nil if the input string is empty.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var res []string
	for _, p := range parts {
		res = append(res, strings.TrimSpace(p))
	}
	return res
}

// modeString renders the permission bits of mode as "rwxr-xr-x".
func modeString(mode int64) string {
	const chars = "rwx"
	b := make([]byte, 9)
	for i := 0; i < 9; i++ {
		if mode&(0400>>i) != 0 {
			b[i] = chars[i%3]
		} else {
			b[i] = '-'
		}
	}
	return string(b)
}
