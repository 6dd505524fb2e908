package history

import (
	"regexp"
	"strconv"
	"strings"
)

// statusPattern matches the leading status column of a name-status line:
// a change letter optionally followed by a similarity score.
var statusPattern = regexp.MustCompile(`^([ACR])(\d*)$`)

// ChangeRecord is a parsed name-status line.
type ChangeRecord struct {
	Type ChangeType
	// Similarity is the rename or copy score in percent, zero when absent.
	Similarity int
	// Source is the prior path of a rename or copy.
	Source string
	// Path is the path the commit produced.
	Path string
}

// ParseChangeRecord parses raw name-status output such as "A\tfile",
// "R095\told\tnew" or "C100\tsrc\tdst". Only the last non-empty line is
// considered. Fields are tab separated; lines without tabs are split on
// whitespace. Output containing NUL bytes is read as `--name-status -z`
// output, where paths are verbatim and may hold tabs or newlines.
func ParseChangeRecord(raw string) (ChangeRecord, bool) {
	var fields []string

	if strings.Contains(raw, "\x00") {
		fields = lastNulRecord(raw)
	} else {
		line := lastLine(raw)
		if strings.Contains(line, "\t") {
			fields = strings.Split(line, "\t")
		} else {
			fields = strings.Fields(line)
		}
	}

	if len(fields) == 0 {
		return ChangeRecord{}, false
	}

	match := statusPattern.FindStringSubmatch(fields[0])
	if match == nil {
		return ChangeRecord{}, false
	}

	rec := ChangeRecord{Type: ChangeType(match[1])}

	if match[2] != "" {
		score, err := strconv.Atoi(match[2])
		if err != nil {
			return ChangeRecord{}, false
		}

		rec.Similarity = score
	}

	switch rec.Type {
	case Added:
		if len(fields) < 2 || fields[1] == "" {
			return ChangeRecord{}, false
		}

		rec.Path = fields[1]
	case Renamed, Copied:
		if len(fields) < 3 || fields[1] == "" || fields[2] == "" {
			return ChangeRecord{}, false
		}

		rec.Source = fields[1]
		rec.Path = fields[2]
	}

	return rec, true
}

// lastNulRecord splits NUL-terminated name-status output into records and
// returns the fields of the last one. Renames and copies carry two paths,
// every other status one.
func lastNulRecord(raw string) []string {
	tokens := strings.Split(strings.TrimLeft(raw, "\x00\n"), "\x00")

	var last []string

	for i := 0; i < len(tokens); {
		status := strings.TrimSpace(tokens[i])
		if status == "" {
			i++

			continue
		}

		paths := 1
		if status[0] == 'R' || status[0] == 'C' {
			paths = 2
		}

		end := min(i+1+paths, len(tokens))
		last = append([]string{status}, tokens[i+1:end]...)
		i = end
	}

	return last
}

func lastLine(raw string) string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
	}

	return ""
}
