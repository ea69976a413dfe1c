package validate

import "strings"

// Table is a parsed markdown table. Rows map header names to cell values.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// Cell returns the first non-empty value among the named columns.
func (t Table) cell(row map[string]string, names ...string) string {
	for _, n := range names {
		if v, ok := row[n]; ok && v != "" {
			return v
		}
	}
	return ""
}

// ExtractTables finds every pipe-delimited table in the content. A table is
// a header row, a separator row of dashes and alignment colons, then zero or
// more data rows; a blank or non-pipe line ends it.
func ExtractTables(content string) []Table {
	var tables []Table
	lines := strings.Split(content, "\n")

	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])
		if !isTableRow(line) {
			i++
			continue
		}
		table, consumed := tryParseTable(lines, i)
		if consumed == 0 {
			i++
			continue
		}
		tables = append(tables, table)
		i += consumed
	}
	return tables
}

func isTableRow(line string) bool {
	return strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") && len(line) > 1
}

func tryParseTable(lines []string, start int) (Table, int) {
	if start+1 >= len(lines) {
		return Table{}, 0
	}
	headerLine := strings.TrimSpace(lines[start])
	sepLine := strings.TrimSpace(lines[start+1])
	if !isTableRow(headerLine) || !isTableRow(sepLine) {
		return Table{}, 0
	}

	headers := splitTableRow(headerLine)
	sepCells := splitTableRow(sepLine)
	if len(headers) == 0 || len(sepCells) != len(headers) {
		return Table{}, 0
	}
	for _, cell := range sepCells {
		if !isSeparatorCell(cell) {
			return Table{}, 0
		}
	}

	table := Table{Headers: headers}
	consumed := 2
	for i := start + 2; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !isTableRow(line) {
			break
		}
		cells := splitTableRow(line)
		row := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(cells) {
				row[h] = cells[j]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
		consumed++
	}
	return table, consumed
}

func isSeparatorCell(cell string) bool {
	if cell == "" {
		return false
	}
	cell = strings.TrimPrefix(cell, ":")
	cell = strings.TrimSuffix(cell, ":")
	if cell == "" {
		return false
	}
	for _, r := range cell {
		if r != '-' {
			return false
		}
	}
	return true
}

// splitTableRow breaks "| a | b |" into trimmed cells. A backslash escapes
// a pipe inside a cell.
func splitTableRow(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")

	var cells []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if i+1 < len(line) && line[i+1] == '|' {
				cur.WriteByte('|')
				i++
			} else {
				cur.WriteByte('\\')
			}
		case '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(line[i])
		}
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}

// TableAfterHeading returns the first table under the heading whose text
// contains the given string (case-insensitive), bounded by the next heading.
func TableAfterHeading(content, headingContains string) (Table, bool) {
	section, ok := sectionContaining(content, headingContains)
	if !ok {
		return Table{}, false
	}
	tables := ExtractTables(section)
	if len(tables) == 0 {
		return Table{}, false
	}
	return tables[0], true
}

// Section returns the content under an exact heading at the given level,
// up to the next heading of the same or higher level.
func Section(content, heading string, level int) (string, bool) {
	lines := strings.Split(content, "\n")
	start := -1
	for i, line := range lines {
		lvl, text, ok := parseHeading(line)
		if ok && lvl == level && strings.EqualFold(text, heading) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", false
	}
	end := len(lines)
	for i := start; i < len(lines); i++ {
		if lvl, _, ok := parseHeading(lines[i]); ok && lvl <= level {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n")), true
}

func sectionContaining(content, headingContains string) (string, bool) {
	lines := strings.Split(content, "\n")
	needle := strings.ToLower(headingContains)
	for i, line := range lines {
		_, text, ok := parseHeading(line)
		if !ok || !strings.Contains(strings.ToLower(text), needle) {
			continue
		}
		end := len(lines)
		for j := i + 1; j < len(lines); j++ {
			if _, _, ok := parseHeading(lines[j]); ok {
				end = j
				break
			}
		}
		return strings.Join(lines[i+1:end], "\n"), true
	}
	return "", false
}

func parseHeading(line string) (level int, text string, ok bool) {
	trimmed := strings.TrimSpace(line)
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n >= len(trimmed) || trimmed[n] != ' ' {
		return 0, "", false
	}
	return n, strings.TrimSpace(trimmed[n:]), true
}

// stripRef removes backtick wrapping from a table cell reference.
func stripRef(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "`"))
}
