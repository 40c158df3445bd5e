package observation

import (
	"strconv"
	"strings"
)

// Header is the first line of every historical store file.
const Header = "city,state,date,hour,parameter,aqi,category"

// fieldCount is the number of columns a well-formed row decodes into.
const fieldCount = 7

// EncodeRow encodes an observation as one delimited text row. Fields
// containing the delimiter or a quote character are wrapped in quotes with
// internal quotes doubled.
func EncodeRow(o Observation) string {
	fields := []string{
		o.City,
		o.State,
		o.Date,
		o.Hour,
		o.Parameter,
		strconv.Itoa(o.AQI),
		o.Category,
	}
	for i, f := range fields {
		fields[i] = escapeField(f)
	}
	return strings.Join(fields, ",")
}

// DecodeRow decodes one text row into an observation. It returns ok == false
// for malformed rows (fewer than 7 fields), which callers skip silently;
// partially written trailing lines are expected in an append-only store.
// An unparseable AQI column decodes as -1 rather than failing the row.
func DecodeRow(line string) (Observation, bool) {
	fields := splitRow(line)
	if len(fields) < fieldCount {
		return Observation{}, false
	}

	aqi, err := strconv.Atoi(strings.TrimSpace(fields[5]))
	if err != nil {
		aqi = -1
	}

	return Observation{
		City:      fields[0],
		State:     fields[1],
		Date:      fields[2],
		Hour:      fields[3],
		Parameter: fields[4],
		AQI:       aqi,
		Category:  fields[6],
	}, true
}

func escapeField(v string) string {
	if !strings.ContainsAny(v, ",\"") {
		return v
	}
	return "\"" + strings.ReplaceAll(v, "\"", "\"\"") + "\""
}

// splitRow scans a row character by character, treating quote characters as
// toggles for quoted-field state. A doubled quote inside a quoted field
// decodes to a literal quote. The logic is column-agnostic.
func splitRow(line string) []string {
	var (
		fields   []string
		sb       strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				sb.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, sb.String())
			sb.Reset()
		default:
			sb.WriteByte(c)
		}
	}
	fields = append(fields, sb.String())
	return fields
}
