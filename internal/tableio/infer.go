package tableio

import (
	"strconv"
	"strings"

	"github.com/huangsam/datalens/schema"
)

// nullTokens are cell values read as missing.
var nullTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "#NA": {}, "<NA>": {},
}

// IsNullToken reports whether a raw cell should be treated as missing.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.TrimSpace(s)]
	return ok
}

// inferColumn picks the narrowest kind that every non-null cell fits:
// numeric, then boolean, then text. An all-null column is numeric.
func inferColumn(name string, cells []string) *schema.Column {
	n := len(cells)
	valid := make([]bool, n)
	for i, c := range cells {
		valid[i] = !IsNullToken(c)
	}

	if floats, ok := parseFloats(cells, valid); ok {
		return schema.NewNumericColumn(name, floats, valid)
	}
	if bools, ok := parseBools(cells, valid); ok {
		return schema.NewBoolColumn(name, bools, valid)
	}
	texts := make([]string, n)
	for i, c := range cells {
		if valid[i] {
			texts[i] = c
		}
	}
	return schema.NewTextColumn(name, texts, valid)
}

func parseFloats(cells []string, valid []bool) ([]float64, bool) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		if !valid[i] {
			continue
		}
		v, ok := parseNumber(c)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// parseNumber accepts decimal and scientific notation, rejecting the hex and
// underscore forms strconv would otherwise allow.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(strings.TrimLeft(s, "+-"))
	if strings.HasPrefix(lower, "0x") || strings.Contains(s, "_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseBools(cells []string, valid []bool) ([]bool, bool) {
	out := make([]bool, len(cells))
	for i, c := range cells {
		if !valid[i] {
			continue
		}
		switch strings.TrimSpace(c) {
		case "True", "TRUE", "true":
			out[i] = true
		case "False", "FALSE", "false":
		default:
			return nil, false
		}
	}
	return out, true
}
