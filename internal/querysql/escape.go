package querysql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/shorthand/internal/ir"
)

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// QuoteString renders s as a single-quoted MySQL string literal.
func QuoteString(s string) string {
	return "'" + stringEscaper.Replace(s) + "'"
}

// EscapeLike escapes the LIKE metacharacters in s so it matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// WrapWildcard adds % signs to an already escaped pattern.
func WrapWildcard(pattern string, side WildcardSide) string {
	switch side {
	case Suffix:
		return pattern + "%"
	case Prefix:
		return "%" + pattern
	default:
		return "%" + pattern + "%"
	}
}

// Escape renders an assigned slot value as SQL text according to the slot's
// strategy. Unassigned slots render as an empty string literal.
func Escape(s *Slot) (string, error) {
	if !s.Assigned {
		return "''", nil
	}

	switch s.Strategy {
	case PlainString:
		return scalarSQL(s, s.Value)
	case Wildcard:
		text, err := wildcardText(s)
		if err != nil {
			return "", err
		}
		return QuoteString(text), nil
	case InSet:
		items, err := setItems(s)
		if err != nil {
			return "", err
		}
		if len(items) == 0 {
			return "NULL", nil
		}
		parts := make([]string, len(items))
		for i, item := range items {
			if parts[i], err = scalarSQL(s, item); err != nil {
				return "", err
			}
		}
		return strings.Join(parts, ", "), nil
	case JSONPath:
		path, err := jsonPath(s)
		if err != nil {
			return "", err
		}
		return QuoteString(path), nil
	case JSONObject:
		doc, err := jsonDocument(s)
		if err != nil {
			return "", err
		}
		return QuoteString(doc), nil
	default:
		return "", fmt.Errorf("unknown strategy %d for %s", s.Strategy, s.Name)
	}
}

// Args converts an assigned slot value into driver arguments according to
// the slot's strategy. InSet slots produce one argument per element (at least
// one: an empty set binds a single NULL). Unassigned slots bind "".
func Args(s *Slot) ([]any, error) {
	if !s.Assigned {
		return []any{""}, nil
	}

	switch s.Strategy {
	case PlainString:
		arg, err := scalarArg(s, s.Value)
		if err != nil {
			return nil, err
		}
		return []any{arg}, nil
	case Wildcard:
		text, err := wildcardText(s)
		if err != nil {
			return nil, err
		}
		return []any{text}, nil
	case InSet:
		items, err := setItems(s)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return []any{nil}, nil
		}
		args := make([]any, len(items))
		for i, item := range items {
			if args[i], err = scalarArg(s, item); err != nil {
				return nil, err
			}
		}
		return args, nil
	case JSONPath:
		path, err := jsonPath(s)
		if err != nil {
			return nil, err
		}
		return []any{path}, nil
	case JSONObject:
		doc, err := jsonDocument(s)
		if err != nil {
			return nil, err
		}
		return []any{doc}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %d for %s", s.Strategy, s.Name)
	}
}

func incompatible(s *Slot, v ir.IRValue, detail string) error {
	return &ir.ValueError{
		Code:    ir.CodeIncompatibleValue,
		Param:   s.Name,
		Message: fmt.Sprintf("%s value cannot be used as %s: %s", ir.TypeName(v), s.Strategy, detail),
	}
}

func scalarSQL(s *Slot, v ir.IRValue) (string, error) {
	switch v := v.(type) {
	case ir.IRNull:
		return "NULL", nil
	case ir.IRString:
		return QuoteString(string(v)), nil
	case ir.IRInt:
		return strconv.FormatInt(int64(v), 10), nil
	case ir.IRDecimal:
		return string(v), nil
	case ir.IRBool:
		if v {
			return "1", nil
		}
		return "0", nil
	default:
		return "", incompatible(s, v, "expected a scalar")
	}
}

func scalarArg(s *Slot, v ir.IRValue) (any, error) {
	switch v := v.(type) {
	case ir.IRNull:
		return nil, nil
	case ir.IRString:
		return string(v), nil
	case ir.IRInt:
		return int64(v), nil
	case ir.IRDecimal:
		return string(v), nil
	case ir.IRBool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, incompatible(s, v, "expected a scalar")
	}
}

func wildcardText(s *Slot) (string, error) {
	var text string
	switch v := s.Value.(type) {
	case ir.IRString:
		text = string(v)
	case ir.IRInt:
		text = strconv.FormatInt(int64(v), 10)
	case ir.IRDecimal:
		text = string(v)
	default:
		return "", incompatible(s, v, "expected a string or number")
	}
	return WrapWildcard(EscapeLike(text), s.Side), nil
}

func setItems(s *Slot) ([]ir.IRValue, error) {
	switch v := s.Value.(type) {
	case ir.IRArray:
		return v, nil
	case ir.IRObject:
		return nil, incompatible(s, v, "expected an array or a scalar")
	default:
		return []ir.IRValue{v}, nil
	}
}

func jsonPath(s *Slot) (string, error) {
	v, ok := s.Value.(ir.IRString)
	if !ok {
		return "", incompatible(s, s.Value, "expected a string")
	}
	if !strings.HasPrefix(string(v), "$") {
		return "", incompatible(s, v, `path must start with "$"`)
	}
	return string(v), nil
}

func jsonDocument(s *Slot) (string, error) {
	// A string holding a JSON document is used as is; any other string is
	// encoded as a JSON string.
	if str, ok := s.Value.(ir.IRString); ok && json.Valid([]byte(str)) {
		return string(str), nil
	}
	doc, err := ir.MarshalCanonical(s.Value)
	if err != nil {
		return "", incompatible(s, s.Value, err.Error())
	}
	return string(doc), nil
}
