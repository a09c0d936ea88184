package cli

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/query"
)

// plainInteger matches base-10 integers without leading zeros. cast parses
// with base 0 and would read 010 as octal.
var plainInteger = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)

// ErrInvalidArgument marks a malformed --arg value.
var ErrInvalidArgument = errors.New("invalid argument")

// ParseArguments parses name=value pairs into metric arguments.
// Later pairs for the same name win.
func ParseArguments(pairs []string) ([]query.Argument, error) {
	byName := make(map[string]int)
	var args []query.Argument
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w %q: want name=value", ErrInvalidArgument, pair)
		}
		arg := query.Argument{Name: name, Value: ParseValue(raw)}
		if i, seen := byName[name]; seen {
			args[i] = arg
			continue
		}
		byName[name] = len(args)
		args = append(args, arg)
	}
	return query.SortArguments(args), nil
}

// ParseValue infers the type of a command-line value.
//
// Quoted values are strings. Otherwise integers, decimals, and true/false
// are recognized, and anything else is a string.
func ParseValue(raw string) ir.IRValue {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ir.IRString(raw)
	}
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return ir.IRString(s[1 : len(s)-1])
	}
	if plainInteger.MatchString(s) {
		if n, err := cast.ToInt64E(s); err == nil {
			return ir.IRInt(n)
		}
	}
	if d, err := ir.NewIRDecimal(s); err == nil {
		return d
	}
	if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
		return ir.IRBool(cast.ToBool(s))
	}
	return ir.IRString(raw)
}
