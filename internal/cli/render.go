package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shorthand/internal/ir"
	"github.com/roach88/shorthand/internal/statement"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Definition statement.Definition
	Limit      string   // "start,length" or "length"
	Params     []string // name=value
	Bind       bool
}

// RenderResult is the output of the render command.
type RenderResult struct {
	SQL         string   `json:"sql"`
	Template    string   `json:"template"`
	Fingerprint string   `json:"fingerprint"`
	BindSQL     string   `json:"bind_sql,omitempty"`
	Args        []any    `json:"args,omitempty"`
	Unassigned  []string `json:"unassigned,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one statement from shorthand clauses",
		Long: `Render one SELECT statement from shorthand clauses given as flags.

A --param value that parses as JSON is assigned as that value; anything else
is assigned as a string.

Examples:
  shorthand render --from users --where "name*=:kw" --param kw=ann
  shorthand render --from "orders.o-customers.c[customer_id]" --where "o.id|=:ids" --param "ids=[1,2]" --bind
  shorthand render --from users --order ">created_at" --limit 0,20`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Definition.Select, "select", "", "column list")
	flags.StringVar(&opts.Definition.From, "from", "", "join chain (required)")
	flags.StringVar(&opts.Definition.Where, "where", "", "WHERE expression")
	flags.StringVar(&opts.Definition.Having, "having", "", "HAVING expression")
	flags.StringVar(&opts.Definition.GroupBy, "group", "", "GROUP BY list")
	flags.StringVar(&opts.Definition.OrderBy, "order", "", "ORDER BY list; prefix > for DESC")
	flags.StringVar(&opts.Limit, "limit", "", "LIMIT as start,length or length")
	flags.StringArrayVar(&opts.Params, "param", nil, "parameter value as name=value (repeatable)")
	flags.BoolVar(&opts.Bind, "bind", false, "also print ? placeholder SQL and arguments")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func runRender(opts *RenderOptions, cmd *cobra.Command) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	def := opts.Definition
	if opts.Limit != "" {
		limit, err := parseLimitFlag(opts.Limit)
		if err != nil {
			return outputCompileError(formatter, ErrCodeInvalidFlag, err.Error(), nil)
		}
		def.Limit = limit
	}
	params, err := parseParamFlags(opts.Params)
	if err != nil {
		return outputCompileError(formatter, ErrCodeInvalidFlag, err.Error(), nil)
	}

	opts.log().Debug("rendering statement", "from", def.From, "params", len(params))

	result, err := renderDefinition(def, params, opts.statementOptions(), opts.Bind)
	if err != nil {
		return outputCompileError(formatter, ErrCodeRenderFailed, err.Error(), renderErrorDetails(err))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, result.SQL)
	if opts.Bind {
		args, _ := json.Marshal(result.Args)
		fmt.Fprintln(w, result.BindSQL)
		fmt.Fprintf(w, "args: %s\n", args)
	}
	if len(result.Unassigned) > 0 {
		fmt.Fprintln(formatter.GetErrWriter(), formatter.Warn(fmt.Sprintf("unassigned: %s", strings.Join(result.Unassigned, ", "))))
	}
	return nil
}

func renderDefinition(def statement.Definition, params map[string]any, sopts statement.Options, bind bool) (*RenderResult, error) {
	s, err := statement.New(def, sopts)
	if err != nil {
		return nil, err
	}
	if err := s.AssignAll(params); err != nil {
		return nil, err
	}

	result := &RenderResult{Unassigned: s.Unassigned()}
	if result.SQL, err = s.Render(); err != nil {
		return nil, err
	}
	if result.Template, err = s.Template(); err != nil {
		return nil, err
	}
	if result.Fingerprint, err = s.Fingerprint(); err != nil {
		return nil, err
	}
	if bind {
		if result.BindSQL, result.Args, err = s.Bind(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// renderErrorDetails exposes the code and position of a syntax or value
// error for JSON output.
func renderErrorDetails(err error) any {
	if code := ir.SyntaxCode(err); code != "" {
		details := map[string]any{"kind": "syntax", "code": string(code)}
		var se *ir.SyntaxError
		if errors.As(err, &se) {
			details["pos"] = se.Pos
			details["fragment"] = se.Fragment
		}
		return details
	}
	if code := ir.ValueCode(err); code != "" {
		return map[string]any{"kind": "value", "code": string(code)}
	}
	return nil
}

// parseLimitFlag parses "start,length" or "length".
func parseLimitFlag(s string) (*statement.Limit, error) {
	start, length := "0", s
	if before, after, ok := strings.Cut(s, ","); ok {
		start, length = before, after
	}
	st, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return nil, fmt.Errorf("invalid --limit %q: start must be an integer", s)
	}
	ln, err := strconv.Atoi(strings.TrimSpace(length))
	if err != nil {
		return nil, fmt.Errorf("invalid --limit %q: length must be an integer", s)
	}
	return &statement.Limit{Start: st, Length: ln}, nil
}

// parseParamFlags parses name=value pairs. Values that are valid JSON are
// decoded with numbers kept exact; other values are strings.
func parseParamFlags(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: expected name=value", pair)
		}
		if _, dup := params[name]; dup {
			return nil, fmt.Errorf("invalid --param %q: %s given twice", pair, name)
		}
		params[name] = parseParamValue(raw)
	}
	return params, nil
}

func parseParamValue(raw string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}
