package logparser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/alphadose/haxmap"
)

// Role tells the extractor what a captured field is used for
type Role int

const (
	RoleIgnored  Role = iota
	RoleEndpoint      // HTTP request line "METHOD PATH PROTOCOL"
	RoleDuration      // request processing time in seconds
)

func (r Role) String() string {
	switch r {
	case RoleEndpoint:
		return "endpoint"
	case RoleDuration:
		return "duration"
	default:
		return "ignored"
	}
}

// FieldDef describes how a single placeholder is matched
type FieldDef struct {
	Pattern string // sub-pattern without capturing groups
	Role    Role
}

// DefaultFormat is the nginx "ui_short" log_format
const DefaultFormat = `$remote_addr $remote_user  $http_x_real_ip [$time_local] "$request" ` +
	`$status $body_bytes_sent "$http_referer" ` +
	`"$http_user_agent" "$http_x_forwarded_for" "$http_X_REQUEST_ID" "$http_X_RB_USER" ` +
	`$request_time`

const (
	dottedQuad = `\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`
	opaque     = `[^"]*`
)

// fieldDefs maps placeholder names (without "$") to their sub-patterns.
// Sub-patterns must only use non-capturing groups, every placeholder adds exactly one group.
var fieldDefs = map[string]FieldDef{
	"remote_addr":          {Pattern: dottedQuad},
	"remote_user":          {Pattern: `\w+|-`},
	"http_x_real_ip":       {Pattern: dottedQuad + `|-`},
	"time_local":           {Pattern: `[0-3][0-9]/[A-Za-z]{3}/[0-9]{4}:[0-9]{2}:[0-5][0-9]:[0-5][0-9] [-+][0-9]{4}`},
	"request":              {Pattern: `[A-Z]+ .+? HTTP/[0-9.]+`, Role: RoleEndpoint},
	"status":               {Pattern: `\d+`},
	"body_bytes_sent":      {Pattern: `\d+`},
	"http_referer":         {Pattern: opaque},
	"http_user_agent":      {Pattern: opaque},
	"http_x_forwarded_for": {Pattern: opaque},
	"http_X_REQUEST_ID":    {Pattern: opaque},
	"http_X_RB_USER":       {Pattern: opaque},
	"request_time":         {Pattern: `\d+(?:\.\d+)?`, Role: RoleDuration},
}

// KnownFields returns the supported placeholder names, sorted
func KnownFields() []string {
	names := make([]string, 0, len(fieldDefs))
	for name := range fieldDefs {
		names = append(names, "$"+name)
	}
	sort.Strings(names)
	return names
}

// Grammar is a compiled log format. It carries its own role -> group index table
// so extraction never looks group names up at runtime.
type Grammar struct {
	template string
	re       *regexp.Regexp
	fields   []string
	roles    map[Role]int
}

// Template returns the format template the grammar was compiled from
func (g *Grammar) Template() string {
	return g.template
}

// Pattern returns the anchored regular expression source
func (g *Grammar) Pattern() string {
	return g.re.String()
}

// Fields returns the placeholder names in template order
func (g *Grammar) Fields() []string {
	out := make([]string, len(g.fields))
	copy(out, g.fields)
	return out
}

// GroupIndex returns the submatch index carrying the given role
func (g *Grammar) GroupIndex(r Role) (int, bool) {
	idx, ok := g.roles[r]
	return idx, ok
}

// Compiler turns format templates into grammars and memoizes them by template string.
// Safe for concurrent use.
type Compiler struct {
	cache *haxmap.Map[string, *Grammar]
}

// NewCompiler creates a compiler with an empty cache
func NewCompiler() *Compiler {
	return &Compiler{
		cache: haxmap.New[string, *Grammar](),
	}
}

// Compile returns the grammar for template, compiling it on first use.
//
// Supported placeholders:
//
//	$remote_addr          - dotted quad
//	$remote_user          - word or "-"
//	$http_x_real_ip       - dotted quad or "-"
//	$time_local           - DD/Mon/YYYY:HH:MM:SS +ZZZZ
//	$request              - "METHOD URI HTTP/VERSION" (endpoint source)
//	$status               - digits
//	$body_bytes_sent      - digits
//	$http_referer         - opaque, no double quotes
//	$http_user_agent      - opaque, no double quotes
//	$http_x_forwarded_for - opaque, no double quotes
//	$http_X_REQUEST_ID    - opaque, no double quotes
//	$http_X_RB_USER       - opaque, no double quotes
//	$request_time         - unsigned decimal seconds (duration source)
//
// Notes:
//   - Everything outside placeholders is matched literally (brackets, quotes, dots)
//   - A placeholder is the longest identifier after "$"; "$statusx" is not "$status"
//   - $request and $request_time are both required and may appear only once
func (c *Compiler) Compile(template string) (*Grammar, error) {
	if g, ok := c.cache.Get(template); ok {
		return g, nil
	}

	g, err := compileTemplate(template)
	if err != nil {
		return nil, err
	}
	// a concurrent compile of the same template may have won; use its grammar
	g, _ = c.cache.GetOrSet(template, g)
	return g, nil
}

// Compiled reports how many distinct templates have been compiled
func (c *Compiler) Compiled() int {
	return int(c.cache.Len())
}

// IsIdentByte reports whether b may appear in a $placeholder name
func IsIdentByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

func compileTemplate(template string) (*Grammar, error) {
	var pattern strings.Builder
	var literal strings.Builder
	var fields []string
	roles := make(map[Role]int)

	pattern.WriteString("^")

	flushLiteral := func() {
		pattern.WriteString(regexp.QuoteMeta(literal.String()))
		literal.Reset()
	}

	for i := 0; i < len(template); i++ {
		if template[i] != '$' || i+1 >= len(template) || !IsIdentByte(template[i+1]) {
			literal.WriteByte(template[i])
			continue
		}

		end := i + 1
		for end < len(template) && IsIdentByte(template[end]) {
			end++
		}
		name := template[i+1 : end]

		def, ok := fieldDefs[name]
		if !ok {
			return nil, newFormatError(template,
				fmt.Sprintf("unknown placeholder $%s (known: %s)", name, strings.Join(KnownFields(), ", ")), nil)
		}

		if def.Role != RoleIgnored {
			if _, dup := roles[def.Role]; dup {
				return nil, newFormatError(template, fmt.Sprintf("duplicate %s field ($%s) - only one is allowed", def.Role, name), nil)
			}
			roles[def.Role] = len(fields) + 1
		}

		flushLiteral()
		pattern.WriteString("(")
		pattern.WriteString(def.Pattern)
		pattern.WriteString(")")
		fields = append(fields, name)

		i = end - 1
	}
	flushLiteral()
	pattern.WriteString("$")

	if len(fields) == 0 {
		return nil, newFormatError(template, "no recognized placeholders", nil)
	}
	if _, ok := roles[RoleEndpoint]; !ok {
		return nil, newFormatError(template, "no request field ($request) found - it is required", nil)
	}
	if _, ok := roles[RoleDuration]; !ok {
		return nil, newFormatError(template, "no request time field ($request_time) found - it is required", nil)
	}

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, newFormatError(template, "compiling pattern", err)
	}

	return &Grammar{
		template: template,
		re:       re,
		fields:   fields,
		roles:    roles,
	}, nil
}
