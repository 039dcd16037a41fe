package rmux

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

type routeRegexpOptions struct {
	strictSlash    bool
	useEncodedPath bool
}

const (
	regexpTypePath regexpType = 0
	regexpTypeHost regexpType = 1
)

type regexpType int

// routeRegexp matches a path template against requests and
// builds URLs from its reverse template.
type routeRegexp struct {
	// The unmodified template.
	template string
	// The type of match
	regexpType regexpType
	// Options for matching
	options routeRegexpOptions
	// Expanded regexp.
	regexp *regexp.Regexp
	// Reverse template.
	reverse string
	// Variable names.
	varsN []string
	// Variable regexps (validators).
	varsR []*regexp.Regexp
}

// newRouteRegexp parses a route template into a matcher.
// Variables are declared as {name} or {name:pattern}.
func newRouteRegexp(tpl string, typ regexpType, options routeRegexpOptions) (*routeRegexp, error) {
	idxs, errBraces := braceIndices(tpl)

	if errBraces != nil {
		return nil, errBraces
	}

	defaultPattern := "[^/]+"

	if typ == regexpTypeHost {
		defaultPattern = "[^.]+"
	}

	pattern := bytes.NewBufferString("^")
	reverse := bytes.NewBufferString("")
	varsN := make([]string, len(idxs)/2)
	varsR := make([]*regexp.Regexp, len(idxs)/2)
	var end int

	for i := 0; i < len(idxs); i += 2 {
		raw := tpl[end:idxs[i]]
		end = idxs[i+1]
		parts := strings.SplitN(tpl[idxs[i]+1:end-1], ":", 2)
		name := parts[0]
		patt := defaultPattern

		if len(parts) == 2 {
			patt = parts[1]
		}

		if name == "" || patt == "" {
			return nil, fmt.Errorf("missing name or pattern in %q", tpl[idxs[i]:end])
		}

		fmt.Fprintf(pattern, "%s(?P<%s>%s)", regexp.QuoteMeta(raw), fmt.Sprintf("v%d", i/2), patt)
		fmt.Fprintf(reverse, "%s%%s", raw)

		reg, errCompile := regexp.Compile("^" + patt + "$")

		if errCompile != nil {
			return nil, errCompile
		}

		varsN[i/2] = name
		varsR[i/2] = reg
	}

	raw := tpl[end:]
	pattern.WriteString(regexp.QuoteMeta(raw))

	if options.strictSlash {
		pattern.WriteString("[/]?")
	}

	pattern.WriteByte('$')
	reverse.WriteString(raw)

	reg, errCompile := regexp.Compile(pattern.String())

	if errCompile != nil {
		return nil, errCompile
	}

	return &routeRegexp{
		template:   tpl,
		regexpType: typ,
		options:    options,
		regexp:     reg,
		reverse:    reverse.String(),
		varsN:      varsN,
		varsR:      varsR,
	}, nil
}

// braceIndices returns the first level curly brace indices from a string.
// It returns an error in case of unbalanced braces.
func braceIndices(s string) ([]int, error) {
	var level, idx int
	var idxs []int

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if level++; level == 1 {
				idx = i
			}
		case '}':
			if level--; level == 0 {
				idxs = append(idxs, idx, i+1)
			} else if level < 0 {
				return nil, fmt.Errorf("unbalanced braces in %q", s)
			}
		}
	}

	if level != 0 {
		return nil, fmt.Errorf("unbalanced braces in %q", s)
	}

	return idxs, nil
}

// Match matches the regexp against the request path.
func (r *routeRegexp) Match(req *http.Request, match *RouteMatch) bool {
	if r.regexpType == regexpTypeHost {
		return r.regexp.MatchString(getHost(req))
	}

	path := req.URL.Path

	if r.options.useEncodedPath {
		path = req.URL.EscapedPath()
	}

	return r.regexp.MatchString(path)
}

// url builds a URL part from the reverse template and the given parameters.
func (r *routeRegexp) url(params map[string]string) (string, error) {
	values := make([]interface{}, len(r.varsN))

	for index, name := range r.varsN {
		value, exists := params[name]

		if !exists {
			return "", fmt.Errorf("missing route parameter %q", name)
		}

		if !r.varsR[index].MatchString(value) {
			return "", fmt.Errorf("route parameter %q does not match %q", value, r.varsR[index].String())
		}

		values[index] = value
	}

	return fmt.Sprintf(r.reverse, values...), nil
}

// routeRegexpGroup groups the route matchers that carry variables.
type routeRegexpGroup struct {
	host *routeRegexp
	path *routeRegexp
}

// setMatch extracts the variables from the URL once a route matches.
func (v routeRegexpGroup) setMatch(req *http.Request, m *RouteMatch, r *Route) {
	if v.host != nil {
		host := getHost(req)
		matches := v.host.regexp.FindStringSubmatchIndex(host)

		if len(matches) > 0 {
			extractVars(host, matches, v.host.varsN, m.Vars)
		}
	}

	if v.path != nil {
		path := req.URL.Path

		if r.useEncodedPath {
			path = req.URL.EscapedPath()
		}

		matches := v.path.regexp.FindStringSubmatchIndex(path)

		if len(matches) > 0 {
			extractVars(path, matches, v.path.varsN, m.Vars)
		}
	}
}

// getHost tries its best to return the request host.
// According to section 14.23 of RFC 2616 the Host header
// can include the port number if the default value of 80 is not used.
func getHost(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.Host
	}

	return r.Host
}

func extractVars(input string, matches []int, names []string, output map[string]string) {
	for i, name := range names {
		output[name] = input[matches[2*i+2]:matches[2*i+3]]
	}
}
