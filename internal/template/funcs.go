package template

import (
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/dmitrijs2005/customuploader/internal/shared"
)

func fnFileName(c *Context, _ []string) (string, error) { return c.Input.FileName, nil }
func fnInput(c *Context, _ []string) (string, error)    { return c.Input.Input, nil }

func fnKey(c *Context, _ []string) (string, error) {
	c.keyUsed = true
	return c.Input.NonceAndKeyHex, nil
}

func fnRandom(_ *Context, args []string) (string, error) {
	if len(args) == 0 {
		return shared.MakeRandHexString(4)
	}
	return args[rand.IntN(len(args))], nil
}

func fnGUID(_ *Context, _ []string) (string, error) {
	return uuid.NewString(), nil
}

func fnBase64(_ *Context, args []string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(args, "|"))), nil
}

func (p *Parser) fnUnixTime(_ *Context, _ []string) (string, error) {
	return strconv.FormatInt(p.now().Unix(), 10), nil
}

func fnResponse(c *Context, _ []string) (string, error) {
	if c.Response == nil {
		return "", ErrNoResponse
	}
	return c.Response.ResponseText, nil
}

func fnResponseURL(c *Context, _ []string) (string, error) {
	if c.Response == nil {
		return "", ErrNoResponse
	}
	return c.Response.ResponseURL, nil
}

func fnHeader(c *Context, args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%w: want {header:name}", ErrBadArguments)
	}
	if c.Response == nil {
		return "", ErrNoResponse
	}
	return c.Response.Headers.Get(args[0]), nil
}

// sourceAndQuery splits {f:query} and {f:source|query}; the single argument
// form queries the response body.
func sourceAndQuery(c *Context, args []string) (string, string, error) {
	switch len(args) {
	case 1:
		if c.Response == nil {
			return "", "", ErrNoResponse
		}
		return c.Response.ResponseText, args[0], nil
	case 2:
		return args[0], args[1], nil
	}
	return "", "", fmt.Errorf("%w: got %d arguments", ErrBadArguments, len(args))
}

func fnJSON(c *Context, args []string) (string, error) {
	src, path, err := sourceAndQuery(c, args)
	if err != nil {
		return "", err
	}
	if !gjson.Valid(src) {
		return "", fmt.Errorf("%w: invalid JSON", ErrNoMatch)
	}
	res := gjson.Get(src, path)
	if !res.Exists() {
		return "", fmt.Errorf("%w: json path %q", ErrNoMatch, path)
	}
	return res.String(), nil
}

func fnXML(c *Context, args []string) (string, error) {
	src, expr, err := sourceAndQuery(c, args)
	if err != nil {
		return "", err
	}
	doc, err := xmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("%w: invalid XML: %v", ErrNoMatch, err)
	}
	node, err := xmlquery.Query(doc, expr)
	if err != nil {
		return "", fmt.Errorf("%w: xpath %q: %v", ErrBadArguments, expr, err)
	}
	if node == nil {
		return "", fmt.Errorf("%w: xpath %q", ErrNoMatch, expr)
	}
	return node.InnerText(), nil
}

func fnRegex(c *Context, args []string) (string, error) {
	if len(args) == 0 || len(args) > 2 || args[0] == "" {
		return "", fmt.Errorf("%w: want {regex:pattern|group}", ErrBadArguments)
	}
	if c.Response == nil {
		return "", ErrNoResponse
	}

	re, err := regexp.Compile(args[0])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadArguments, err)
	}

	group := 0
	if len(args) == 2 && args[1] != "" {
		if n, err := strconv.Atoi(args[1]); err == nil {
			group = n
		} else if group = re.SubexpIndex(args[1]); group < 0 {
			return "", fmt.Errorf("%w: no group named %q", ErrBadArguments, args[1])
		}
	}
	if group < 0 || group > re.NumSubexp() {
		return "", fmt.Errorf("%w: group %d out of range", ErrBadArguments, group)
	}

	m := re.FindStringSubmatch(c.Response.ResponseText)
	if m == nil {
		return "", fmt.Errorf("%w: regex %q", ErrNoMatch, args[0])
	}
	return m[group], nil
}
