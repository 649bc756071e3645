package template

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/netx"
)

// Case is a single evaluation from a YAML golden file.
type Case struct {
	Template    string            `yaml:"template"`
	FileName    string            `yaml:"filename,omitempty"`
	Input       string            `yaml:"input,omitempty"`
	Key         string            `yaml:"key,omitempty"`
	Body        string            `yaml:"body,omitempty"`
	URL         string            `yaml:"url,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Want        string            `yaml:"want"`
	Error       bool              `yaml:"error,omitempty"`
	Description string            `yaml:"description,omitempty"`
}

// Group is a named collection of cases.
type Group struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

func loadGroups(t *testing.T, file string) []Group {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", file))
	require.NoError(t, err)

	var groups []Group
	require.NoError(t, yaml.Unmarshal(data, &groups), "parsing %s", file)
	require.NotEmpty(t, groups)

	return groups
}

func runGolden(t *testing.T, file string, withResponse bool) {
	p := NewParser()

	for _, g := range loadGroups(t, file) {
		t.Run(g.Name, func(t *testing.T) {
			for i, tc := range g.Cases {
				desc := tc.Description
				if desc == "" {
					desc = fmt.Sprintf("case_%d", i)
				}

				t.Run(desc, func(t *testing.T) {
					c := &Context{Input: models.NewInput(tc.FileName, tc.Input, tc.Key)}
					if withResponse {
						h := http.Header{}
						for k, v := range tc.Headers {
							h.Set(k, v)
						}
						c.Response = &netx.ResponseInfo{
							StatusCode:   http.StatusOK,
							ResponseText: tc.Body,
							ResponseURL:  tc.URL,
							Headers:      h,
						}
					}

					got, err := p.Evaluate(tc.Template, c, nil)
					if tc.Error {
						require.Error(t, err, "template %q", tc.Template)
						return
					}
					require.NoError(t, err, "template %q", tc.Template)
					assert.Equal(t, tc.Want, got, "template %q", tc.Template)
				})
			}
		})
	}
}

func TestEvaluate_RequestGolden(t *testing.T) {
	runGolden(t, "request.yml", false)
}

func TestEvaluate_ResponseGolden(t *testing.T) {
	runGolden(t, "response.yml", true)
}

func TestEvaluate_ErrorKinds(t *testing.T) {
	p := NewParser()
	c := &Context{}

	_, err := p.Evaluate("{filename:", c, nil)
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = p.Evaluate("{response}", c, nil)
	assert.ErrorIs(t, err, ErrNoResponse)

	_, err = p.Evaluate("{header}", &Context{Response: &netx.ResponseInfo{}}, nil)
	assert.ErrorIs(t, err, ErrBadArguments)

	_, err = p.Evaluate("{json:a}", &Context{Response: &netx.ResponseInfo{ResponseText: `{"b":1}`}}, nil)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestEvaluate_Random(t *testing.T) {
	p := NewParser()

	got, err := p.Evaluate("{random}", &Context{}, nil)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), got)

	seen := map[string]bool{}
	for range 200 {
		v, err := p.Evaluate("{random:a|b|c}", &Context{}, nil)
		require.NoError(t, err)
		seen[v] = true
	}
	assert.Subset(t, []string{"a", "b", "c"}, keys(seen))
	assert.Greater(t, len(seen), 1)
}

func TestEvaluate_GUID(t *testing.T) {
	p := NewParser()

	a, err := p.Evaluate("{guid}", &Context{}, nil)
	require.NoError(t, err)
	b, err := p.Evaluate("{guid}", &Context{}, nil)
	require.NoError(t, err)

	_, err = uuid.Parse(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEvaluate_UnixTime(t *testing.T) {
	p := NewParser()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	got, err := p.Evaluate("t={unixtime}", &Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "t="+strconv.FormatInt(fixed.Unix(), 10), got)
}

func TestEvaluate_EscaperSkipsNested(t *testing.T) {
	p := NewParser()
	c := &Context{Input: models.NewInput(`a"b`, "", "")}
	upper := func(s string) string { return "<" + s + ">" }

	got, err := p.Evaluate("{filename} {base64:{filename}}", c, upper)
	require.NoError(t, err)
	assert.Equal(t, `<a"b> <YSJi>`, got)
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
