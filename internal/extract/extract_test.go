package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "closed tag",
			text: "Here is the answer: ##<Regex>##^foo$##</Regex>##",
			want: []string{"^foo$"},
		},
		{
			name: "python block ignored",
			text: "```python\nimport re\np = '##<Regex>##x##</Regex>##'\n```\nFinal: ##<Regex>##^a+$##</Regex>##",
			want: []string{"^a+$"},
		},
		{
			name: "repeated answers dropped",
			text: "##<Regex>##a##</Regex>## then ##<Regex>##a##</Regex>## and ##<Regex>##b##</Regex>##",
			want: []string{"b"},
		},
		{
			name: "multiline answer",
			text: "##<Regex>##a\nb##</Regex>##",
			want: []string{"a\nb"},
		},
		{
			name: "open tags",
			text: "##<REGEX>##^x$##<REGEX>## trailing",
			want: []string{"^x$"},
		},
		{
			name: "consecutive open tags",
			text: "##<REGEX>##a##<REGEX>##b##<REGEX>##",
			want: []string{"a", "b"},
		},
		{
			name: "closed tags win over open tags",
			text: "##<REGEX>##a##<REGEX>## ##<Regex>##c##</Regex>##",
			want: []string{"c"},
		},
		{
			name: "unterminated open tag",
			text: "##<REGEX>##dangling",
			want: nil,
		},
		{
			name: "no tags",
			text: "I could not find a regex.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Regexes(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "gpt_output.ndjson")
	out := filepath.Join(dir, "gpt_output_clean.ndjson")
	input := strings.Join([]string{
		`{"file_id":1,"GPT-response":"answer ##<Regex>##^foo##</Regex>##","RFixer_Sol":"x"}`,
		`{"file_id":2,"GPT-response":"nothing here"}`,
		`{"file_id":3,"GPT-response":"##<Regex>##a##</Regex>## or ##<Regex>##b##</Regex>##"}`,
		`{"file_id":4,"GPT-response":null}`,
	}, "\n")
	require.NoError(t, os.WriteFile(in, []byte(input), 0o644))

	sum, err := File(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Records: 4, None: 1, Multiple: 1, Skipped: 1}, sum)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`{"file_id":1,"GPT-response":"^foo","RFixer_Sol":"x"}`,
		`{"file_id":2,"GPT-response":null}`,
		`{"file_id":3,"GPT-response":["a","b"]}`,
		`{"file_id":4,"GPT-response":null}`,
	}, "\n")+"\n", string(data))
}

func TestFile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := File(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract: read responses")
}
