package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sells-group/regex-validate/internal/examples"
	"github.com/sells-group/regex-validate/internal/model"
	"github.com/sells-group/regex-validate/internal/ndjson"
	"github.com/sells-group/regex-validate/internal/regex"
)

// TestMain ensures the record workers never outlive a run.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/dlclark/regexp2.runClock"))
}

type fixture struct {
	dir      string
	examples string
	input    string
	output   string
}

func newFixture(t *testing.T, input string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		examples: filepath.Join(dir, "examples"),
		input:    filepath.Join(dir, "gpt_output.ndjson"),
		output:   filepath.Join(dir, "validated.ndjson"),
	}
	require.NoError(t, os.Mkdir(f.examples, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.examples, "42.txt"), []byte("+++\nfoo\nfoobar\n---\nbar\nbaz"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.examples, "7.txt"), []byte("+++\nabc\n---\nxyz"), 0o644))
	require.NoError(t, os.WriteFile(f.input, []byte(input), 0o644))
	return f
}

func (f fixture) options(t *testing.T) Options {
	t.Helper()
	engine, err := regex.NewEngine(regex.DialectECMAScript, 0)
	require.NoError(t, err)
	return Options{
		NDJSONPath:    f.input,
		DirectoryPath: f.examples,
		OutputPath:    f.output,
		Extension:     ".txt",
		Concurrency:   4,
		Engine:        engine,
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRun_AnnotatesRecordsInOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"file_id":42,"GPT-response":"^foo"}`,
		`{"file_id":42,"GPT-response":["(","^foo"]}`,
		`not json at all`,
		`{"file_id":99,"GPT-response":"^foo"}`,
		`{"file_id":42,"GPT-response":["(","["]}`,
		``,
		`{"file_id":7,"GPT-response":["zzzz","xyz","q"],"meta":{"model":"gpt-4"}}`,
		`{"file_id":42,"GPT-response":null}`,
	}, "\n")
	f := newFixture(t, input)

	sum, err := Run(context.Background(), f.options(t))
	require.NoError(t, err)

	assert.Equal(t, 6, sum.Records)
	assert.Equal(t, 5, sum.Evaluated)
	assert.Equal(t, 1, sum.NotFound)
	assert.Equal(t, f.output, sum.OutputPath)

	want := []string{
		`{"file_id":42,"GPT-response":"^foo","Valid_Regex":true,"pass":true}`,
		`{"file_id":42,"GPT-response":"^foo","Valid_Regex":true,"pass":true}`,
		`{"file_id":99,"GPT-response":"^foo","pass":"File not found"}`,
		`{"file_id":42,"GPT-response":null,"Valid_Regex":false,"pass":false}`,
		`{"file_id":7,"GPT-response":"q","meta":{"model":"gpt-4"},"Valid_Regex":true,"pass":false}`,
		`{"file_id":42,"GPT-response":null,"Valid_Regex":false,"pass":false}`,
	}
	if diff := cmp.Diff(want, readLines(t, f.output)); diff != "" {
		t.Errorf("annotated output mismatch (-want +got):\n%s", diff)
	}

	// The input is untouched when writing elsewhere.
	orig, err := os.ReadFile(f.input)
	require.NoError(t, err)
	assert.Equal(t, input, string(orig))
}

func TestRun_InPlace(t *testing.T) {
	f := newFixture(t, `{"file_id":42,"GPT-response":"^foo"}`+"\n")
	opts := f.options(t)
	opts.OutputPath = f.input

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{`{"file_id":42,"GPT-response":"^foo","Valid_Regex":true,"pass":true}`}, readLines(t, f.input))
}

func TestRun_OutputRoundTrips(t *testing.T) {
	f := newFixture(t, strings.Join([]string{
		`{"file_id":42, "GPT-response": ["^foo", "fo"]}`,
		`{"file_id":7,"GPT-response":"abc"}`,
	}, "\n"))

	_, err := Run(context.Background(), f.options(t))
	require.NoError(t, err)

	first := readLines(t, f.output)
	records, err := ndjson.ReadFile(f.output)
	require.NoError(t, err)
	second := filepath.Join(f.dir, "again.ndjson")
	require.NoError(t, ndjson.WriteFile(second, records))

	assert.Equal(t, first, readLines(t, second))
	assert.Equal(t, `{"file_id":42,"GPT-response":"fo","Valid_Regex":true,"pass":true}`, first[0])
}

func TestRun_MissingInputAborts(t *testing.T) {
	f := newFixture(t, "")
	opts := f.options(t)
	opts.NDJSONPath = filepath.Join(f.dir, "missing.ndjson")

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: read records")
	assert.NoFileExists(t, f.output)
}

func TestRun_MissingDirectoryAborts(t *testing.T) {
	f := newFixture(t, `{"file_id":42,"GPT-response":"^foo"}`)
	opts := f.options(t)
	opts.DirectoryPath = filepath.Join(f.dir, "nope")

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: index examples")
	assert.NoFileExists(t, f.output)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, `{"file_id":42,"GPT-response":"^foo"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, f.options(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, f.output)
}

func TestRun_RequiresOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		want   string
	}{
		{"ndjson", func(o *Options) { o.NDJSONPath = "" }, "ndjson path is required"},
		{"directory", func(o *Options) { o.DirectoryPath = "" }, "directory path is required"},
		{"output", func(o *Options) { o.OutputPath = "" }, "output path is required"},
		{"engine", func(o *Options) { o.Engine = nil }, "regex engine is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "")
			opts := f.options(t)
			tt.mutate(&opts)
			_, err := Run(context.Background(), opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProcessor_Process(t *testing.T) {
	f := newFixture(t, "")
	ix, err := examples.NewIndex(f.examples, ".txt")
	require.NoError(t, err)
	engine, err := regex.NewEngine(regex.DialectRE2, 0)
	require.NoError(t, err)
	p := &Processor{Index: ix, Engine: engine}

	t.Run("string file_id is not found", func(t *testing.T) {
		rec := model.NewRecord(1, []byte(`{"file_id":"42","GPT-response":"^foo"}`))
		found, err := p.Process(&rec)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, model.FileNotFound, rec.Get(model.FieldPass).String())
	})

	t.Run("dialect decides validity", func(t *testing.T) {
		rec := model.NewRecord(1, []byte(`{"file_id":42,"GPT-response":["^foo(?!x)","^fo"]}`))
		found, err := p.Process(&rec)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "^fo", rec.Get(model.FieldResponse).String())
	})

	t.Run("unreadable example file", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(f.examples, "7.txt")))
		rec := model.NewRecord(1, []byte(`{"file_id":7,"GPT-response":"abc"}`))
		_, err := p.Process(&rec)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file_id 7")
	})
}
