package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/cmd"
	"github.com/pilosa/dspxml/test"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rc := cmd.NewRootCommand(strings.NewReader(""), &stdout, &stderr)
	rc.SetArgs(args)
	err := rc.Execute()
	return stderr.String(), err
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "json")
	test.ErrKind(t, err, dspxml.KindInput, "unknown command")
	_, err = execute(t, "xml", "--no-such-flag")
	test.ErrKind(t, err, dspxml.KindInput, "unknown flag")
}

func TestXMLFromEnv(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.hcl")
	t.Setenv("DSPXML_TRANSFORM", missing)
	t.Setenv("DSPXML_IRI_STORE_PATH", "iris.db")
	_, err := execute(t, "xml")
	test.ErrKind(t, err, dspxml.KindIO, "missing parse-info")
	test.MustBe(t, cmd.XMLMain.Transform, missing)
	test.MustBe(t, cmd.XMLMain.IRIStorePath, "iris.db")
	test.MustBe(t, dspxml.KindOf(err).ExitCode(), 6)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "dspxml.toml")
	err := os.WriteFile(config, []byte("folder = \""+filepath.ToSlash(dir)+"\"\nseparator = \";\"\n"), 0644)
	test.ErrNil(t, err, "writing config")

	_, err = execute(t, "hcl", "--config", config, "--separator", "#")
	test.ErrKind(t, err, dspxml.KindInput, "folder without data model")
	test.MustBe(t, cmd.HCLMain.Folder, filepath.ToSlash(dir))
	// flags win over the config file.
	test.MustBe(t, cmd.HCLMain.Separator, "#")

	_, err = execute(t, "hcl", "--config", filepath.Join(dir, "missing.toml"))
	test.ErrKind(t, err, dspxml.KindInput, "missing config")
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "project.json"), []byte(test.ProjectJSON), 0644)
	test.ErrNil(t, err, "writing data model")
	test.WriteWorkbook(t, dir, "people.xlsx", test.Sheet{{"id", "label", "hasName"}, {"p1", "Ann", "Ann"}})
	_, err = execute(t, "hcl", "--folder", dir)
	test.ErrNil(t, err, "hcl")

	out := filepath.Join(dir, "xml")
	logs, err := execute(t, "xml", "--transform", filepath.Join(dir, "parse-info.hcl"), "--out", out, "--verbose")
	test.ErrNil(t, err, "xml")
	if !strings.Contains(logs, "Person.xml") {
		t.Fatalf("log does not name the output: %s", logs)
	}
	data, err := os.ReadFile(filepath.Join(out, "Person.xml"))
	test.ErrNil(t, err, "reading output")
	if !strings.Contains(string(data), `<resource label="Ann" id="p1" restype=":Person">`) {
		t.Fatalf("unexpected output:\n%s", data)
	}
}
