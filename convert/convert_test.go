package convert_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/convert"
	"github.com/pilosa/dspxml/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project writes the test data model, a workbook and a parse-info file into
// a fresh directory and returns the path of the parse-info.
func project(t *testing.T, hcl string, sheets ...test.Sheet) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.json"), []byte(test.ProjectJSON), 0644))
	test.WriteWorkbook(t, dir, "data.xlsx", sheets...)
	path := filepath.Join(dir, "parse.hcl")
	require.NoError(t, os.WriteFile(path, []byte(hcl), 0644))
	return path
}

func run(t *testing.T, m *convert.Main) error {
	t.Helper()
	m.Log = dspxml.NopLogger{}
	return m.Run()
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const minimal = `
shortcode       = "0820"
separator       = "|"
set_permissions = false

xlsx "data.xlsx" {
  sheet "1" {
    resource = "Book"
    assignments {
      id       = "id"
      label    = "label"
      hasTitle = "hasTitle"
    }
  }
}
`

func TestMinimalTextResource(t *testing.T) {
	path := project(t, minimal, test.Sheet{
		{"id", "label", "hasTitle"},
		{"b1", "My Book", "Hello"},
	})
	m := convert.NewMain()
	m.Transform = path
	require.NoError(t, run(t, m))

	out := filepath.Join(filepath.Dir(path), "Book.xml")
	assert.Equal(t, []string{out}, m.Files)
	xml := readFile(t, out)
	assert.Contains(t, xml, `<resource label="My Book" id="b1" restype=":Book">`)
	assert.Contains(t, xml, `<text-prop name=":hasTitle">`)
	assert.Contains(t, xml, `<text>Hello</text>`)
	assert.Contains(t, xml, `shortcode="0820" default-ontology="demo"`)
}

func TestListValidation(t *testing.T) {
	path := project(t, `
shortcode       = "0820"
separator       = "|"
set_permissions = false
datamodel_path  = "project.json"

xlsx "data.xlsx" {
  sheet "1" {
    resource = "Book"
    assignments {
      rest = cmd.find
    }
  }
}
`, test.Sheet{
		{"id", "label", "hasTitle", "hasGenre"},
		{"b1", "My Book", "Hello", "novel|poem"},
	})
	m := convert.NewMain()
	m.Transform = path
	err := run(t, m)
	require.Error(t, err)
	assert.Equal(t, dspxml.KindParsing, dspxml.KindOf(err))
	assert.Equal(t, 3, dspxml.KindOf(err).ExitCode())
	assert.Contains(t, err.Error(), "poem")
	assert.Contains(t, err.Error(), "data.xlsx[1]")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(path), "Book.xml"))
}

const crossSheet = `
shortcode       = "0820"
separator       = "|"
set_permissions = true
datamodel_path  = cmd.find

xlsx "data.xlsx" {
  sheet "1" {
    resource = "Person"
    assignments {
      id    = "id"
      label = "label"
      Name  = "hasName"
    }
  }
  sheet "2" {
    resource = "Book"
    assignments {
      id    = "id"
      label = "label"
      Titel = "hasTitle"
    }
    transform {
      lower "title_low" {
        input = "hasTitle"
      }
      identify "hasAuthor" {
        input    = "author"
        resource = "Person"
        exchange = ["id", "iri_column"]
      }
    }
  }
}
`

func TestCrossSheetIdentify(t *testing.T) {
	path := project(t, crossSheet,
		test.Sheet{
			{"id", "label", "Name", "iri_column"},
			{"a_1", "Alice", "Alice", "http://rdfh.ch/0820/a1"},
		},
		test.Sheet{
			{"id", "label", "Titel", "author"},
			{"b1", "Book", "Title", "a_1|a_2"},
		})
	m := convert.NewMain()
	m.Transform = path
	m.Out = filepath.Join(t.TempDir(), "xml")
	require.NoError(t, run(t, m))
	require.Len(t, m.Files, 2)
	assert.Equal(t, filepath.Join(m.Out, "Person.xml"), m.Files[0])

	book := readFile(t, filepath.Join(m.Out, "Book.xml"))
	assert.Contains(t, book, `<permissions id="res-default">`)
	assert.Contains(t, book, `<resource label="Book" id="b1" restype=":Book" permissions="res-default">`)
	assert.Contains(t, book, `<resptr-prop name=":hasAuthor">`)
	assert.Contains(t, book, `<resptr permissions="prop-default">http://rdfh.ch/0820/a1</resptr>`)
	assert.Contains(t, book, `<resptr permissions="prop-default">a_2</resptr>`)
	assert.NotContains(t, book, "title_low")

	person := readFile(t, filepath.Join(m.Out, "Person.xml"))
	assert.Contains(t, person, `<text permissions="prop-default">Alice</text>`)
	assert.NotContains(t, person, "iri_column")
}

const withServer = `
shortcode       = "0820"
separator       = "|"
set_permissions = false

xlsx "data.xlsx" {
  sheet "1" {
    resource = "Book"
    assignments {
      id       = "id"
      label    = "label"
      hasTitle = "hasTitle"
    }
    transform {
      update_with_server "hasAuthor" {
        input    = "author"
        resource = "Person"
      }
    }
  }
}
`

func TestServerIRIs(t *testing.T) {
	var loggedOut atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/authentication", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
		case http.MethodDelete:
			loggedOut.Store(true)
		}
	})
	mux.HandleFunc("/v2/metadata/projects/0820/resources", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"resourceClassIri": "http://api/ontology/0820/demo/v2#Person", "resourceIri": "http://rdfh.ch/0820/ann", "label": "Ann"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	t.Setenv("EMAIL", "root@example.com")
	t.Setenv("PASSWORD", "test")

	path := project(t, withServer, test.Sheet{
		{"id", "label", "hasTitle", "author"},
		{"b1", "Book", "Title", "Ann|Bob"},
	})
	m := convert.NewMain()
	m.Transform = path
	m.Server = srv.URL
	m.IRIStore = "bolt"
	m.IRIStorePath = filepath.Join(t.TempDir(), "iris.db")
	require.NoError(t, run(t, m))
	assert.True(t, loggedOut.Load())

	book := readFile(t, m.Files[0])
	assert.Contains(t, book, `<resptr>http://rdfh.ch/0820/ann</resptr>`)
	assert.Contains(t, book, `<resptr>Bob</resptr>`)
}

func TestServerLogoutAfterTimeout(t *testing.T) {
	var loggedOut atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/authentication", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
		case http.MethodDelete:
			loggedOut.Store(true)
		}
	})
	mux.HandleFunc("/v2/metadata/projects/0820/resources", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(400 * time.Millisecond):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	t.Setenv("EMAIL", "root@example.com")
	t.Setenv("PASSWORD", "test")

	path := project(t, withServer, test.Sheet{
		{"id", "label", "hasTitle", "author"},
		{"b1", "Book", "Title", "Ann"},
	})
	m := convert.NewMain()
	m.Transform = path
	m.Server = srv.URL
	m.Timeout = 150 * time.Millisecond
	err := run(t, m)
	require.Error(t, err)
	assert.Equal(t, dspxml.KindAPI, dspxml.KindOf(err), "metadata timeout: %v", err)
	assert.True(t, loggedOut.Load(), "session not released after timeout")
}

func TestID2IRI(t *testing.T) {
	path := project(t, withServer, test.Sheet{
		{"id", "label", "hasTitle", "author"},
		{"b1", "Book", "Title", "p7"},
	})
	mapping := filepath.Join(t.TempDir(), "id2iri.json")
	require.NoError(t, os.WriteFile(mapping, []byte(`{"p7": "http://rdfh.ch/0820/p7"}`), 0644))

	m := convert.NewMain()
	m.Transform = path
	m.ID2IRI = mapping
	m.ID2IRIResource = "Person"
	m.IRIStore = "leveldb"
	m.IRIStorePath = filepath.Join(t.TempDir(), "iris")
	require.NoError(t, run(t, m))
	assert.Contains(t, readFile(t, m.Files[0]), `<resptr>http://rdfh.ch/0820/p7</resptr>`)
}

func TestRunErrors(t *testing.T) {
	m := convert.NewMain()
	err := run(t, m)
	assert.Equal(t, dspxml.KindInput, dspxml.KindOf(err), "no transform: %v", err)

	m = convert.NewMain()
	m.Transform = filepath.Join(t.TempDir(), "missing.hcl")
	err = run(t, m)
	assert.Equal(t, dspxml.KindIO, dspxml.KindOf(err), "missing file: %v", err)

	path := project(t, minimal, test.Sheet{{"id", "label", "hasTitle"}, {"b1", "My Book", "Hello"}})
	m = convert.NewMain()
	m.Transform = path
	m.Server = "localhost:1"
	t.Setenv("EMAIL", "")
	t.Setenv("PASSWORD", "")
	err = run(t, m)
	assert.Equal(t, dspxml.KindInput, dspxml.KindOf(err), "no credentials: %v", err)

	m = convert.NewMain()
	m.Transform = path
	m.IRIStore = "redis"
	err = run(t, m)
	assert.Equal(t, dspxml.KindInput, dspxml.KindOf(err), "bad store: %v", err)
}
