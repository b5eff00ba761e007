// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	oasyaml "github.com/oasdiff/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specPath = "../../api/openapi.yaml"

func loadSpec(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(specPath)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(loader.Context))
	return doc
}

func TestOpenAPIDocumentIsValid(t *testing.T) {
	doc := loadSpec(t)
	assert.Equal(t, "voxhire API", doc.Info.Title)

	// The raw document round-trips through plain YAML too; generator
	// tooling reads it without the openapi3 loader.
	raw, err := os.ReadFile(specPath)
	require.NoError(t, err)
	var plain map[string]any
	require.NoError(t, oasyaml.Unmarshal(raw, &plain))
	assert.Equal(t, "3.0.3", plain["openapi"])
}

// TestRouterServesEveryDocumentedRoute sends a request to every path and
// method the contract documents and asserts the router recognizes it: no
// 404 (unknown path) and no 405 (unknown method) may come back.
func TestRouterServesEveryDocumentedRoute(t *testing.T) {
	doc := loadSpec(t)
	f := newFixture(t, nil)
	id := f.createSession(t)

	for path, item := range doc.Paths.Map() {
		for method := range item.Operations() {
			t.Run(method+" "+path, func(t *testing.T) {
				target := strings.ReplaceAll(path, "{id}", id)
				req := httptest.NewRequest(method, target, strings.NewReader("{}"))
				req.Header.Set("Content-Type", "application/json")
				w := httptest.NewRecorder()
				f.server.ServeHTTP(w, req)

				assert.NotEqual(t, http.StatusNotFound, w.Code,
					"documented route is not mounted")
				assert.NotEqual(t, http.StatusMethodNotAllowed, w.Code,
					"documented method is not mounted")
			})
		}
	}
}

func TestUnknownRoutesRejected(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
