package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholders(t *testing.T) {
	names, err := Placeholders("A new product {name} has been created. View it at {url} ({name})")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "url"}, names)

	names, err = Placeholders("literal {{braces}} and {count:>4} and {who!r}")
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "who"}, names)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		permitted []string
		wantErr   string
	}{
		{name: "consistent", pattern: "New Product: {name}", permitted: []string{"name", "url"}},
		{name: "no placeholders", pattern: "Hello", permitted: nil},
		{name: "escaped braces", pattern: "{{not a param}}", permitted: nil},
		{name: "unlisted", pattern: "Hi {name}, see {secret}", permitted: []string{"name"}, wantErr: "secret"},
		{name: "empty placeholder", pattern: "Hi {}", permitted: []string{"name"}, wantErr: "empty placeholder"},
		{name: "blank placeholder", pattern: "Hi { }", permitted: []string{"name"}, wantErr: "empty placeholder"},
		{name: "unmatched open", pattern: "Hi {name", permitted: []string{"name"}, wantErr: "unmatched"},
		{name: "stray close", pattern: "Hi name}", permitted: []string{"name"}, wantErr: "single '}'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("title", tt.pattern, tt.permitted)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "title", verr.Field)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRender(t *testing.T) {
	params := map[string]string{"name": "Test Product", "url": "/products/test-product/"}

	title, err := Render("New Product: {name}", params)
	require.NoError(t, err)
	assert.Equal(t, "New Product: Test Product", title)

	body, err := Render("A new product {name} has been created. View it at {url}", params)
	require.NoError(t, err)
	assert.Equal(t, "A new product Test Product has been created. View it at /products/test-product/", body)

	out, err := Render("{{literal}} {name}", params)
	require.NoError(t, err)
	assert.Equal(t, "{literal} Test Product", out)
}

func TestRenderMissing(t *testing.T) {
	_, err := Render("View it at {url}", map[string]string{"name": "x"})
	var rerr *RenderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "url", rerr.Missing)
}
