package viewing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONFragment(t *testing.T) {
	var out struct {
		Title  string `json:"title"`
		Prompt string `json:"prompt"`
	}

	err := parseJSONFragment("Sure! Here is the target:\n```json\n{\"title\": \"Dock\", \"prompt\": \"A wooden dock.\"}\n```\nEnjoy!", &out)
	require.NoError(t, err)
	assert.Equal(t, "Dock", out.Title)
	assert.Equal(t, "A wooden dock.", out.Prompt)
}

func TestParseJSONFragmentHandlesBracesInsideStrings(t *testing.T) {
	var out struct {
		Title string `json:"title"`
	}
	err := parseJSONFragment(`{"title": "curly { and } inside \" quotes"}`, &out)
	require.NoError(t, err)
	assert.Equal(t, `curly { and } inside " quotes`, out.Title)
}

func TestParseJSONFragmentErrors(t *testing.T) {
	var out map[string]any
	assert.Error(t, parseJSONFragment("no object here", &out))
	assert.Error(t, parseJSONFragment(`{"unbalanced": "forever`, &out))
}

func TestSanitizeSVGStripsScriptsAndAddsNamespace(t *testing.T) {
	raw := "Here you go:\n<svg viewBox=\"0 0 512 512\"><script>alert(1)</script><rect width=\"10\" height=\"10\"/></svg>\nDone."
	svg, err := sanitizeSVG(raw)
	require.NoError(t, err)
	assert.NotContains(t, svg, "<script")
	assert.Contains(t, svg, `xmlns="http://www.w3.org/2000/svg"`)
	assert.Contains(t, svg, "<rect")
	assert.NotContains(t, svg, "Here you go")
}

func TestSanitizeSVGKeepsExistingNamespace(t *testing.T) {
	raw := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 512 512"></svg>`
	svg, err := sanitizeSVG(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, svg)
}

func TestSanitizeSVGRejectsNonSVG(t *testing.T) {
	_, err := sanitizeSVG("I cannot draw that scene.")
	assert.Error(t, err)
}
