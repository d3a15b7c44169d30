package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/catalog/generator"
)

func TestFormats(t *testing.T) {
	j, m, h, err := formats("both")
	require.NoError(t, err)
	assert.True(t, j)
	assert.True(t, m)
	assert.False(t, h)

	_, _, _, err = formats("pdf")
	assert.ErrorContains(t, err, "unknown format")
}

func TestGenerateWritesCatalog(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"-o", dir, "-c", "5", "-s", "7", "-f", "both"})
	require.NoError(t, rootCmd.Execute())

	courses, err := catalog.LoadHierarchical(filepath.Join(dir, generator.JSONFileName))
	require.NoError(t, err)
	assert.Len(t, courses, 5)

	_, err = os.Stat(filepath.Join(dir, "markdown", generator.CatalogFileName))
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "Courses:      5")
}
