package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
	"github.com/Sumatoshi-tech/gitorigin/pkg/mcp"
	"github.com/Sumatoshi-tech/gitorigin/pkg/schema"
)

func validate(t *testing.T, sch *schema.Schema, doc any) *gojsonschema.Result {
	t.Helper()

	schemaJSON, err := json.Marshal(sch)
	require.NoError(t, err)

	docJSON, err := json.Marshal(doc)
	require.NoError(t, err)

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(docJSON))
	require.NoError(t, err)

	return result
}

func TestGenerate_Creation(t *testing.T) {
	t.Parallel()

	sch := schema.Generate("Creation", "", history.Creation{})

	assert.Equal(t, schema.Draft07, sch.Schema)
	assert.Equal(t, "object", sch.Type)
	assert.ElementsMatch(t, []string{"path", "origin", "commit", "change", "date"}, sch.Required)
	assert.Equal(t, "array", sch.Properties["hops"].Type)
	assert.Equal(t, "#/definitions/Hop", sch.Properties["hops"].Items.Ref)
	assert.Contains(t, sch.Definitions, "Hop")
}

func TestGenerate_ValidatesResolverOutput(t *testing.T) {
	t.Parallel()

	sch := schema.Generate("Creation", "", history.Creation{})

	creation := history.Creation{
		Path:   "lib/controller.php",
		Origin: "controller.php",
		Commit: "0123456789abcdef0123456789abcdef01234567",
		Change: history.Added,
		Date:   "2010",
		Hops:   []history.Hop{{Commit: "fedcba", From: "controller.php", To: "lib/controller.php"}},
	}

	result := validate(t, sch, creation)
	assert.True(t, result.Valid(), result.Errors())

	result = validate(t, sch, map[string]any{"path": "x", "hops": "none"})
	assert.False(t, result.Valid())
}

func TestGenerate_MCPOutputWithNestedPointer(t *testing.T) {
	t.Parallel()

	sch := schema.Generate("Creation date", "", mcp.CreationDateOutput{})

	assert.Equal(t, "#/definitions/Creation", sch.Properties["creation"].Ref)
	assert.ElementsMatch(t, []string{"path", "found"}, sch.Required)

	result := validate(t, sch, mcp.CreationDateOutput{Path: "missing.php"})
	assert.True(t, result.Valid(), result.Errors())
}

func TestArray(t *testing.T) {
	t.Parallel()

	item := schema.Generate("Creation", "", history.Creation{})
	sch := schema.Array("Creations", "", item)

	assert.Equal(t, "array", sch.Type)
	assert.Empty(t, sch.Items.Schema)
	assert.Contains(t, sch.Definitions, "Hop")

	result := validate(t, sch, []history.Creation{{Path: "a", Origin: "a", Commit: "c", Change: history.Copied, Date: "2001"}})
	assert.True(t, result.Valid(), result.Errors())
}
