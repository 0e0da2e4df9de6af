package oada

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingUnmarshal(t *testing.T) {
	t.Run("drops storage-internal and index keys", func(t *testing.T) {
		raw := `{
			"_id": "resources/tp",
			"_rev": 7,
			"_type": "application/vnd.trellisfw.trading-partners.1+json",
			"_meta": {"_id": "resources/tp/_meta"},
			"masterid-index": {},
			"expand-index": {},
			"partner-b": {"_id": "resources/b"},
			"partner-a": {"_id": "resources/a"}
		}`

		var l Listing
		require.NoError(t, json.Unmarshal([]byte(raw), &l))
		assert.Equal(t, "resources/tp", l.ID)
		assert.Equal(t, []string{"partner-a", "partner-b"}, l.Keys)
		assert.False(t, l.Empty())
	})

	t.Run("resource without _id is empty", func(t *testing.T) {
		var l Listing
		require.NoError(t, json.Unmarshal([]byte(`{"child": {}}`), &l))
		assert.True(t, l.Empty())
	})

	t.Run("no children is empty", func(t *testing.T) {
		var l Listing
		require.NoError(t, json.Unmarshal([]byte(`{"_id": "resources/x"}`), &l))
		assert.True(t, l.Empty())
	})
}
