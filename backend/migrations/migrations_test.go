package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllOrdered(t *testing.T) {
	all, err := All()
	require.NoError(t, err)

	var versions []string
	for _, m := range all {
		versions = append(versions, m.Version)
		assert.Contains(t, m.SQL, "CREATE TABLE IF NOT EXISTS", m.Version)
	}
	assert.Equal(t, []string{"0001_users", "0002_stations", "0003_bookings", "0004_partnership_leads"}, versions)
}

func TestSlotUniquenessIsPartial(t *testing.T) {
	all, err := All()
	require.NoError(t, err)

	var bookings string
	for _, m := range all {
		if m.Version == "0003_bookings" {
			bookings = m.SQL
		}
	}
	assert.Contains(t, bookings, "CREATE UNIQUE INDEX IF NOT EXISTS booking_slots_active_uniq")
	assert.Contains(t, bookings, "WHERE active;")
}

func TestPending(t *testing.T) {
	all := []Migration{{Version: "0001_a"}, {Version: "0002_b"}, {Version: "0003_c"}}

	pending := Pending(all, map[string]bool{"0001_a": true, "0003_c": true})
	require.Len(t, pending, 1)
	assert.Equal(t, "0002_b", pending[0].Version)

	assert.Len(t, Pending(all, nil), 3)
	assert.Empty(t, Pending(all, map[string]bool{"0001_a": true, "0002_b": true, "0003_c": true}))
}
