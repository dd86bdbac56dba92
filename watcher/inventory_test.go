package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventoryFixture = "Location\tName\tID\tCount\tSlots\n" +
	"Charm\tVial of Velium Vapors\t28055\t1\t0\n" +
	"General1\tVelium Vial\t28056\t3\t0\n" +
	"General2\tPeridot\t10028\t5\t0\n" +
	"General3\tMana Battery - Class Five\t10762\t2\t0\n" +
	"Bank1\tLarrikan's Mask\t10330\t1\t0\n"

func TestParseInventoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Zeke-Inventory.txt")
	require.NoError(t, os.WriteFile(path, []byte(inventoryFixture), 0o644))

	inv, err := ParseInventoryFile(path)
	require.NoError(t, err)
	require.Len(t, inv.Items, 5)
	assert.Equal(t, "Charm", inv.Items[0].Location)
	assert.Equal(t, "Vial of Velium Vapors", inv.Items[0].Name)
	assert.Equal(t, "28055", inv.Items[0].ID)
	assert.Equal(t, 1, inv.Items[0].Count)
	assert.Equal(t, 3, inv.Items[1].Count)
	assert.False(t, inv.FileModified.IsZero())
}

func TestParseInventoryFileShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Zeke-Inventory.txt")
	require.NoError(t, os.WriteFile(path, []byte("Location\tName\nGeneral1\tPearl\n"), 0o644))

	inv, err := ParseInventoryFile(path)
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Pearl", inv.Items[0].Name)
	assert.Equal(t, 0, inv.Items[0].Count)
}

func TestParseInventoryFileMissing(t *testing.T) {
	_, err := ParseInventoryFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestSummarizeRaidKit(t *testing.T) {
	items := []InventoryItem{
		{Name: "Vial of Velium Vapors", Count: 1},
		{Name: "Velium Vial", Count: 3},
		{Name: "Velium Vial", Count: 2},
		{Name: "Peridot", Count: 5},
		{Name: "Mana Battery - Class Five", Count: 2},
		{Name: "Larrikan's Mask", Count: 1},
		{Name: "Rusty Sword", Count: 1},
	}
	kit := SummarizeRaidKit(items)
	assert.Equal(t, "Y", kit.VialVeliumVapors)
	assert.Equal(t, 5, kit.VeliumVialCount)
	assert.Equal(t, "N", kit.LeatherfootSkullcap)
	assert.Equal(t, "N", kit.ShinyBrassIdol)
	assert.Equal(t, 0, kit.RingOfShadowsCount)
	assert.Equal(t, 5, kit.PeridotCount)
	assert.Equal(t, 2, kit.MBClassFive)
	assert.Equal(t, 0, kit.MBClassOne)
	assert.Equal(t, "Y", kit.LarrikansMask)
}

func TestSummarizeRaidKitAnchoredNames(t *testing.T) {
	// Substring names must not count.
	kit := SummarizeRaidKit([]InventoryItem{
		{Name: "Black Pearl", Count: 4},
		{Name: "pearl", Count: 2},
	})
	assert.Equal(t, 2, kit.PearlCount)
}
