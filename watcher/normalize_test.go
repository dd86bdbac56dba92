package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNameBasics(t *testing.T) {
	assert.Equal(t, "", NormalizeName(""))
	assert.Equal(t, "", NormalizeName("   "))
	assert.Equal(t, "sontalak", NormalizeName("Sontalak"))
	assert.Equal(t, "lord yelinak", NormalizeName("Lord Yelinak"))
}

func TestNormalizeNameStripsDecorations(t *testing.T) {
	// Parenthetical suffix, apostrophes, punctuation runs.
	assert.Equal(t, "sontalak", NormalizeName("Sontalak (sleeping)"))
	assert.Equal(t, "abudan fedhar", NormalizeName("Abudan Fe`Dhar"))
	assert.Equal(t, "kelorekdar", NormalizeName("Kelorek`Dar"))
	assert.Equal(t, "jaled dar shade", NormalizeName("Jaled Dar`s shade"))
}

func TestNormalizeNameEquivalenceAndIdempotency(t *testing.T) {
	assert.Equal(t, NormalizeName("lord yelinak"), NormalizeName("The Lord Yelinak"))
	assert.Equal(t, NormalizeName("pearl"), NormalizeName("Pearl (map item)"))
	for _, s := range []string{"The Lord Yelinak", "Pearl (map item)", "a gravid drake", "Sontalak", "wyverns"} {
		once := NormalizeName(s)
		assert.Equal(t, once, NormalizeName(once), s)
	}
}

func TestNormalizeNameArticleAndStem(t *testing.T) {
	// One leading article only.
	assert.Equal(t, "gravid drake", NormalizeName("a gravid drake"))
	assert.Equal(t, "ancient sky drake", NormalizeName("An Ancient Sky Drake"))
	assert.Equal(t, "seer", NormalizeName("The Seer"))
	// Plural stemming.
	assert.Equal(t, "wyvern", NormalizeName("wyverns"))
	assert.Equal(t, "sentry", NormalizeName("sentries"))
	// Short words and ss/us endings pass through.
	assert.Equal(t, "its", NormalizeName("its"))
	assert.Equal(t, "boss", NormalizeName("boss"))
	assert.Equal(t, "velious drake", NormalizeName("a Velious Drake"))
}
