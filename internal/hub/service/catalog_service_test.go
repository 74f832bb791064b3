package service

import (
	"testing"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kitWithAliases(id, code, name string, aliases ...string) entity.Kit {
	k := entity.Kit{ID: id, Code: code, Name: name, Active: true}
	for i, a := range aliases {
		k.Aliases = append(k.Aliases, entity.KitAlias{KitID: id, Alias: a, Position: i + 1})
	}
	return k
}

func TestMatchFullAlias(t *testing.T) {
	svc := NewCatalogService(nil)
	svc.LoadFromKits([]entity.Kit{
		kitWithAliases("k1", "SOF", "Kit Start Office Finance",
			"start office finance", "startoffice finance", "sof"),
		kitWithAliases("k2", "CRM", "Kit CRM Base", "crm base"),
	})

	kit := svc.Match("inserimento Startoffice finance", "sono interessati a startoffice finance")
	require.NotNil(t, kit)
	assert.Equal(t, "SOF", kit.Code)
}

func TestMatchIsCaseAndWhitespaceInsensitive(t *testing.T) {
	svc := NewCatalogService(nil)
	svc.LoadFromKits([]entity.Kit{
		kitWithAliases("k1", "SOF", "Kit Start Office Finance", "start office finance"),
	})

	kit := svc.Match("START   Office\tFINANCE", "")
	require.NotNil(t, kit)
	assert.Equal(t, "SOF", kit.Code)
}

func TestMatchInsertionOrderBreaksTies(t *testing.T) {
	svc := NewCatalogService(nil)
	svc.LoadFromKits([]entity.Kit{
		kitWithAliases("k1", "FIRST", "Kit Primo", "pacchetto base"),
		kitWithAliases("k2", "SECOND", "Kit Secondo", "pacchetto base plus"),
	})

	// both aliases are substrings of the text; the first kit wins
	kit := svc.Match("richiesta pacchetto base plus", "")
	require.NotNil(t, kit)
	assert.Equal(t, "FIRST", kit.Code)
}

func TestMatchBigramFallback(t *testing.T) {
	svc := NewCatalogService(nil)
	svc.LoadFromKits([]entity.Kit{
		kitWithAliases("k1", "FV", "Kit Fotovoltaico", "impianto fotovoltaico industriale"),
	})

	// only two of the three alias words appear together
	kit := svc.Match("preventivo impianto fotovoltaico capannone", "")
	require.NotNil(t, kit)
	assert.Equal(t, "FV", kit.Code)
}

func TestMatchFullAliasBeatsBigram(t *testing.T) {
	svc := NewCatalogService(nil)
	svc.LoadFromKits([]entity.Kit{
		kitWithAliases("k1", "PARTIAL", "Kit Parziale", "gestione documentale avanzata"),
		kitWithAliases("k2", "EXACT", "Kit Esatto", "gestione documentale"),
	})

	// k2's full alias matches; k1 would only match on a bigram window
	kit := svc.Match("serve gestione documentale per ufficio", "")
	require.NotNil(t, kit)
	assert.Equal(t, "EXACT", kit.Code)
}

func TestMatchNoHit(t *testing.T) {
	svc := NewCatalogService(nil)
	svc.LoadFromKits([]entity.Kit{
		kitWithAliases("k1", "SOF", "Kit Start Office Finance", "start office finance"),
	})

	assert.Nil(t, svc.Match("generic call", "follow-up chiamata"))
	assert.Nil(t, svc.Match("", ""))
}

func TestMatchSingleWordAliasHasNoBigramFallback(t *testing.T) {
	svc := NewCatalogService(nil)
	svc.LoadFromKits([]entity.Kit{
		kitWithAliases("k1", "SOF", "Kit Start Office Finance", "sof"),
	})

	kit := svc.Match("interessati a sof subito", "")
	require.NotNil(t, kit)
	assert.Equal(t, "SOF", kit.Code)

	assert.Nil(t, svc.Match("nessun riferimento utile", ""))
}
