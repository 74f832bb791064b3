package service

import (
	"context"
	"strings"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
)

// CatalogService holds the in-memory commercial kit index and matches
// free-text activity descriptions to a kit. Loaded once per pipeline
// run; read-only while a run is in flight.
type CatalogService struct {
	kitRepo *repository.KitRepository
	kits    []indexedKit
}

type indexedKit struct {
	kit     entity.Kit
	aliases []string // normalized, in insertion order
}

func NewCatalogService(kitRepo *repository.KitRepository) *CatalogService {
	return &CatalogService{kitRepo: kitRepo}
}

// Load populates the index from the catalog store.
func (s *CatalogService) Load(ctx context.Context) error {
	kits, err := s.kitRepo.FindAllActive(ctx)
	if err != nil {
		return err
	}
	s.kits = s.kits[:0]
	for _, k := range kits {
		ik := indexedKit{kit: k}
		for _, a := range k.Aliases {
			norm := normalizeText(a.Alias)
			if norm != "" {
				ik.aliases = append(ik.aliases, norm)
			}
		}
		s.kits = append(s.kits, ik)
	}
	return nil
}

// LoadFromKits populates the index directly, for tests and callers
// that already hold the catalog.
func (s *CatalogService) LoadFromKits(kits []entity.Kit) {
	s.kits = s.kits[:0]
	for _, k := range kits {
		ik := indexedKit{kit: k}
		for _, a := range k.Aliases {
			norm := normalizeText(a.Alias)
			if norm != "" {
				ik.aliases = append(ik.aliases, norm)
			}
		}
		s.kits = append(s.kits, ik)
	}
}

// Size returns the number of indexed kits.
func (s *CatalogService) Size() int {
	return len(s.kits)
}

// Match returns the kit referenced by the activity text, or nil.
//
// CRM descriptions are ad-hoc Italian text. The matching is
// deterministic: exact alias substring beats 2-word partials, and kit
// insertion order makes ties reproducible.
func (s *CatalogService) Match(title, description string) *entity.Kit {
	haystack := normalizeText(title + " " + description)
	if haystack == "" {
		return nil
	}

	// pass 1: full alias as substring, first hit wins
	for i := range s.kits {
		for _, alias := range s.kits[i].aliases {
			if strings.Contains(haystack, alias) {
				return &s.kits[i].kit
			}
		}
	}

	// pass 2: sliding 2-word windows over multi-word aliases
	for i := range s.kits {
		for _, alias := range s.kits[i].aliases {
			words := strings.Fields(alias)
			if len(words) < 2 {
				continue
			}
			for w := 0; w+1 < len(words); w++ {
				bigram := words[w] + " " + words[w+1]
				if strings.Contains(haystack, bigram) {
					return &s.kits[i].kit
				}
			}
		}
	}

	return nil
}

// normalizeText lower-cases and collapses whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
