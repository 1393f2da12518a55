package venice

import "testing"

func TestCatalogEntriesCarryPrivacyMetadata(t *testing.T) {
	seenPrivate, seenAnonymized := false, false
	for _, entry := range Catalog {
		if entry.ID == "" {
			t.Fatal("expected every catalog entry to have a model id")
		}
		switch entry.Privacy {
		case "private":
			seenPrivate = true
		case "anonymized":
			seenAnonymized = true
		default:
			t.Fatalf("unexpected privacy value %q for model %q", entry.Privacy, entry.ID)
		}
	}
	if !seenPrivate || !seenAnonymized {
		t.Fatal("expected the static catalog to include both private and anonymized models")
	}
}

func TestDiscoverModelsFallsBackWithoutAPIKey(t *testing.T) {
	entries, err := DiscoverModels(nil, "", BaseURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != len(Catalog) {
		t.Fatalf("expected fallback to static catalog, got %d entries", len(entries))
	}
}
