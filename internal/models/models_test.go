package models

import (
	"testing"
	"time"
)

func TestCredential(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("Valid When Fresh", func(t *testing.T) {
		c := &Credential{AccessToken: "tok", ExpiresAt: now.Unix() + 3600}
		if !c.Valid(now) {
			t.Error("expected fresh credential to be valid")
		}
	})

	t.Run("Invalid When Expired", func(t *testing.T) {
		c := &Credential{AccessToken: "tok", ExpiresAt: now.Unix() - 1}
		if c.Valid(now) {
			t.Error("expected expired credential to be invalid")
		}
	})

	t.Run("Invalid After Refresh Error", func(t *testing.T) {
		c := &Credential{AccessToken: "tok", ExpiresAt: now.Unix() + 3600, RefreshError: true}
		if c.Valid(now) {
			t.Error("expected errored credential to be invalid")
		}
	})

	t.Run("Invalid Without Token", func(t *testing.T) {
		c := &Credential{ExpiresAt: now.Unix() + 3600}
		if c.Valid(now) {
			t.Error("expected empty credential to be invalid")
		}
	})
}

func TestPendingCreationValidate(t *testing.T) {
	tc := []struct {
		name    string
		pending PendingCreation
		wantErr bool
	}{
		{"valid", PendingCreation{Name: "AM Vibes", SongCount: 15}, false},
		{"minimum count", PendingCreation{Name: "One", SongCount: 1}, false},
		{"maximum count", PendingCreation{Name: "Full", SongCount: 100}, false},
		{"zero count", PendingCreation{Name: "Empty", SongCount: 0}, true},
		{"count too large", PendingCreation{Name: "Big", SongCount: 150}, true},
		{"negative count", PendingCreation{Name: "Neg", SongCount: -3}, true},
		{"missing name", PendingCreation{SongCount: 10}, true},
		{"blank name", PendingCreation{Name: "   ", SongCount: 10}, true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pending.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestStrategyUsesTaste(t *testing.T) {
	tc := []struct {
		strategy Strategy
		want     bool
	}{
		{StrategyUserTaste, true},
		{StrategyPremadeVibe, true},
		{StrategyArtistCatalog, false},
		{StrategySimilarArtist, false},
		{StrategySimilarStyle, false},
	}

	for _, tt := range tc {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			if got := tt.strategy.UsesTaste(); got != tt.want {
				t.Errorf("UsesTaste() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSuggestion(t *testing.T) {
	t.Run("Artist And Title", func(t *testing.T) {
		track := ParseSuggestion("Arctic Monkeys - Do I Wanna Know?")
		if track.Artist != "Arctic Monkeys" || track.Title != "Do I Wanna Know?" {
			t.Errorf("unexpected parse result: %+v", track)
		}
		if track.String() != "Arctic Monkeys - Do I Wanna Know?" {
			t.Errorf("unexpected String(): %s", track.String())
		}
	})

	t.Run("No Separator", func(t *testing.T) {
		track := ParseSuggestion("Bohemian Rhapsody")
		if track.Artist != "" || track.Title != "Bohemian Rhapsody" {
			t.Errorf("unexpected parse result: %+v", track)
		}
	})

	t.Run("Surrounding Whitespace", func(t *testing.T) {
		track := ParseSuggestion("  Queen -  Under Pressure  ")
		if track.Artist != "Queen" || track.Title != "Under Pressure" {
			t.Errorf("unexpected parse result: %+v", track)
		}
	})
}

func TestTasteContext(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		if !(TasteContext{}).Empty() {
			t.Error("expected zero context to be empty")
		}
	})

	t.Run("Render", func(t *testing.T) {
		ctx := TasteContext{TopArtists: []string{"Radiohead", "Portishead"}, TopTracks: []string{"Creep"}}
		rendered := ctx.Render()
		if rendered != "User's Top Artists: Radiohead, Portishead\nUser's Top Tracks: Creep\n" {
			t.Errorf("unexpected render output: %q", rendered)
		}
	})
}
