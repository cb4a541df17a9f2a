package tasks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/services"
)

const generateTemperature = 0.8
const generateMaxTokens = 1000
const supplementMaxTokens = 500

// fallbackTracks covers the case where the completion output yields no
// parseable suggestions at all. Well-known songs that search will resolve.
var fallbackTracks = []models.SuggestedTrack{
	{Artist: "The Beatles", Title: "Here Comes The Sun"},
	{Artist: "Queen", Title: "Bohemian Rhapsody"},
	{Artist: "Led Zeppelin", Title: "Stairway to Heaven"},
	{Artist: "Pink Floyd", Title: "Wish You Were Here"},
	{Artist: "The Rolling Stones", Title: "Paint It Black"},
}

// Generator produces song suggestions for a confirmed creation request.
//
// It makes at most two completion calls: the primary request, and one
// supplementary request when the primary falls short of the target count.
// An unparseable primary reply substitutes the fallback list first, then the
// shortfall check runs as usual. Whatever the second call yields is accepted,
// even a continued shortfall.
type Generator struct {
	completer services.Completer
	logger    *log.Logger
}

func NewGenerator(completer services.Completer, logger *log.Logger) *Generator {
	return &Generator{completer: completer, logger: logger}
}

// Generate asks the completion service for count suggestions serving the
// request's strategy. Taste context is included only for strategies that
// permit it.
func (g *Generator) Generate(ctx context.Context, pending *models.PendingCreation, intent models.PlaylistIntent, taste models.TasteContext, count int) ([]models.SuggestedTrack, error) {
	system := generationPrompt(pending.Request, intent, taste, count)

	reply, err := g.completer.Complete(ctx, services.CompletionRequest{
		System:      system,
		Messages:    []models.ConversationTurn{{Role: models.RoleUser, Content: pending.Request}},
		MaxTokens:   generateMaxTokens,
		Temperature: generateTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion generation failed: %w", err)
	}

	tracks := parseSuggestions(reply)
	if len(tracks) == 0 {
		g.logger.Warn("no parseable suggestions, using fallback", "reply_length", len(reply))
		n := min(count, len(fallbackTracks))
		tracks = append([]models.SuggestedTrack(nil), fallbackTracks[:n]...)
	}

	if len(tracks) < count {
		more, err := g.supplement(ctx, pending.Request, intent, taste, tracks, count-len(tracks))
		if err != nil {
			g.logger.Warn("supplementary generation failed, accepting shortfall", "have", len(tracks), "want", count, "error", err)
		} else {
			tracks = append(tracks, more...)
		}
	}

	if len(tracks) > count {
		tracks = tracks[:count]
	}
	return tracks, nil
}

// supplement makes the single follow-up call for the remaining songs,
// excluding everything already suggested.
func (g *Generator) supplement(ctx context.Context, request string, intent models.PlaylistIntent, taste models.TasteContext, have []models.SuggestedTrack, missing int) ([]models.SuggestedTrack, error) {
	var exclude strings.Builder
	for _, t := range have {
		exclude.WriteString(t.String())
		exclude.WriteString("\n")
	}

	system := generationPrompt(request, intent, taste, missing) +
		"\n\nDo NOT repeat any of these songs already chosen:\n" + exclude.String()

	reply, err := g.completer.Complete(ctx, services.CompletionRequest{
		System:      system,
		Messages:    []models.ConversationTurn{{Role: models.RoleUser, Content: fmt.Sprintf("Give me %d more songs for the same playlist.", missing)}},
		MaxTokens:   supplementMaxTokens,
		Temperature: generateTemperature,
	})
	if err != nil {
		return nil, err
	}

	more := parseSuggestions(reply)
	if len(more) > missing {
		more = more[:missing]
	}
	return more, nil
}

// listPrefixPattern matches a numbering ("12.", "3)") or bullet ("-", "*")
// marker at the start of a line. It must not touch artist names that begin
// with digits ("21 Savage", "50 Cent").
var listPrefixPattern = regexp.MustCompile(`^\s*(?:\d+[.)]\s+|[-*]\s+)`)

// parseSuggestions extracts "Artist - Title" lines from completion output.
//
// Numbered prefixes and bullet markers are stripped. Lines without the
// separator are ignored; chatty filler around the list never becomes a track.
func parseSuggestions(reply string) []models.SuggestedTrack {
	var tracks []models.SuggestedTrack
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = listPrefixPattern.ReplaceAllString(line, "")
		if line == "" || !strings.Contains(line, " - ") {
			continue
		}
		track := models.ParseSuggestion(line)
		if track.Artist == "" || track.Title == "" {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks
}

// generationPrompt builds the suggestion instruction for one strategy.
func generationPrompt(request string, intent models.PlaylistIntent, taste models.TasteContext, count int) string {
	var b strings.Builder

	b.WriteString("You are a music expert. Suggest exactly ")
	fmt.Fprintf(&b, "%d songs", count)
	b.WriteString(" for the playlist request below.\n\n")

	switch intent.Strategy {
	case models.StrategyArtistCatalog:
		b.WriteString("STRICT RULE: every song must be by the requested artist")
		if len(intent.Artists) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(intent.Artists, ", "))
		}
		b.WriteString(". Do not include any other artists and do not use the listener's personal taste.\n")
	case models.StrategySimilarArtist:
		b.WriteString("STRICT RULE: focus on the named artist")
		if len(intent.Artists) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(intent.Artists, ", "))
		}
		b.WriteString(" and artists with a very similar sound. IGNORE the listener's personal taste entirely.\n")
	case models.StrategySimilarStyle:
		b.WriteString("STRICT RULE: match the style of the named song or genre")
		if len(intent.Styles) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(intent.Styles, ", "))
		}
		b.WriteString(". IGNORE the listener's personal taste entirely.\n")
	case models.StrategyPremadeVibe:
		b.WriteString("Build a playlist for the activity")
		if len(intent.Styles) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(intent.Styles, ", "))
		}
		b.WriteString(", leaning on the listener's taste below where it fits the vibe.\n")
	default:
		b.WriteString("Base the selection on the listener's music taste below.\n")
	}

	if intent.Strategy.UsesTaste() && !taste.Empty() {
		b.WriteString("\nListener's taste:\n")
		b.WriteString(taste.Render())
	}

	fmt.Fprintf(&b, "\nRequest: %s\n\n", request)
	b.WriteString(`Respond with ONLY the song list, one song per line, in this exact format:
Artist Name - Song Title

No numbering, no commentary, no extra text.`)

	return b.String()
}
