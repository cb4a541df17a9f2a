package tasks

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/services"
)

// Creation marker contract: the completion signals a confirmed creation with a
// single line `CREATE_PLAYLIST: <name> | SONGS: <count>`. The count is always
// explicit; there is no default. Anything that starts with the marker but does
// not match the full pattern is a validation failure, never silently-wrong data.
const creationMarker = "CREATE_PLAYLIST:"

var markerPattern = regexp.MustCompile(`(?m)^CREATE_PLAYLIST:\s*(.+?)\s*\|\s*SONGS:\s*(\d{1,3})\s*$`)

const repromptReply = "Almost there! What would you like to name the playlist, and how many songs should it have? (Please choose a number between 1-100.)"

const chatTemperature = 0.7
const chatMaxTokens = 1000
const tasteLimit = 10

// ChatResult is the outcome of classifying one chat message.
type ChatResult struct {
	Reply   string                  // Conversational reply to show the user
	Ready   bool                    // True only when a well-formed creation marker was found
	Pending *models.PendingCreation // Populated iff Ready
}

// Classifier interprets chat messages by delegating to the completion service.
//
// Its own responsibilities are prompt construction, the response-format
// contract, and parsing/validation of the returned structure.
type Classifier struct {
	completer services.Completer
	catalog   services.Catalog
	logger    *log.Logger
}

// NewClassifier creates a Classifier. catalog may be nil when no taste context is available.
func NewClassifier(completer services.Completer, catalog services.Catalog, logger *log.Logger) *Classifier {
	return &Classifier{completer: completer, catalog: catalog, logger: logger}
}

// TasteContext fetches the user's top artists and tracks in parallel.
//
// Both reads are optional: failure of either degrades to an empty context
// rather than failing the request.
func (c *Classifier) TasteContext(ctx context.Context) models.TasteContext {
	var taste models.TasteContext
	if c.catalog == nil {
		return taste
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		artists, err := c.catalog.TopArtists(ctx, tasteLimit)
		if err != nil {
			c.logger.Warn("failed to fetch top artists", "error", err)
			return
		}
		taste.TopArtists = artists
	}()

	go func() {
		defer wg.Done()
		tracks, err := c.catalog.TopTracks(ctx, tasteLimit)
		if err != nil {
			c.logger.Warn("failed to fetch top tracks", "error", err)
			return
		}
		taste.TopTracks = tracks
	}()

	wg.Wait()
	return taste
}

// Classify interprets one user message against the conversation so far.
//
// A completion-service failure is returned as-is; the caller renders the
// apologetic chat message and keeps the transcript intact.
func (c *Classifier) Classify(ctx context.Context, message string, history []models.ConversationTurn, taste models.TasteContext) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is required")
	}

	system := chatSystemPrompt(taste, history, message)

	reply, err := c.completer.Complete(ctx, services.CompletionRequest{
		System:      system,
		Messages:    []models.ConversationTurn{{Role: models.RoleUser, Content: message}},
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	return c.parseReply(reply, message), nil
}

// parseReply extracts the creation marker from the completion output.
func (c *Classifier) parseReply(reply, message string) *ChatResult {
	trimmed := strings.TrimSpace(reply)

	if !strings.HasPrefix(trimmed, creationMarker) {
		return &ChatResult{Reply: trimmed}
	}

	match := markerPattern.FindStringSubmatch(trimmed)
	if match == nil {
		c.logger.Warn("malformed creation marker", "reply", trimmed)
		return &ChatResult{Reply: repromptReply}
	}

	count, err := strconv.Atoi(match[2])
	if err != nil {
		return &ChatResult{Reply: repromptReply}
	}

	pending := &models.PendingCreation{
		Name:      match[1],
		SongCount: count,
		Request:   message,
	}
	if err := pending.Validate(); err != nil {
		c.logger.Warn("creation marker rejected", "error", err)
		return &ChatResult{Reply: repromptReply}
	}

	return &ChatResult{
		Reply:   trimmed,
		Ready:   true,
		Pending: pending,
	}
}

// DetectStrategy classifies a creation request with the documented keyword
// heuristics.
//
// The completion model handles the conversational classification; these
// regexes pick the generation focus for a confirmed request and double as the
// offline fallback. Precedence mirrors the strategy rules: a named artist or
// style always beats a premade label, and taste is only the default.
func DetectStrategy(request string) models.Strategy {
	switch {
	case artistCatalogPattern.MatchString(request):
		return models.StrategyArtistCatalog
	case similarPattern.MatchString(request):
		if songStylePattern.MatchString(request) {
			return models.StrategySimilarStyle
		}
		return models.StrategySimilarArtist
	case premadePattern.MatchString(request):
		return models.StrategyPremadeVibe
	default:
		return models.StrategyUserTaste
	}
}

var (
	artistCatalogPattern = regexp.MustCompile(`(?i)(songs by|playlist of|tracks by|music by)\s+\S`)
	similarPattern       = regexp.MustCompile(`(?i)(style|similar to|sounds like|\blike\b)\s*\S*`)
	songStylePattern     = regexp.MustCompile(`(?i)(song|track|vibe of)\b|["“].+["”]| - `)
	premadePattern       = regexp.MustCompile(`(?i)\b(workout|roadtrip|study|party|chill|focus|energy)\b`)
)

// DeriveIntent builds the full intent for a confirmed creation request.
func DeriveIntent(request string) models.PlaylistIntent {
	strategy := DetectStrategy(request)

	intent := models.PlaylistIntent{Strategy: strategy}
	switch strategy {
	case models.StrategyArtistCatalog:
		if name := trailingEntity(artistCatalogPattern, request); name != "" {
			intent.Artists = []string{name}
		}
	case models.StrategySimilarArtist:
		if name := trailingEntity(similarPattern, request); name != "" {
			intent.Artists = []string{name}
		}
	case models.StrategySimilarStyle:
		if name := trailingEntity(similarPattern, request); name != "" {
			intent.Styles = []string{name}
		}
	case models.StrategyPremadeVibe:
		if label := premadePattern.FindString(request); label != "" {
			intent.Styles = []string{strings.ToLower(label)}
		}
	}
	return intent
}

// trailingEntity returns the text around the first keyword match, trimmed of
// filler punctuation. Best-effort extraction for prompt focus: most keywords
// precede the entity ("songs by X"), but "style" follows it ("X style").
func trailingEntity(pattern *regexp.Regexp, request string) string {
	loc := pattern.FindStringSubmatchIndex(request)
	if loc == nil {
		return ""
	}
	keyword := strings.ToLower(request[loc[2]:loc[3]])
	var entity string
	if keyword == "style" {
		entity = request[:loc[2]]
	} else {
		entity = request[loc[3]:]
	}
	entity = strings.Trim(entity, ` .,!?"'`)
	// Drop any trailing clause about counts or naming.
	for _, sep := range []string{",", " with ", " name it", " call it"} {
		if idx := strings.Index(strings.ToLower(entity), sep); idx > 0 {
			entity = entity[:idx]
		}
	}
	return strings.TrimSpace(entity)
}

// chatSystemPrompt assembles the behavioral rules, taste context, strategy
// analysis cases, and prior transcript into one instruction prompt.
func chatSystemPrompt(taste models.TasteContext, history []models.ConversationTurn, message string) string {
	var b strings.Builder

	b.WriteString(`You are a music playlist creation assistant. You help users create Spotify playlists based on their specific requests, mood, activities, or style preferences.

User's Music Context (for reference only):
`)
	b.WriteString(taste.Render())
	b.WriteString(`
Instructions:
1. Analyze the user's request to determine which approach to use
2. Be conversational and helpful about the playlist concept
3. Ask clarifying questions if needed about mood, genre, or style
4. When you have enough information, ask the user for BOTH a playlist name AND a song count between 1 and 100
5. Only after getting both, respond with exactly: "CREATE_PLAYLIST: [exact playlist name] | SONGS: [exact number]"
6. Do NOT list specific song names - just say you have songs in mind
7. Use the EXACT number of songs the user requests; never substitute a default
8. If the user confirms without providing a name and song count, ask again for both
9. The SONGS field is required in every CREATE_PLAYLIST response

REQUEST ANALYSIS - Use this logic to determine approach:

CASE 1 - USE USER'S MUSIC TASTE: requests about the user's feelings, mood, or existing taste ("make me a playlist based on my mood", "based on my music taste")

CASE 2 - SPECIFIC ARTIST ONLY: "songs by [Artist]", "playlist of [Artist]" - draw only from that artist's catalog, ignore the user's taste

CASE 3 - SIMILAR TO ARTIST OR STYLE (DO NOT USE USER TASTE): "[Artist] style", "similar to [Artist]", "sounds like [Song]" - focus on the named artist/style and similar artists, ignore the user's personal taste entirely

CASE 4 - PREMADE OPTIONS (USE USER TASTE): workout, roadtrip, study, party playlists with no named artist or style - seed from the user's taste; if a style or artist is attached, it takes priority and taste is only a tiebreaker

Current conversation:
`)
	for _, turn := range history {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nUser: ")
	b.WriteString(message)

	return b.String()
}
