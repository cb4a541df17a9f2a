package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/services"
	"golang.org/x/time/rate"
)

// searchRate paces catalog searches to stay clear of upstream rate limits.
const searchRate = rate.Limit(10)
const searchBurst = 5

// TrackResolver caches suggestion-to-URI resolutions across runs.
//
// Implemented by repositories.ResolutionRepository. Optional; a nil resolver
// means every suggestion hits the search endpoint.
type TrackResolver interface {
	Get(artist, title string) (string, error)
	Put(artist, title, uri string) error
}

// Materializer turns a confirmed creation request plus suggestions into an
// actual playlist on the user's account.
//
// Contract: the profile fetch and the playlist-create call are fatal on
// failure. Individual track searches are best-effort; a failed or empty search
// skips that track. The attach call runs once, only when at least one URI
// resolved, and its failure is fatal even though the playlist already exists.
type Materializer struct {
	catalog  services.Catalog
	resolver TrackResolver
	limiter  *rate.Limiter
	logger   *log.Logger
}

func NewMaterializer(catalog services.Catalog, resolver TrackResolver, logger *log.Logger) *Materializer {
	return &Materializer{
		catalog:  catalog,
		resolver: resolver,
		limiter:  rate.NewLimiter(searchRate, searchBurst),
		logger:   logger,
	}
}

// Create materializes the playlist. progress may be nil.
func (m *Materializer) Create(ctx context.Context, pending *models.PendingCreation, tracks []models.SuggestedTrack, progress chan<- ProgressUpdate) (*models.CreatedPlaylist, error) {
	if err := pending.Validate(); err != nil {
		return nil, err
	}

	sendProgress(progress, fetchProfileUpdate())
	user, err := m.catalog.ProfileWithRetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("profile fetch failed: %w", err)
	}

	sendProgress(progress, createPlaylistUpdate(pending.Name))
	playlist, err := m.catalog.CreatePlaylist(ctx, user.ID, pending.Name, pending.Description)
	if err != nil {
		return nil, fmt.Errorf("playlist creation failed: %w", err)
	}

	uris := m.resolve(ctx, tracks, progress)

	if len(uris) > 0 {
		sendProgress(progress, attachTracksUpdate(len(uris)))
		if err := m.catalog.AddTracks(ctx, playlist.ID, uris); err != nil {
			return nil, fmt.Errorf("failed to add tracks to playlist %s: %w", playlist.ID, err)
		}
	} else {
		m.logger.Warn("no tracks resolved, playlist left empty", "playlist", playlist.ID)
	}

	sendProgress(progress, doneUpdate(len(uris), len(tracks)))

	return &models.CreatedPlaylist{
		ID:              playlist.ID,
		Name:            playlist.Name,
		Description:     playlist.Description,
		ExternalURL:     playlist.ExternalURL(),
		TracksAdded:     len(uris),
		TracksRequested: len(tracks),
	}, nil
}

// resolve maps suggestions to catalog URIs, preserving suggestion order.
//
// Cache hits bypass the search endpoint and the limiter. Search failures and
// misses are logged and skipped; a context cancellation stops the loop and
// returns whatever resolved so far.
func (m *Materializer) resolve(ctx context.Context, tracks []models.SuggestedTrack, progress chan<- ProgressUpdate) []string {
	uris := make([]string, 0, len(tracks))

	for i, track := range tracks {
		query := track.String()
		sendProgress(progress, searchTrackUpdate(i+1, len(tracks), query))

		if uri := m.cached(track); uri != "" {
			uris = append(uris, uri)
			continue
		}

		if err := m.limiter.Wait(ctx); err != nil {
			m.logger.Warn("search aborted", "error", err)
			break
		}

		uri, err := m.catalog.SearchTrackURI(ctx, query)
		if err != nil {
			m.logger.Warn("track search failed, skipping", "query", query, "error", err)
			continue
		}
		if uri == "" {
			m.logger.Warn("no catalog match, skipping", "query", query)
			continue
		}

		uris = append(uris, uri)
		m.remember(track, uri)
	}

	return uris
}

func (m *Materializer) cached(track models.SuggestedTrack) string {
	if m.resolver == nil {
		return ""
	}
	uri, err := m.resolver.Get(track.Artist, track.Title)
	if err != nil {
		m.logger.Warn("resolution cache read failed", "error", err)
		return ""
	}
	return uri
}

func (m *Materializer) remember(track models.SuggestedTrack, uri string) {
	if m.resolver == nil {
		return
	}
	if err := m.resolver.Put(track.Artist, track.Title, uri); err != nil {
		m.logger.Warn("resolution cache write failed", "error", err)
	}
}
