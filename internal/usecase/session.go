package usecase

import (
	"sync/atomic"
	"time"

	"github.com/geo-drilldown/internal/colorscale"
	"github.com/geo-drilldown/internal/drilldown"
	"github.com/geo-drilldown/internal/geostore"
	"github.com/geo-drilldown/internal/search"
)

// session bundles the per-user state. Nothing is shared between sessions
// except the geodata source and the event sink.
type session struct {
	id        string
	store     *geostore.Store
	scales    *colorscale.Cache
	ctrl      *drilldown.Controller
	index     *search.Index
	createdAt time.Time
	lastSeen  atomic.Int64
}

func (s *session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}
