package routestore

import (
	"slices"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/switchback/internal/core/domain"
)

// RouteTracker holds the latest route state per virtual model
type RouteTracker struct {
	states *xsync.Map[string, domain.RouteState]
	now    func() time.Time
}

func NewRouteTracker() *RouteTracker {
	return &RouteTracker{
		states: xsync.NewMap[string, domain.RouteState](),
		now:    time.Now,
	}
}

func (t *RouteTracker) Update(virtualModel string, index int, entry domain.FallbackEntry, total int) {
	t.states.Store(virtualModel, domain.RouteState{
		VirtualModel: virtualModel,
		Index:        index,
		Entry:        entry,
		Total:        total,
		UpdatedAt:    t.now(),
	})
}

func (t *RouteTracker) Get(virtualModel string) (domain.RouteState, bool) {
	return t.states.Load(virtualModel)
}

// All returns every state sorted by virtual model name
func (t *RouteTracker) All() []domain.RouteState {
	out := make([]domain.RouteState, 0, t.states.Size())
	t.states.Range(func(_ string, s domain.RouteState) bool {
		out = append(out, s)
		return true
	})
	slices.SortFunc(out, func(a, b domain.RouteState) int {
		return strings.Compare(a.VirtualModel, b.VirtualModel)
	})
	return out
}
