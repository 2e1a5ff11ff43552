package growth

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

// ViewHandle marks a plant row as still on screen. The reconciler checks it
// before every tick and cancels the timer once it has been closed.
type ViewHandle struct {
	active atomic.Bool
}

func newViewHandle() *ViewHandle {
	h := &ViewHandle{}
	h.active.Store(true)
	return h
}

func (h *ViewHandle) Active() bool {
	return h.active.Load()
}

// Close tears the view down
func (h *ViewHandle) Close() {
	h.active.Store(false)
}

// PlantView is the displayed state of one growing plant
type PlantView struct {
	ID       int
	Name     string
	Elapsed  float64
	Growth   float64
	TimeLeft int
	Progress float64
	Ready    bool
}

// Label is the countdown text, or the ready affordance
func (v PlantView) Label() string {
	if v.Ready {
		return "Ready!"
	}
	return fmt.Sprintf("%ds", v.TimeLeft)
}

// CanHarvest reports whether the harvest action is offered
func (v PlantView) CanHarvest() bool {
	return v.Ready
}

type row struct {
	view   PlantView
	handle *ViewHandle
}

// Board is the growing-plants list as displayed
type Board struct {
	order []int
	rows  map[int]*row
}

func NewBoard() *Board {
	return &Board{rows: make(map[int]*row)}
}

// Render replaces the list with plants. Rows that survive keep their handle
// unless it was closed, in which case the re-rendered row gets a fresh one.
// Rows that are gone have theirs closed.
func (b *Board) Render(plants []models.GrowingPlant) {
	next := make(map[int]*row, len(plants))
	order := make([]int, 0, len(plants))
	for _, p := range plants {
		r, ok := b.rows[p.ID]
		if !ok {
			r = &row{}
		}
		if r.handle == nil || !r.handle.Active() {
			r.handle = newViewHandle()
		}
		r.view = viewOf(p)
		next[p.ID] = r
		order = append(order, p.ID)
	}
	for id, r := range b.rows {
		if _, ok := next[id]; !ok {
			r.handle.Close()
		}
	}
	b.rows = next
	b.order = order
}

// Remove hides a row and closes its handle. The next Render shows it again.
func (b *Board) Remove(id int) {
	r, ok := b.rows[id]
	if !ok {
		return
	}
	r.handle.Close()
	delete(b.rows, id)
	for i, rid := range b.order {
		if rid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Handle returns the view handle of a row
func (b *Board) Handle(id int) (*ViewHandle, bool) {
	r, ok := b.rows[id]
	if !ok {
		return nil, false
	}
	return r.handle, true
}

// View returns the displayed state of a row
func (b *Board) View(id int) (PlantView, bool) {
	r, ok := b.rows[id]
	if !ok {
		return PlantView{}, false
	}
	return r.view, true
}

// Views returns all rows in list order
func (b *Board) Views() []PlantView {
	out := make([]PlantView, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.rows[id].view)
	}
	return out
}

func (b *Board) set(id int, v PlantView) {
	if r, ok := b.rows[id]; ok {
		r.view = v
	}
}

func viewOf(p models.GrowingPlant) PlantView {
	ready := p.Ready()
	v := PlantView{
		ID:       p.ID,
		Name:     p.Name,
		Elapsed:  p.ElapsedTime,
		Growth:   p.GrowthTime,
		TimeLeft: int(math.Ceil(p.TimeLeft())),
		Progress: p.Progress(),
		Ready:    ready,
	}
	if ready {
		v.TimeLeft = 0
		v.Progress = 100
	}
	return v
}
