package growth

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

// TickInterval is how often a local countdown advances by one second
const TickInterval = time.Second

// Tick is posted to the owner's inbox by a running timer. Gen identifies the
// timer so ticks from a replaced timer can be told apart.
type Tick struct {
	PlantID int
	Gen     uint64
}

type timer struct {
	gen     uint64
	ticker  clockwork.Ticker
	stop    chan struct{}
	elapsed float64
	growth  float64
	handle  *ViewHandle
}

// Reconciler keeps one local countdown per growing plant and reconciles them
// with every authoritative fetch. All methods must be called from the
// goroutine that owns it; timers only post Ticks to the sink.
type Reconciler struct {
	clock  clockwork.Clock
	sink   chan<- Tick
	board  *Board
	timers map[int]*timer
	gen    uint64
}

// NewReconciler creates a reconciler whose timers post ticks to sink
func NewReconciler(clock clockwork.Clock, sink chan<- Tick) *Reconciler {
	return &Reconciler{
		clock:  clock,
		sink:   sink,
		board:  NewBoard(),
		timers: make(map[int]*timer),
	}
}

func (r *Reconciler) Board() *Board {
	return r.board
}

// Sync applies a fresh fetch of the growing set. New unready plants get a timer
// seeded with the fetched elapsed time, tracked plants are resynced in place,
// plants that are ready or gone lose their timer.
func (r *Reconciler) Sync(plants []models.GrowingPlant) {
	r.board.Render(plants)

	fetched := make(map[int]struct{}, len(plants))
	for _, p := range plants {
		fetched[p.ID] = struct{}{}
	}
	for id := range r.timers {
		if _, ok := fetched[id]; !ok {
			r.stopTimer(id)
		}
	}

	for _, p := range plants {
		if p.Ready() {
			r.stopTimer(p.ID)
			continue
		}
		if t, ok := r.timers[p.ID]; ok {
			t.elapsed = p.ElapsedTime
			t.growth = p.GrowthTime
			if h, ok := r.board.Handle(p.ID); ok {
				t.handle = h
			}
			continue
		}
		r.startTimer(p)
	}

	log.Debug().
		Int("plants", len(plants)).
		Int("active_timers", len(r.timers)).
		Msg("growing plants reconciled")
}

// HandleTick advances one plant's countdown. It returns true when the plant has
// just become ready and the growing set should be refetched.
func (r *Reconciler) HandleTick(tick Tick) bool {
	t, ok := r.timers[tick.PlantID]
	if !ok || t.gen != tick.Gen {
		return false
	}
	if !t.handle.Active() {
		r.stopTimer(tick.PlantID)
		log.Debug().Int("plant_id", tick.PlantID).Msg("view gone, timer cancelled")
		return false
	}

	t.elapsed++
	timeLeft := int(math.Ceil(math.Max(0, t.growth-t.elapsed)))

	view, _ := r.board.View(tick.PlantID)
	view.Elapsed = t.elapsed
	view.Growth = t.growth
	view.TimeLeft = timeLeft
	view.Progress = models.ProgressPercent(t.elapsed, t.growth)

	if timeLeft > 0 {
		r.board.set(tick.PlantID, view)
		return false
	}

	view.Ready = true
	view.Progress = 100
	r.board.set(tick.PlantID, view)
	r.stopTimer(tick.PlantID)
	log.Debug().Int("plant_id", tick.PlantID).Msg("plant ready")
	return true
}

// Tracked reports whether a timer is running for the plant
func (r *Reconciler) Tracked(id int) bool {
	_, ok := r.timers[id]
	return ok
}

// ActiveTimers returns the number of running timers
func (r *Reconciler) ActiveTimers() int {
	return len(r.timers)
}

// Stop cancels every timer
func (r *Reconciler) Stop() {
	for id := range r.timers {
		r.stopTimer(id)
	}
}

// startTimer cancels any timer the plant already has before starting a new one
func (r *Reconciler) startTimer(p models.GrowingPlant) {
	r.stopTimer(p.ID)

	handle, ok := r.board.Handle(p.ID)
	if !ok {
		return
	}

	r.gen++
	t := &timer{
		gen:     r.gen,
		ticker:  r.clock.NewTicker(TickInterval),
		stop:    make(chan struct{}),
		elapsed: p.ElapsedTime,
		growth:  p.GrowthTime,
		handle:  handle,
	}
	r.timers[p.ID] = t

	go func(id int, t *timer) {
		for {
			select {
			case <-t.stop:
				return
			case <-t.ticker.Chan():
				select {
				case r.sink <- Tick{PlantID: id, Gen: t.gen}:
				case <-t.stop:
					return
				}
			}
		}
	}(p.ID, t)

	log.Debug().
		Int("plant_id", p.ID).
		Float64("elapsed", p.ElapsedTime).
		Float64("growth", p.GrowthTime).
		Msg("started growth timer")
}

func (r *Reconciler) stopTimer(id int) {
	t, ok := r.timers[id]
	if !ok {
		return
	}
	t.ticker.Stop()
	close(t.stop)
	delete(r.timers, id)
}
