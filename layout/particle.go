package layout

import (
	"math/rand"
	"time"
)

// Particle canvas limits
const (
	maxCanvasDim    = 200
	maxParticles    = 30
	particlePeriod  = 33 * time.Millisecond
	particleGravity = 0.06
)

// Recorder reports whether audio capture is active. Particle canvases skip
// their tick entirely while recording to keep the capture task's core free.
type Recorder interface {
	IsRecording() bool
}

type particle struct {
	x, y   float64
	vx, vy float64
	alpha  float64
	life   float64
}

// particleState drives one particle canvas. The RGB565 pixel buffer lives in
// the PSRAM region; ticks run under the UI lock from the engine's timeline.
type particleState struct {
	w, h      int
	particles []particle
	free      func()
	rng       *rand.Rand
	ticks     int
}

func newParticleState(w, h int, free func()) *particleState {
	return &particleState{
		w:         w,
		h:         h,
		particles: make([]particle, 0, maxParticles),
		free:      free,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// tick advances the simulation one frame: emit from centre up to the
// particle cap, integrate velocity and gravity, decay alpha linearly,
// retire dead particles.
func (p *particleState) tick() {
	p.ticks++

	if len(p.particles) < maxParticles {
		p.particles = append(p.particles, particle{
			x:     float64(p.w) / 2,
			y:     float64(p.h) / 2,
			vx:    (p.rng.Float64() - 0.5) * 2,
			vy:    (p.rng.Float64() - 0.5) * 2,
			alpha: 1,
			life:  1,
		})
	}

	alive := p.particles[:0]
	for _, pt := range p.particles {
		pt.x += pt.vx
		pt.y += pt.vy
		pt.vy += particleGravity
		pt.life -= 1.0 / 60
		pt.alpha = pt.life
		if pt.life > 0 && pt.x >= 0 && pt.x < float64(p.w) && pt.y < float64(p.h) {
			alive = append(alive, pt)
		}
	}
	p.particles = alive
}

func (p *particleState) count() int {
	return len(p.particles)
}

func (p *particleState) release() {
	if p.free != nil {
		p.free()
		p.free = nil
	}
	p.particles = nil
}

// ParticleCount returns the number of live particles on a particle node
func (n *Node) ParticleCount() int {
	if n.particle == nil {
		return 0
	}
	return n.particle.count()
}

// clampCanvasDim bounds a requested canvas dimension
func clampCanvasDim(v int) int {
	if v <= 0 {
		return maxCanvasDim / 2
	}
	if v > maxCanvasDim {
		return maxCanvasDim
	}
	return v
}
