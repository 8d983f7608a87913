package engine

import (
	"image"
	"image/color"
	"math/rand"
)

// Gameplay constants, mirroring the reference simulator's reward structure.
const (
	fruitReward     = 1.0
	junkPenalty     = -2.0
	completionBonus = 10.0
	wallPenalty     = -2.0
	episodeLength   = 300
	laneCount       = 7
	visibleRows     = 12
	spawnInterval   = 3
	frameWidth      = 64
	frameHeight     = 64
)

type objectKind int

const (
	objFruit objectKind = iota
	objJunk
	objWall
)

type fruitbotObject struct {
	kind objectKind
	lane int
	row  int // distance from the top of the visible corridor
}

// Fruitbot is the built-in simulator: a lane-scrolling corridor where the
// robot collects fruit, avoids junk food and walls, and scores a completion
// bonus for surviving the whole run. It is a simplification of the procgen
// game with the same name, deterministic for a given seed.
type Fruitbot struct {
	seed       int64
	rng        *rand.Rand
	playerLane int
	distance   int
	objects    []fruitbotObject
	frame      *image.RGBA
	done       bool
	closed     bool
}

// Ensure the optional release capability is declared, not probed.
var (
	_ Engine = (*Fruitbot)(nil)
	_ Closer = (*Fruitbot)(nil)
)

// NewFruitbot creates a simulator seeded for reproducible episodes.
func NewFruitbot(seed int64) *Fruitbot {
	f := &Fruitbot{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
	return f
}

// Reset starts a new episode.
func (f *Fruitbot) Reset() (*image.RGBA, error) {
	if f.closed {
		return nil, ErrEngineClosed
	}
	f.playerLane = laneCount / 2
	f.distance = 0
	f.objects = f.objects[:0]
	f.done = false
	f.render()
	return f.frame, nil
}

// Step advances the corridor by one row and resolves collisions at the
// player's row.
func (f *Fruitbot) Step(action Action) (StepData, error) {
	if f.closed {
		return StepData{}, ErrEngineClosed
	}
	if f.done {
		// Stepping a terminal episode re-renders the last frame with no
		// reward; callers are expected to Reset first.
		return StepData{Frame: f.frame, Done: true}, nil
	}

	switch action {
	case ActionLeft:
		if f.playerLane > 0 {
			f.playerLane--
		}
	case ActionRight:
		if f.playerLane < laneCount-1 {
			f.playerLane++
		}
	case ActionThrow:
		f.throwKey()
	}

	// Scroll all objects one row toward the player.
	reward := 0.0
	kept := f.objects[:0]
	for _, obj := range f.objects {
		obj.row++
		if obj.row == visibleRows-1 && obj.lane == f.playerLane {
			switch obj.kind {
			case objFruit:
				reward += fruitReward
			case objJunk:
				reward += junkPenalty
			case objWall:
				reward += wallPenalty
				f.done = true
			}
			continue
		}
		if obj.row < visibleRows {
			kept = append(kept, obj)
		}
	}
	f.objects = kept

	f.distance++
	if f.distance%spawnInterval == 0 {
		f.spawnRow()
	}
	if !f.done && f.distance >= episodeLength {
		reward += completionBonus
		f.done = true
	}

	f.render()
	return StepData{Frame: f.frame, Reward: reward, Done: f.done}, nil
}

// Render returns the most recently produced frame.
func (f *Fruitbot) Render() *image.RGBA {
	if f.frame == nil {
		f.render()
	}
	return f.frame
}

// Close releases the simulator. Further calls fail with ErrEngineClosed.
func (f *Fruitbot) Close() error {
	f.closed = true
	f.objects = nil
	return nil
}

// throwKey clears the nearest junk object in the player's lane, if any. The
// reference game lets the robot throw keys to knock junk out of the way.
func (f *Fruitbot) throwKey() {
	best := -1
	for i, obj := range f.objects {
		if obj.kind != objJunk || obj.lane != f.playerLane {
			continue
		}
		if best == -1 || obj.row > f.objects[best].row {
			best = i
		}
	}
	if best >= 0 {
		f.objects = append(f.objects[:best], f.objects[best+1:]...)
	}
}

// spawnRow seeds the top of the corridor with a mix of fruit, junk and
// partial walls. Every wall row keeps at least two open lanes.
func (f *Fruitbot) spawnRow() {
	if f.rng.Intn(4) == 0 {
		gap := f.rng.Intn(laneCount - 1)
		for lane := 0; lane < laneCount; lane++ {
			if lane == gap || lane == gap+1 {
				continue
			}
			f.objects = append(f.objects, fruitbotObject{kind: objWall, lane: lane, row: 0})
		}
		return
	}
	for lane := 0; lane < laneCount; lane++ {
		switch f.rng.Intn(8) {
		case 0:
			f.objects = append(f.objects, fruitbotObject{kind: objFruit, lane: lane, row: 0})
		case 1:
			f.objects = append(f.objects, fruitbotObject{kind: objJunk, lane: lane, row: 0})
		}
	}
}

var (
	colorBackground = color.RGBA{R: 24, G: 26, B: 38, A: 255}
	colorLane       = color.RGBA{R: 34, G: 38, B: 54, A: 255}
	colorFruit      = color.RGBA{R: 235, G: 94, B: 52, A: 255}
	colorJunk       = color.RGBA{R: 120, G: 220, B: 120, A: 255}
	colorWall       = color.RGBA{R: 150, G: 150, B: 160, A: 255}
	colorPlayer     = color.RGBA{R: 250, G: 220, B: 60, A: 255}
)

// render rasterizes the corridor into a fixed-size RGBA frame.
func (f *Fruitbot) render() {
	if f.frame == nil {
		f.frame = image.NewRGBA(image.Rect(0, 0, frameWidth, frameHeight))
	}
	cellW := frameWidth / laneCount
	cellH := frameHeight / visibleRows

	for y := 0; y < frameHeight; y++ {
		for x := 0; x < frameWidth; x++ {
			c := colorBackground
			if (x/cellW)%2 == 0 {
				c = colorLane
			}
			f.frame.SetRGBA(x, y, c)
		}
	}
	for _, obj := range f.objects {
		c := colorFruit
		switch obj.kind {
		case objJunk:
			c = colorJunk
		case objWall:
			c = colorWall
		}
		f.fillCell(obj.lane, obj.row, cellW, cellH, c)
	}
	f.fillCell(f.playerLane, visibleRows-1, cellW, cellH, colorPlayer)
}

func (f *Fruitbot) fillCell(lane, row, cellW, cellH int, c color.RGBA) {
	for y := row * cellH; y < (row+1)*cellH && y < frameHeight; y++ {
		for x := lane * cellW; x < (lane+1)*cellW && x < frameWidth; x++ {
			f.frame.SetRGBA(x, y, c)
		}
	}
}
